// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/command"
)

// Batch is a size/count-bounded group of same-kind operations dispatched as
// one round trip, together with the bookkeeping needed to map batch-local
// result indexes back to the caller's original operation order.
type Batch struct {
	Kind command.WriteCommandKind

	// Ops[i] is the marshaled operation document at batch-local index i and
	// OriginalIndexes[i] is its caller-order position.
	Ops             []bson.Raw
	OriginalIndexes []int64

	// SizeBytes is the accumulated payload size including the per-entry
	// index overhead charged by the size policy.
	SizeBytes int

	// CanRetry is false once the batch holds a multi-document update or an
	// unlimited-count delete; retryable writes require a single
	// deterministic target document.
	CanRetry bool
}

func newBatch(kind command.WriteCommandKind) *Batch {
	return &Batch{Kind: kind, CanRetry: true}
}

// Count returns the number of operations in the batch.
func (b *Batch) Count() int { return len(b.Ops) }

// ZeroIndex returns the caller-order position of the batch's first
// operation, or -1 for an empty batch.
func (b *Batch) ZeroIndex() int64 {
	if len(b.OriginalIndexes) == 0 {
		return -1
	}
	return b.OriginalIndexes[0]
}

func (b *Batch) append(op bson.Raw, originalIndex int64, retryable bool, overhead int) {
	b.Ops = append(b.Ops, op)
	b.OriginalIndexes = append(b.OriginalIndexes, originalIndex)
	b.SizeBytes += len(op) + overhead
	if !retryable {
		b.CanRetry = false
	}
}

// Accumulator grows the set of batches for one bulk operation, applying the
// size policy to decide when to roll over to a new batch.
//
// In ordered mode there is exactly one active batch and a rollover happens
// on any kind change or size boundary, so batch boundaries track the
// caller's submission order. In unordered mode one batch per kind is active
// at a time and operations join their kind's stream regardless of
// interleaving.
type Accumulator struct {
	policy  SizePolicy
	ordered bool

	// ordered mode: sealed batches in caller order plus one active batch.
	queue  []*Batch
	active *Batch

	// unordered mode: per-kind sealed and active batches, indexed by kind.
	sealed  [3][]*Batch
	actives [3]*Batch
}

// NewAccumulator returns an empty accumulator governed by the given policy.
func NewAccumulator(policy SizePolicy, ordered bool) *Accumulator {
	return &Accumulator{policy: policy, ordered: ordered}
}

// Ordered reports the accumulation mode.
func (a *Accumulator) Ordered() bool { return a.ordered }

// Policy returns the size policy the accumulator applies.
func (a *Accumulator) Policy() SizePolicy { return a.policy }

// Append adds one marshaled operation with its caller-order index to the
// matching batch stream, rolling over to a new batch when the active one
// would exceed the policy's count or byte limits. A single operation larger
// than the batch ceiling is still admitted alone into its own batch.
func (a *Accumulator) Append(kind command.WriteCommandKind, op bson.Raw, originalIndex int64, retryable bool) {
	cur := a.activeFor(kind)
	if cur != nil && a.wouldExceed(cur, len(op)) {
		a.seal(cur)
		cur = nil
	}
	if cur == nil {
		cur = newBatch(kind)
		a.setActive(kind, cur)
	}

	cur.append(op, originalIndex, retryable, a.policy.PerEntryOverhead())
}

// Batches seals any trailing active batches and returns the dispatch
// queue. Ordered mode yields batches in caller order; unordered mode yields
// insert batches, then update batches, then delete batches, preserving
// caller order within each kind.
func (a *Accumulator) Batches() []*Batch {
	if a.ordered {
		if a.active != nil {
			a.queue = append(a.queue, a.active)
			a.active = nil
		}
		return a.queue
	}

	var queue []*Batch
	for _, kind := range []command.WriteCommandKind{command.InsertCommand, command.UpdateCommand, command.DeleteCommand} {
		queue = append(queue, a.sealed[kind]...)
		if a.actives[kind] != nil {
			queue = append(queue, a.actives[kind])
			a.actives[kind] = nil
		}
		a.sealed[kind] = nil
	}
	return queue
}

func (a *Accumulator) wouldExceed(b *Batch, opSize int) bool {
	if b.Count()+1 > a.policy.MaxOperationsPerBatch {
		return true
	}
	return b.SizeBytes+opSize+a.policy.PerEntryOverhead() > a.policy.MaxBatchBytes
}

func (a *Accumulator) activeFor(kind command.WriteCommandKind) *Batch {
	if !a.ordered {
		return a.actives[kind]
	}
	if a.active != nil && a.active.Kind != kind {
		a.seal(a.active)
	}
	return a.active
}

func (a *Accumulator) setActive(kind command.WriteCommandKind, b *Batch) {
	if a.ordered {
		a.active = b
		return
	}
	a.actives[kind] = b
}

func (a *Accumulator) seal(b *Batch) {
	if a.ordered {
		if a.active == b {
			a.active = nil
		}
		a.queue = append(a.queue, b)
		return
	}
	if a.actives[b.Kind] == b {
		a.actives[b.Kind] = nil
	}
	a.sealed[b.Kind] = append(a.sealed[b.Kind], b)
}
