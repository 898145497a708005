// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package dispatch contains the batching engine for bulk writes: the size
// policy, the batch accumulator, the sequential executor, and the result
// merger. The network round trip itself is delegated to a Dispatcher.
package dispatch

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/core/compressor"
	"github.com/ephemer/node-mongodb-native/core/writeconcern"
)

// Dispatcher is the transport collaborator. It accepts one fully-formed
// batch and resolves to exactly one outcome: a server write-result
// document, or an error for any failure that did not produce one (network
// errors, server selection failures, timeouts).
type Dispatcher interface {
	Dispatch(ctx context.Context, batch *Batch, ns command.Namespace, opts Options) (bson.Raw, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, batch *Batch, ns command.Namespace, opts Options) (bson.Raw, error)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, batch *Batch, ns command.Namespace, opts Options) (bson.Raw, error) {
	return f(ctx, batch, ns, opts)
}

// NewWriteCommand shapes a batch and its execution options into the
// command document model a transport encodes and sends.
func NewWriteCommand(batch *Batch, ns command.Namespace, opts Options) command.Write {
	return command.Write{
		Kind:                     batch.Kind,
		NS:                       ns,
		Ops:                      batch.Ops,
		Ordered:                  opts.Ordered,
		WriteConcern:             opts.WriteConcern,
		BypassDocumentValidation: opts.BypassDocumentValidation,
	}
}

// Options are the per-dispatch execution options handed to the transport
// along with a batch.
type Options struct {
	// Ordered is forced to the bulk operation's mode for every batch.
	Ordered bool

	WriteConcern *writeconcern.WriteConcern

	// BypassDocumentValidation is stripped unless explicitly true.
	BypassDocumentValidation *bool

	// RetryWrite is cleared for batches that are not retryable.
	RetryWrite bool

	// Compressor, when set, is the byte transform the transport applies to
	// shrink payloads on the wire.
	Compressor compressor.Compressor
}
