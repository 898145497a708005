// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import "strconv"

// Server limit defaults applied when the handshake omits a value.
const (
	DefaultMaxDocumentBytes      = 16 * 1024 * 1024
	DefaultMaxOperationsPerBatch = 1000

	// EncryptedMaxBatchBytes is the batch payload ceiling enforced while
	// client-side field-level encryption is active, regardless of the
	// server-reported document size.
	EncryptedMaxBatchBytes = 2 * 1024 * 1024
)

// HandshakeLimits are the write limits reported by the server handshake,
// plus whether client-side field-level encryption is active. Zero values
// mean the server omitted the limit.
type HandshakeLimits struct {
	MaxBsonObjectSize     int
	MaxWriteBatchSize     int
	AutoEncryptionEnabled bool
}

// SizePolicy describes the server's current write limits. It is derived
// once per bulk operation and is immutable for that operation's lifetime.
type SizePolicy struct {
	MaxDocumentBytes      int
	MaxBatchBytes         int
	MaxOperationsPerBatch int

	// MaxIndexKeyWidth is the widest result-array key an entry of a full
	// batch can occupy in the server response. It feeds the per-entry
	// overhead charged during batch accumulation.
	MaxIndexKeyWidth int
}

// NewSizePolicy derives a SizePolicy from handshake limits, falling back to
// defaults for omitted values.
func NewSizePolicy(limits HandshakeLimits) SizePolicy {
	docBytes := limits.MaxBsonObjectSize
	if docBytes <= 0 {
		docBytes = DefaultMaxDocumentBytes
	}

	maxOps := limits.MaxWriteBatchSize
	if maxOps <= 0 {
		maxOps = DefaultMaxOperationsPerBatch
	}

	batchBytes := docBytes
	if limits.AutoEncryptionEnabled {
		batchBytes = EncryptedMaxBatchBytes
	}

	return SizePolicy{
		MaxDocumentBytes:      docBytes,
		MaxBatchBytes:         batchBytes,
		MaxOperationsPerBatch: maxOps,
		MaxIndexKeyWidth:      indexKeyWidth(maxOps),
	}
}

// DefaultSizePolicy returns the policy for a server that reported no
// limits.
func DefaultSizePolicy() SizePolicy {
	return NewSizePolicy(HandshakeLimits{})
}

// PerEntryOverhead is the byte cost charged per appended operation for the
// index-array entry its result-mapping record occupies in the server
// response.
func (sp SizePolicy) PerEntryOverhead() int {
	return sp.MaxIndexKeyWidth
}

// indexKeyWidth returns the decimal width of the largest batch-local index
// plus the key's type and terminator bytes.
func indexKeyWidth(maxOps int) int {
	return len(strconv.Itoa(maxOps-1)) + 2
}
