// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ephemer/node-mongodb-native/core/result"
)

// UpsertedID pairs a document identifier with the index at which the caller
// queued the operation that produced it.
type UpsertedID struct {
	Index int64
	ID    interface{}
}

// OperationTime is the server operation time observed for an execution.
type OperationTime struct {
	TS primitive.Timestamp
	T  int64
}

// BulkWriteResult is a read-only view over the merged result of a bulk
// execution. All indexes it reports are the caller's original queue indexes,
// not positions inside server batches.
type BulkWriteResult struct {
	res *result.BulkWrite
}

func newBulkWriteResult(res *result.BulkWrite) *BulkWriteResult {
	return &BulkWriteResult{res: res}
}

// Ok reports whether every dispatched batch completed at the command level.
// Individual write errors do not clear it.
func (r *BulkWriteResult) Ok() bool { return r.res.Ok }

// InsertedCount returns the number of documents inserted.
func (r *BulkWriteResult) InsertedCount() int64 { return r.res.NInserted }

// MatchedCount returns the number of documents matched by update and replace
// operations, excluding upserts.
func (r *BulkWriteResult) MatchedCount() int64 { return r.res.NMatched }

// ModifiedCount returns the number of documents actually modified.
func (r *BulkWriteResult) ModifiedCount() int64 { return r.res.NModified }

// DeletedCount returns the number of documents deleted.
func (r *BulkWriteResult) DeletedCount() int64 { return r.res.NRemoved }

// UpsertedCount returns the number of upserts performed.
func (r *BulkWriteResult) UpsertedCount() int64 { return r.res.NUpserted }

// InsertedIDs returns the identifiers of documents inserted with a known
// client-side identifier, keyed by original queue index. Documents whose
// identifier was assigned by the server are absent.
func (r *BulkWriteResult) InsertedIDs() map[int64]interface{} {
	ids := make(map[int64]interface{}, len(r.res.InsertedIDs))
	for _, iid := range r.res.InsertedIDs {
		ids[iid.Index] = iid.ID
	}
	return ids
}

// UpsertedIDs returns the identifiers created by upserts, keyed by original
// queue index.
func (r *BulkWriteResult) UpsertedIDs() map[int64]interface{} {
	ids := make(map[int64]interface{}, len(r.res.Upserted))
	for _, up := range r.res.Upserted {
		ids[up.Index] = up.ID
	}
	return ids
}

// Upserted returns the upserted identifiers in the order they were merged.
func (r *BulkWriteResult) Upserted() []UpsertedID {
	ups := make([]UpsertedID, 0, len(r.res.Upserted))
	for _, up := range r.res.Upserted {
		ups = append(ups, UpsertedID{Index: up.Index, ID: up.ID})
	}
	return ups
}

// HasWriteErrors reports whether any write error was recorded.
func (r *BulkWriteResult) HasWriteErrors() bool { return len(r.res.WriteErrors) > 0 }

// WriteErrorCount returns the number of recorded write errors.
func (r *BulkWriteResult) WriteErrorCount() int { return len(r.res.WriteErrors) }

// WriteErrorAt returns the write error at position i of the recorded set.
// The second return is false when i is out of range.
func (r *BulkWriteResult) WriteErrorAt(i int) (WriteError, bool) {
	if i < 0 || i >= len(r.res.WriteErrors) {
		return WriteError{}, false
	}
	rwe := r.res.WriteErrors[i]
	return WriteError{Index: rwe.Index, Code: rwe.Code, Message: rwe.ErrMsg, Op: rwe.Op}, true
}

// WriteErrors returns all recorded write errors.
func (r *BulkWriteResult) WriteErrors() WriteErrors {
	return writeErrorsFromResult(r.res.WriteErrors)
}

// WriteConcernError returns a single view over the recorded write concern
// errors, or nil when there were none. When several batches reported one, the
// view carries the first code and details along with the joined messages; the
// originals remain available through WriteConcernErrors.
func (r *BulkWriteResult) WriteConcernError() *WriteConcernError {
	rwces := r.res.WriteConcernErrors
	if len(rwces) == 0 {
		return nil
	}
	if len(rwces) == 1 {
		return &WriteConcernError{Code: rwces[0].Code, Message: rwces[0].ErrMsg, Details: rwces[0].ErrInfo}
	}
	msgs := make([]string, 0, len(rwces))
	for _, rwce := range rwces {
		msgs = append(msgs, rwce.ErrMsg)
	}
	return &WriteConcernError{Code: rwces[0].Code, Message: strings.Join(msgs, ", "), Details: rwces[0].ErrInfo}
}

// WriteConcernErrors returns every write concern error exactly as reported.
func (r *BulkWriteResult) WriteConcernErrors() []WriteConcernError {
	return writeConcernErrorsFromResult(r.res.WriteConcernErrors)
}

// LastOperationTime returns the greatest operation time observed across the
// executed batches, or nil when no response carried one.
func (r *BulkWriteResult) LastOperationTime() *OperationTime {
	if r.res.LastOp == nil {
		return nil
	}
	return &OperationTime{TS: r.res.LastOp.TS, T: r.res.LastOp.T}
}
