// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package result

import "go.mongodb.org/mongo-driver/bson"

// IndexedID pairs a document id with the caller-order index of the
// operation that produced it.
type IndexedID struct {
	Index int64       `bson:"index"`
	ID    interface{} `bson:"_id"`
}

// BulkWriteError is a single-operation failure inside a cumulative bulk
// write result. The index has already been remapped to the caller's
// original numbering and Op is the operation document the server rejected.
type BulkWriteError struct {
	Index  int64
	Code   int32
	ErrMsg string
	Op     bson.Raw
}

func (bwe BulkWriteError) Error() string { return bwe.ErrMsg }

// BulkWrite is the cumulative result of a bulk write. It starts out
// successful and empty and is mutated batch by batch as responses merge
// into it; once execution completes it is read-only.
type BulkWrite struct {
	Ok                 bool
	NInserted          int64
	NMatched           int64
	NModified          int64
	NRemoved           int64
	NUpserted          int64
	InsertedIDs        []IndexedID
	Upserted           []IndexedID
	WriteErrors        []BulkWriteError
	WriteConcernErrors []WriteConcernError
	LastOp             *OpTime
}

// NewBulkWrite returns an empty cumulative result.
func NewBulkWrite() *BulkWrite {
	return &BulkWrite{Ok: true}
}
