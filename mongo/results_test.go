// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ephemer/node-mongodb-native/core/result"
)

func TestBulkWriteResultView(t *testing.T) {
	res := result.NewBulkWrite()
	res.NInserted = 2
	res.NMatched = 3
	res.NModified = 1
	res.NRemoved = 4
	res.NUpserted = 1
	res.InsertedIDs = []result.IndexedID{{Index: 0, ID: int32(1)}, {Index: 5, ID: int32(2)}}
	res.Upserted = []result.IndexedID{{Index: 7, ID: "up"}}
	res.WriteErrors = []result.BulkWriteError{
		{Index: 9, Code: 11000, ErrMsg: "duplicate key"},
		{Index: 12, Code: 2, ErrMsg: "bad value"},
	}
	res.LastOp = &result.OpTime{TS: primitive.Timestamp{T: 5, I: 2}, T: 3}

	view := newBulkWriteResult(res)

	require.True(t, view.Ok())
	require.Equal(t, int64(2), view.InsertedCount())
	require.Equal(t, int64(3), view.MatchedCount())
	require.Equal(t, int64(1), view.ModifiedCount())
	require.Equal(t, int64(4), view.DeletedCount())
	require.Equal(t, int64(1), view.UpsertedCount())

	require.Equal(t, map[int64]interface{}{0: int32(1), 5: int32(2)}, view.InsertedIDs())
	require.Equal(t, map[int64]interface{}{7: "up"}, view.UpsertedIDs())
	require.Equal(t, []UpsertedID{{Index: 7, ID: "up"}}, view.Upserted())

	require.True(t, view.HasWriteErrors())
	require.Equal(t, 2, view.WriteErrorCount())

	we, ok := view.WriteErrorAt(1)
	require.True(t, ok)
	require.Equal(t, int64(12), we.Index)

	_, ok = view.WriteErrorAt(2)
	require.False(t, ok)

	ot := view.LastOperationTime()
	require.NotNil(t, ot)
	require.Equal(t, OperationTime{TS: primitive.Timestamp{T: 5, I: 2}, T: 3}, *ot)
}

func TestBulkWriteResultWriteConcernErrorView(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		view := newBulkWriteResult(result.NewBulkWrite())
		require.Nil(t, view.WriteConcernError())
		require.Empty(t, view.WriteConcernErrors())
	})

	t.Run("single", func(t *testing.T) {
		res := result.NewBulkWrite()
		res.WriteConcernErrors = []result.WriteConcernError{{Code: 64, ErrMsg: "timed out"}}

		wce := newBulkWriteResult(res).WriteConcernError()
		require.NotNil(t, wce)
		require.Equal(t, int32(64), wce.Code)
		require.Equal(t, "timed out", wce.Message)
	})

	t.Run("multiple are joined but preserved", func(t *testing.T) {
		raw, err := bson.Marshal(bson.D{{Key: "wtimeout", Value: true}})
		require.NoError(t, err)
		details := bson.Raw(raw)

		res := result.NewBulkWrite()
		res.WriteConcernErrors = []result.WriteConcernError{
			{Code: 64, ErrMsg: "timed out", ErrInfo: details},
			{Code: 100, ErrMsg: "cannot satisfy"},
		}

		view := newBulkWriteResult(res)
		wce := view.WriteConcernError()
		require.NotNil(t, wce)
		require.Equal(t, int32(64), wce.Code)
		require.Equal(t, "timed out, cannot satisfy", wce.Message)
		require.Equal(t, details, wce.Details)

		originals := view.WriteConcernErrors()
		require.Len(t, originals, 2)
		require.Equal(t, int32(100), originals[1].Code)
	})
}
