// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/core/result"
)

// scriptedDispatcher replays one outcome per dispatched batch and records
// what it was asked to send.
type scriptedDispatcher struct {
	t         *testing.T
	responses []interface{}
	errs      []error

	batches []*Batch
	opts    []Options
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, batch *Batch, _ command.Namespace, opts Options) (bson.Raw, error) {
	i := len(d.batches)
	d.batches = append(d.batches, batch)
	d.opts = append(d.opts, opts)
	require.Less(d.t, i, len(d.responses), "unexpected dispatch")
	if d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return mustRaw(d.t, d.responses[i]), nil
}

func newScripted(t *testing.T, outcomes ...interface{}) *scriptedDispatcher {
	d := &scriptedDispatcher{t: t}
	for _, out := range outcomes {
		if err, ok := out.(error); ok {
			d.responses = append(d.responses, nil)
			d.errs = append(d.errs, err)
			continue
		}
		d.responses = append(d.responses, out)
		d.errs = append(d.errs, nil)
	}
	return d
}

var testNS = command.Namespace{DB: "foo", Collection: "bar"}

func TestBulkWriteMergesAllBatches(t *testing.T) {
	insert := testBatch(t, command.InsertCommand, []int64{0, 1},
		bson.D{{Key: "_id", Value: int32(1)}},
		bson.D{{Key: "_id", Value: int32(2)}},
	)
	update := testBatch(t, command.UpdateCommand, []int64{2}, bson.D{{Key: "q", Value: bson.D{}}})

	d := newScripted(t,
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 2}},
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}},
	)

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{insert, update}, res, Options{Ordered: true})
	require.NoError(t, err)

	require.Len(t, d.batches, 2)
	require.True(t, res.Ok)
	require.Equal(t, int64(2), res.NInserted)
	require.Equal(t, int64(1), res.NMatched)
	require.Equal(t, int64(1), res.NModified)
}

func TestBulkWriteHaltsOnWriteError(t *testing.T) {
	first := testBatch(t, command.InsertCommand, []int64{0}, bson.D{{Key: "_id", Value: int32(1)}})
	second := testBatch(t, command.InsertCommand, []int64{1}, bson.D{{Key: "_id", Value: int32(2)}})

	d := newScripted(t,
		bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 0},
			{Key: "writeErrors", Value: bson.A{
				bson.D{{Key: "index", Value: 0}, {Key: "code", Value: 11000}, {Key: "errmsg", Value: "duplicate key"}},
			}},
		},
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
	)

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{first, second}, res, Options{Ordered: true})
	require.NoError(t, err)

	require.Len(t, d.batches, 1, "second batch must not be dispatched")
	require.Len(t, res.WriteErrors, 1)
	require.Equal(t, int64(0), res.WriteErrors[0].Index)
}

func TestBulkWriteHaltsOnWriteConcernError(t *testing.T) {
	first := testBatch(t, command.InsertCommand, []int64{0}, bson.D{{Key: "_id", Value: int32(1)}})
	second := testBatch(t, command.DeleteCommand, []int64{1}, bson.D{{Key: "q", Value: bson.D{}}})

	d := newScripted(t,
		bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 1},
			{Key: "writeConcernError", Value: bson.D{
				{Key: "code", Value: 64},
				{Key: "errmsg", Value: "waiting for replication timed out"},
			}},
		},
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
	)

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{first, second}, res, Options{})
	require.NoError(t, err)

	require.Len(t, d.batches, 1)
	require.Equal(t, int64(1), res.NInserted, "successes before the halt stay merged")
	require.Len(t, res.WriteConcernErrors, 1)
}

func TestBulkWriteHaltsOnTopLevelFailure(t *testing.T) {
	first := testBatch(t, command.UpdateCommand, []int64{5}, bson.D{{Key: "q", Value: bson.D{}}})
	second := testBatch(t, command.UpdateCommand, []int64{6}, bson.D{{Key: "q", Value: bson.D{}}})

	d := newScripted(t,
		bson.D{{Key: "ok", Value: 0}, {Key: "code", Value: 11600}, {Key: "errmsg", Value: "interrupted at shutdown"}},
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
	)

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{first, second}, res, Options{Ordered: true})
	require.NoError(t, err)

	require.Len(t, d.batches, 1)
	require.False(t, res.Ok)
	require.Len(t, res.WriteErrors, 1)
	require.Equal(t, int64(5), res.WriteErrors[0].Index)
}

func TestBulkWriteTransportError(t *testing.T) {
	first := testBatch(t, command.InsertCommand, []int64{0}, bson.D{{Key: "_id", Value: int32(1)}})
	second := testBatch(t, command.InsertCommand, []int64{1}, bson.D{{Key: "_id", Value: int32(2)}})
	third := testBatch(t, command.InsertCommand, []int64{2}, bson.D{{Key: "_id", Value: int32(3)}})

	d := newScripted(t,
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
		errors.New("connection reset"),
		bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
	)

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{first, second, third}, res, Options{Ordered: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")

	require.Len(t, d.batches, 2, "dispatch stops at the failed batch")
	require.Equal(t, int64(1), res.NInserted, "first batch's merge survives")
}

func TestBulkWriteSkipsEmptyBatches(t *testing.T) {
	empty := newBatch(command.InsertCommand)
	full := testBatch(t, command.InsertCommand, []int64{0}, bson.D{{Key: "_id", Value: int32(1)}})

	d := newScripted(t, bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})

	res := result.NewBulkWrite()
	err := BulkWrite(context.Background(), d, testNS, []*Batch{empty, full}, res, Options{})
	require.NoError(t, err)
	require.Len(t, d.batches, 1)
	require.Equal(t, full, d.batches[0])
}

func TestBatchOptions(t *testing.T) {
	bTrue, bFalse := true, false

	t.Run("bypass stripped unless true", func(t *testing.T) {
		batch := newBatch(command.InsertCommand)

		opts := batchOptions(batch, Options{BypassDocumentValidation: &bFalse})
		require.Nil(t, opts.BypassDocumentValidation)

		opts = batchOptions(batch, Options{BypassDocumentValidation: &bTrue})
		require.NotNil(t, opts.BypassDocumentValidation)
		require.True(t, *opts.BypassDocumentValidation)

		opts = batchOptions(batch, Options{})
		require.Nil(t, opts.BypassDocumentValidation)
	})

	t.Run("retry cleared for non-retryable batches", func(t *testing.T) {
		retryable := newBatch(command.UpdateCommand)
		nonRetryable := newBatch(command.UpdateCommand)
		nonRetryable.append(rawOfSize(10), 0, false, 0)

		require.True(t, batchOptions(retryable, Options{RetryWrite: true}).RetryWrite)
		require.False(t, batchOptions(nonRetryable, Options{RetryWrite: true}).RetryWrite)
		require.False(t, batchOptions(retryable, Options{RetryWrite: false}).RetryWrite)
	})
}
