// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import (
	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/core/result"
)

// MergeResponse folds one batch's normalized server response into the
// cumulative result. Count fields only grow while the cumulative result is
// still ok; after a top-level failure only error records accumulate.
func MergeResponse(batch *Batch, res *result.BulkWrite, resp result.Write) {
	if resp.OK != 1 {
		// A top-level command failure. The first one flips the cumulative
		// result into terminal failure and pins the batch's first operation
		// as the offending one; later ones change nothing.
		if !res.Ok {
			return
		}
		errMsg := resp.ErrMsg
		if errMsg == "" {
			errMsg = command.ErrUnknownCommandFailure.Error()
		}
		res.Ok = false
		res.WriteErrors = append(res.WriteErrors, result.BulkWriteError{
			Index:  batch.ZeroIndex(),
			Code:   resp.Code,
			ErrMsg: errMsg,
			Op:     batch.Ops[0],
		})
		return
	}

	if resp.OpTime != nil {
		if res.LastOp == nil || res.LastOp.Before(*resp.OpTime) {
			ot := *resp.OpTime
			res.LastOp = &ot
		}
	}

	switch batch.Kind {
	case command.InsertCommand:
		if res.Ok {
			res.NInserted += resp.N
		}
		for i, op := range batch.Ops {
			id, err := op.LookupErr("_id")
			if err != nil {
				// Server-assigned id; nothing to record client-side.
				continue
			}
			var v interface{}
			if err := id.Unmarshal(&v); err != nil {
				continue
			}
			res.InsertedIDs = append(res.InsertedIDs, result.IndexedID{
				Index: batch.OriginalIndexes[i],
				ID:    v,
			})
		}
	case command.DeleteCommand:
		if res.Ok {
			res.NRemoved += resp.N
		}
	case command.UpdateCommand:
		nUpserted := int64(len(resp.Upserted))
		if res.Ok {
			res.NUpserted += nUpserted
			res.NMatched += resp.N - nUpserted
			if resp.NModified != nil {
				// An omitted nModified leaves this batch's modified
				// contribution indeterminate rather than guessed.
				res.NModified += *resp.NModified
			}
		}
		for _, up := range resp.Upserted {
			res.Upserted = append(res.Upserted, result.IndexedID{
				Index: batch.ZeroIndex() + up.Index,
				ID:    up.ID,
			})
		}
	}

	for _, we := range resp.WriteErrors {
		res.WriteErrors = append(res.WriteErrors, result.BulkWriteError{
			Index:  batch.OriginalIndexes[we.Index],
			Code:   we.Code,
			ErrMsg: we.ErrMsg,
			Op:     batch.Ops[we.Index],
		})
	}

	if resp.WriteConcernError != nil {
		res.WriteConcernErrors = append(res.WriteConcernErrors, *resp.WriteConcernError)
	}
}
