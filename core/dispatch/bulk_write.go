// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package dispatch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/core/result"
)

// BulkWrite drains the batch queue strictly in order, one batch in flight
// at a time, merging every response into res. It stops early when a merged
// response leaves write errors or write concern errors in res, or when the
// cumulative result reaches top-level failure; in those cases the evidence
// is in res and the return is nil. A non-nil return means dispatch itself
// failed before a server write result was produced, and res holds whatever
// was merged before the failure.
func BulkWrite(
	ctx context.Context,
	dispatcher Dispatcher,
	ns command.Namespace,
	batches []*Batch,
	res *result.BulkWrite,
	opts Options,
) error {
	for _, batch := range batches {
		if batch.Count() == 0 {
			continue
		}

		raw, err := dispatcher.Dispatch(ctx, batch, ns, batchOptions(batch, opts))
		if err != nil {
			return errors.Wrapf(err, "dispatch of %s batch starting at operation %d failed",
				batch.Kind, batch.ZeroIndex())
		}
		if len(raw) == 0 {
			return errors.Wrapf(command.ErrNoCommandResponse, "dispatch of %s batch starting at operation %d",
				batch.Kind, batch.ZeroIndex())
		}

		resp, err := result.NewWrite(raw)
		if err != nil {
			return command.NewCommandResponseError(
				fmt.Sprintf("malformed response for %s batch starting at operation %d", batch.Kind, batch.ZeroIndex()),
				err)
		}

		MergeResponse(batch, res, resp)

		if !res.Ok || len(res.WriteErrors) > 0 || len(res.WriteConcernErrors) > 0 {
			return nil
		}
	}

	return nil
}

// batchOptions builds the per-batch execution options: the bulk mode is
// forced, bypassDocumentValidation is stripped unless explicitly true, and
// retryable-write eligibility is cleared for non-retryable batches.
func batchOptions(batch *Batch, opts Options) Options {
	if opts.BypassDocumentValidation != nil && !*opts.BypassDocumentValidation {
		opts.BypassDocumentValidation = nil
	}
	opts.RetryWrite = opts.RetryWrite && batch.CanRetry
	return opts
}
