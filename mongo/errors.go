// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/result"
)

// ErrInvalidArgument classifies caller misuse detected before any batch is
// dispatched. Errors carrying more detail wrap this sentinel.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrEmptySelector is returned when a find stage is started, or a terminal
// operation consumed, without a non-empty selector document.
var ErrEmptySelector = fmt.Errorf("%w: bulk find operation must specify a selector", ErrInvalidArgument)

// ErrEmptyBatch is returned by Execute when no operations were queued.
var ErrEmptyBatch = fmt.Errorf("%w: bulk operation is empty, no operations were added", ErrInvalidArgument)

// ErrBulkExecuted is returned when a Bulk value is executed a second time or
// receives new operations after execution.
var ErrBulkExecuted = errors.New("bulk operations cannot be re-executed")

func newInvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// WriteError is an error from one write operation, identified by the index
// at which the caller queued it.
type WriteError struct {
	Index   int64
	Code    int32
	Message string

	// Op is the operation entry that produced the error, as it was sent to
	// the server.
	Op bson.Raw
}

func (we WriteError) Error() string { return we.Message }

// WriteErrors is a collection of WriteError values from a single execution.
type WriteErrors []WriteError

func (wes WriteErrors) Error() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "write errors: [")
	for idx, we := range wes {
		if idx != 0 {
			fmt.Fprint(&buf, ", ")
		}
		fmt.Fprintf(&buf, "{%s}", we)
	}
	fmt.Fprint(&buf, "]")
	return buf.String()
}

func writeErrorsFromResult(rwes []result.BulkWriteError) WriteErrors {
	wes := make(WriteErrors, 0, len(rwes))
	for _, rwe := range rwes {
		wes = append(wes, WriteError{
			Index:   rwe.Index,
			Code:    rwe.Code,
			Message: rwe.ErrMsg,
			Op:      rwe.Op,
		})
	}
	return wes
}

// WriteConcernError is a write concern failure reported by the server. The
// write itself may have been applied.
type WriteConcernError struct {
	Code    int32
	Message string
	Details bson.Raw
}

func (wce WriteConcernError) Error() string { return wce.Message }

func writeConcernErrorsFromResult(rwces []result.WriteConcernError) []WriteConcernError {
	wces := make([]WriteConcernError, 0, len(rwces))
	for _, rwce := range rwces {
		wces = append(wces, WriteConcernError{
			Code:    rwce.Code,
			Message: rwce.ErrMsg,
			Details: rwce.ErrInfo,
		})
	}
	return wces
}

// BulkWriteException is returned by Execute when the bulk run did not finish
// cleanly. Result always holds the merged partial result accumulated before
// the halt, so successes from earlier batches remain visible.
type BulkWriteException struct {
	WriteErrors        WriteErrors
	WriteConcernErrors []WriteConcernError

	// Result is the partial result at the time execution halted.
	Result *BulkWriteResult

	// Err is set when a batch failed below the server protocol, for example
	// a broken connection. Write errors never populate it.
	Err error
}

func (bwe BulkWriteException) Error() string {
	var causes []string
	if len(bwe.WriteErrors) > 0 {
		causes = append(causes, bwe.WriteErrors.Error())
	}
	for _, wce := range bwe.WriteConcernErrors {
		causes = append(causes, fmt.Sprintf("write concern error: %s (code %d)", wce.Message, wce.Code))
	}
	if bwe.Err != nil {
		causes = append(causes, bwe.Err.Error())
	}
	if len(causes) == 0 {
		return "bulk write exception"
	}
	return "bulk write exception: " + strings.Join(causes, ", ")
}

func (bwe BulkWriteException) Unwrap() error { return bwe.Err }
