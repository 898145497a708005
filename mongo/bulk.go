// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/core/compressor"
	"github.com/ephemer/node-mongodb-native/core/dispatch"
	"github.com/ephemer/node-mongodb-native/core/result"
	"github.com/ephemer/node-mongodb-native/core/writeconcern"
	"github.com/ephemer/node-mongodb-native/internal"
)

// Bulk queues write operations against one namespace and executes them as a
// series of single-kind batches. Operations are queued through Insert, the
// Find fluent chain, or Raw, and dispatched by Execute. A Bulk executes at
// most once and is not safe for concurrent use.
type Bulk struct {
	ns         command.Namespace
	dispatcher dispatch.Dispatcher
	acc        *dispatch.Accumulator

	wc                       *writeconcern.WriteConcern
	bypassDocumentValidation *bool
	retryWrites              bool
	comp                     compressor.Compressor
	forceServerObjectID      bool

	// nOps is the next caller-order index; pending holds the selector and
	// modifiers of a find chain awaiting its terminal operation.
	nOps     int64
	pending  *pendingOp
	executed bool

	res *result.BulkWrite
}

// BulkOption configures a Bulk at construction.
type BulkOption func(*Bulk)

// WithWriteConcern attaches a write concern to every dispatched batch.
func WithWriteConcern(wc *writeconcern.WriteConcern) BulkOption {
	return func(b *Bulk) { b.wc = wc }
}

// WithBypassDocumentValidation sets bypassDocumentValidation on dispatched
// batches. The flag is only sent when true.
func WithBypassDocumentValidation(bypass bool) BulkOption {
	return func(b *Bulk) { b.bypassDocumentValidation = &bypass }
}

// WithRetryWrites marks batches as retryable where their operations permit.
func WithRetryWrites(retry bool) BulkOption {
	return func(b *Bulk) { b.retryWrites = retry }
}

// WithCompressor compresses dispatched batches with the given compressor.
func WithCompressor(comp compressor.Compressor) BulkOption {
	return func(b *Bulk) { b.comp = comp }
}

// WithForceServerObjectID leaves identifier assignment for inserted documents
// to the server instead of generating one client-side.
func WithForceServerObjectID(force bool) BulkOption {
	return func(b *Bulk) { b.forceServerObjectID = force }
}

// NewOrderedBulk returns a Bulk that dispatches batches strictly in the order
// operations were queued, rolling to a new batch on every kind change, and
// halts at the first error.
func NewOrderedBulk(ns command.Namespace, d dispatch.Dispatcher, policy dispatch.SizePolicy, opts ...BulkOption) *Bulk {
	return newBulk(ns, d, policy, true, opts...)
}

// NewUnorderedBulk returns a Bulk that groups operations per kind so
// interleaved kinds still pack into full batches. Batches themselves are
// still dispatched one at a time.
func NewUnorderedBulk(ns command.Namespace, d dispatch.Dispatcher, policy dispatch.SizePolicy, opts ...BulkOption) *Bulk {
	return newBulk(ns, d, policy, false, opts...)
}

func newBulk(ns command.Namespace, d dispatch.Dispatcher, policy dispatch.SizePolicy, ordered bool, opts ...BulkOption) *Bulk {
	b := &Bulk{
		ns:         ns,
		dispatcher: d,
		acc:        dispatch.NewAccumulator(policy, ordered),
		res:        result.NewBulkWrite(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ordered reports whether the Bulk executes in ordered mode.
func (b *Bulk) Ordered() bool { return b.acc.Ordered() }

// Insert queues an insert of the given document. Unless server-side
// identifier assignment was requested, a document without an _id field gets
// an ObjectID generated here so the identifier can be reported in the result.
func (b *Bulk) Insert(document interface{}) error {
	raw, err := marshalDocument(document)
	if err != nil {
		return err
	}
	if !b.forceServerObjectID {
		raw, err = ensureID(raw)
		if err != nil {
			return err
		}
	}
	return b.append(command.InsertCommand, raw, true)
}

// Find starts a fluent chain for update and delete operations matching the
// selector. Starting a new chain before the previous one was completed by a
// terminal operation discards the unfinished chain.
func (b *Bulk) Find(selector interface{}) (*FindOperators, error) {
	if b.executed {
		return nil, ErrBulkExecuted
	}
	if selector == nil {
		return nil, ErrEmptySelector
	}
	raw, err := marshalDocument(selector)
	if err != nil {
		return nil, err
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, internal.WrapError(err, "invalid selector document")
	}
	if len(elems) == 0 {
		return nil, ErrEmptySelector
	}

	b.pending = &pendingOp{selector: raw}
	return &FindOperators{bulk: b}, nil
}

// Raw queues a single fully described write model, validating it the same
// way the equivalent fluent call would.
func (b *Bulk) Raw(model WriteModel) error {
	switch m := model.(type) {
	case InsertOneModel:
		return b.Insert(m.Document)
	case *InsertOneModel:
		return b.Insert(m.Document)
	case UpdateOneModel:
		return b.rawUpdate(m.Filter, m.Update, false, m.ArrayFilters, m.ArrayFiltersSet, m.UpdateModel)
	case *UpdateOneModel:
		return b.rawUpdate(m.Filter, m.Update, false, m.ArrayFilters, m.ArrayFiltersSet, m.UpdateModel)
	case UpdateManyModel:
		return b.rawUpdate(m.Filter, m.Update, true, m.ArrayFilters, m.ArrayFiltersSet, m.UpdateModel)
	case *UpdateManyModel:
		return b.rawUpdate(m.Filter, m.Update, true, m.ArrayFilters, m.ArrayFiltersSet, m.UpdateModel)
	case ReplaceOneModel:
		return b.rawReplace(m.Filter, m.Replacement, m.UpdateModel)
	case *ReplaceOneModel:
		return b.rawReplace(m.Filter, m.Replacement, m.UpdateModel)
	case DeleteOneModel:
		return b.rawDelete(m.Filter, false, m.Collation)
	case *DeleteOneModel:
		return b.rawDelete(m.Filter, false, m.Collation)
	case DeleteManyModel:
		return b.rawDelete(m.Filter, true, m.Collation)
	case *DeleteManyModel:
		return b.rawDelete(m.Filter, true, m.Collation)
	default:
		return newInvalidArgument("unknown write model %T", model)
	}
}

func (b *Bulk) rawUpdate(filter, update interface{}, multi bool, arrayFilters []interface{}, arrayFiltersSet bool, um UpdateModel) error {
	selector, err := marshalSelector(filter)
	if err != nil {
		return err
	}
	updateDoc, err := marshalDocument(update)
	if err != nil {
		return err
	}
	if err := validateUpdateDocument(updateDoc); err != nil {
		return err
	}

	entry := command.UpdateEntry{Filter: selector, Update: updateDoc, Multi: multi}
	if um.UpsertSet {
		upsert := um.Upsert
		entry.Upsert = &upsert
	}
	if um.Collation != nil {
		entry.Collation = um.Collation
	}
	if arrayFiltersSet {
		entry.ArrayFilters = arrayFilters
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal update entry")
	}
	return b.append(command.UpdateCommand, op, !multi)
}

func (b *Bulk) rawReplace(filter, replacement interface{}, um UpdateModel) error {
	selector, err := marshalSelector(filter)
	if err != nil {
		return err
	}
	replaceDoc, err := marshalDocument(replacement)
	if err != nil {
		return err
	}
	if err := validateReplaceDocument(replaceDoc); err != nil {
		return err
	}

	entry := command.UpdateEntry{Filter: selector, Update: replaceDoc, Multi: false}
	if um.UpsertSet {
		upsert := um.Upsert
		entry.Upsert = &upsert
	}
	if um.Collation != nil {
		entry.Collation = um.Collation
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal update entry")
	}
	return b.append(command.UpdateCommand, op, true)
}

func (b *Bulk) rawDelete(filter interface{}, many bool, collation *Collation) error {
	selector, err := marshalSelector(filter)
	if err != nil {
		return err
	}

	entry := command.DeleteEntry{Filter: selector, Many: many}
	if collation != nil {
		entry.Collation = collation
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal delete entry")
	}
	return b.append(command.DeleteCommand, op, !many)
}

// Execute dispatches the queued batches and returns the merged result. When
// the run records write errors, write concern errors, or a batch-level
// failure, it returns a BulkWriteException whose Result still carries
// everything merged before the halt.
func (b *Bulk) Execute(ctx context.Context) (*BulkWriteResult, error) {
	if b.executed {
		return nil, ErrBulkExecuted
	}
	if b.nOps == 0 {
		return nil, ErrEmptyBatch
	}
	b.executed = true
	b.pending = nil

	opts := dispatch.Options{
		Ordered:                  b.Ordered(),
		BypassDocumentValidation: b.bypassDocumentValidation,
		RetryWrite:               b.retryWrites,
		Compressor:               b.comp,
	}
	if b.wc != nil {
		opts.WriteConcern = b.wc
	}

	err := dispatch.BulkWrite(ctx, b.dispatcher, b.ns, b.acc.Batches(), b.res, opts)
	resView := newBulkWriteResult(b.res)
	if err != nil {
		return nil, BulkWriteException{
			WriteErrors:        writeErrorsFromResult(b.res.WriteErrors),
			WriteConcernErrors: writeConcernErrorsFromResult(b.res.WriteConcernErrors),
			Result:             resView,
			Err:                err,
		}
	}
	if !b.res.Ok || len(b.res.WriteErrors) > 0 || len(b.res.WriteConcernErrors) > 0 {
		return nil, BulkWriteException{
			WriteErrors:        writeErrorsFromResult(b.res.WriteErrors),
			WriteConcernErrors: writeConcernErrorsFromResult(b.res.WriteConcernErrors),
			Result:             resView,
		}
	}
	return resView, nil
}

func (b *Bulk) append(kind command.WriteCommandKind, op bson.Raw, retryable bool) error {
	if b.executed {
		return ErrBulkExecuted
	}
	if len(op) > b.acc.Policy().MaxDocumentBytes {
		return newInvalidArgument("document is larger than the maximum size %d", b.acc.Policy().MaxDocumentBytes)
	}
	b.acc.Append(kind, op, b.nOps, retryable)
	b.nOps++
	return nil
}

// pendingOp is a find chain between its selector and its terminal operation.
type pendingOp struct {
	selector        bson.Raw
	upsert          bool
	collation       *Collation
	arrayFilters    []interface{}
	arrayFiltersSet bool
}

func marshalDocument(document interface{}) (bson.Raw, error) {
	if document == nil {
		return nil, newInvalidArgument("document cannot be nil")
	}
	raw, err := bson.Marshal(document)
	if err != nil {
		return nil, internal.WrapErrorf(err, "unable to marshal document of type %T", document)
	}
	return bson.Raw(raw), nil
}

func marshalSelector(filter interface{}) (bson.Raw, error) {
	if filter == nil {
		return nil, ErrEmptySelector
	}
	raw, err := marshalDocument(filter)
	if err != nil {
		return nil, err
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, internal.WrapError(err, "invalid selector document")
	}
	if len(elems) == 0 {
		return nil, ErrEmptySelector
	}
	return raw, nil
}

// ensureID returns doc with a generated ObjectID _id prepended when the
// document has none.
func ensureID(doc bson.Raw) (bson.Raw, error) {
	if _, err := doc.LookupErr("_id"); err == nil {
		return doc, nil
	}

	idx, dst := bsoncore.AppendDocumentStart(nil)
	dst = bsoncore.AppendObjectIDElement(dst, "_id", primitive.NewObjectID())
	dst = append(dst, doc[4:len(doc)-1]...)
	dst, err := bsoncore.AppendDocumentEnd(dst, idx)
	if err != nil {
		return nil, internal.WrapError(err, "unable to add _id to document")
	}
	return bson.Raw(dst), nil
}

// validateUpdateDocument enforces that an update document consists solely of
// update operators, so a plain document cannot silently replace every
// matched document.
func validateUpdateDocument(update bson.Raw) error {
	elems, err := update.Elements()
	if err != nil {
		return internal.WrapError(err, "invalid update document")
	}
	if len(elems) == 0 {
		return newInvalidArgument("update document must contain at least one update operator")
	}
	for _, elem := range elems {
		if !strings.HasPrefix(elem.Key(), "$") {
			return newInvalidArgument("update document requires update operators, found key %q", elem.Key())
		}
	}
	return nil
}

// validateReplaceDocument enforces the inverse: a replacement document must
// not contain update operators.
func validateReplaceDocument(replacement bson.Raw) error {
	elems, err := replacement.Elements()
	if err != nil {
		return internal.WrapError(err, "invalid replacement document")
	}
	for _, elem := range elems {
		if strings.HasPrefix(elem.Key(), "$") {
			return newInvalidArgument("replacement document must not contain update operators, found key %q", elem.Key())
		}
	}
	return nil
}
