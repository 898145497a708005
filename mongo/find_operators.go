// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"github.com/ephemer/node-mongodb-native/core/command"
	"github.com/ephemer/node-mongodb-native/internal"
)

// FindOperators is the fluent tail of a Bulk.Find chain. Modifiers such as
// Upsert and Collation annotate the pending chain and a terminal operation
// (UpdateOne, Update, ReplaceOne, DeleteOne, Delete) consumes it, appending
// exactly one operation to the bulk queue.
type FindOperators struct {
	bulk *Bulk
}

// modify returns the bulk's pending chain, starting an empty one when no
// chain is open. A chain started this way has no selector and any terminal
// operation on it fails until Find supplies one.
func (fo *FindOperators) modify() *pendingOp {
	if fo.bulk.pending == nil {
		fo.bulk.pending = &pendingOp{}
	}
	return fo.bulk.pending
}

// take consumes the pending chain for a terminal operation.
func (fo *FindOperators) take() (*pendingOp, error) {
	p := fo.bulk.pending
	fo.bulk.pending = nil
	if p == nil || p.selector == nil {
		return nil, ErrEmptySelector
	}
	return p, nil
}

// Upsert marks the chain's update or replace to insert a new document when
// the selector matches nothing.
func (fo *FindOperators) Upsert() *FindOperators {
	fo.modify().upsert = true
	return fo
}

// Collation sets the collation for the chain's operation.
func (fo *FindOperators) Collation(collation *Collation) *FindOperators {
	fo.modify().collation = collation
	return fo
}

// ArrayFilters sets the array filters for the chain's update.
func (fo *FindOperators) ArrayFilters(filters ...interface{}) *FindOperators {
	p := fo.modify()
	p.arrayFilters = filters
	p.arrayFiltersSet = true
	return fo
}

// UpdateOne queues an update of at most one matched document. The update
// document must consist of update operators.
func (fo *FindOperators) UpdateOne(update interface{}) error {
	return fo.update(update, false)
}

// Update queues an update of every matched document. The update document
// must consist of update operators.
func (fo *FindOperators) Update(update interface{}) error {
	return fo.update(update, true)
}

// UpdateMany is an alias for Update.
func (fo *FindOperators) UpdateMany(update interface{}) error {
	return fo.update(update, true)
}

// ReplaceOne queues a replacement of at most one matched document. The
// replacement must not contain update operators.
func (fo *FindOperators) ReplaceOne(replacement interface{}) error {
	p, err := fo.take()
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

	entry := command.UpdateEntry{Filter: p.selector, Update: replaceDoc, Multi: false}
	if p.upsert {
		upsert := true
		entry.Upsert = &upsert
	}
	if p.collation != nil {
		entry.Collation = p.collation
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal update entry")
	}
	return fo.bulk.append(command.UpdateCommand, op, true)
}

// DeleteOne queues a delete of at most one matched document.
func (fo *FindOperators) DeleteOne() error {
	return fo.delete(false)
}

// Delete queues a delete of every matched document.
func (fo *FindOperators) Delete() error {
	return fo.delete(true)
}

// DeleteMany is an alias for Delete.
func (fo *FindOperators) DeleteMany() error {
	return fo.delete(true)
}

func (fo *FindOperators) update(update interface{}, multi bool) error {
	p, err := fo.take()
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

	entry := command.UpdateEntry{Filter: p.selector, Update: updateDoc, Multi: multi}
	if p.upsert {
		upsert := true
		entry.Upsert = &upsert
	}
	if p.collation != nil {
		entry.Collation = p.collation
	}
	if p.arrayFiltersSet {
		entry.ArrayFilters = p.arrayFilters
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal update entry")
	}
	return fo.bulk.append(command.UpdateCommand, op, !multi)
}

func (fo *FindOperators) delete(many bool) error {
	p, err := fo.take()
	if err != nil {
		return err
	}
	if p.arrayFiltersSet {
		return newInvalidArgument("array filters cannot be applied to a delete")
	}

	entry := command.DeleteEntry{Filter: p.selector, Many: many}
	if p.collation != nil {
		entry.Collation = p.collation
	}

	op, err := entry.Marshal()
	if err != nil {
		return internal.WrapError(err, "unable to marshal delete entry")
	}
	return fo.bulk.append(command.DeleteCommand, op, !many)
}
