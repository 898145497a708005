// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package command

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/writeconcern"
)

// Write describes one single-kind write command ready for a transport to
// encode: the target namespace, the marshaled operation entries, and the
// command-level flags shared by all three kinds.
type Write struct {
	Kind    WriteCommandKind
	NS      Namespace
	Ops     []bson.Raw
	Ordered bool

	WriteConcern             *writeconcern.WriteConcern
	BypassDocumentValidation *bool
}

// Marshal assembles the full command document. The operation entries land
// under the kind's array key (documents, updates, or deletes).
func (w Write) Marshal() (bson.D, error) {
	if err := w.NS.Validate(); err != nil {
		return nil, err
	}

	doc := bson.D{
		{Key: w.Kind.CommandName(), Value: w.NS.Collection},
		{Key: "ordered", Value: w.Ordered},
	}

	if w.WriteConcern != nil {
		wcDoc, err := w.WriteConcern.MarshalDocument()
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: "writeConcern", Value: wcDoc})
	}
	if w.BypassDocumentValidation != nil {
		doc = append(doc, bson.E{Key: "bypassDocumentValidation", Value: *w.BypassDocumentValidation})
	}

	entries := make(bson.A, 0, len(w.Ops))
	for _, op := range w.Ops {
		entries = append(entries, op)
	}
	doc = append(doc, bson.E{Key: w.Kind.ArrayKey(), Value: entries})

	return doc, nil
}

// UpdateEntry describes one update statement inside an update command. It
// marshals to the {q, u, multi, ...} document the server expects in the
// command's updates array.
type UpdateEntry struct {
	Filter       interface{}
	Update       interface{}
	Multi        bool
	Upsert       *bool
	Collation    interface{}
	ArrayFilters []interface{}
}

// Marshal returns the entry as a BSON document.
func (e UpdateEntry) Marshal() (bson.Raw, error) {
	doc := bson.D{
		{Key: "q", Value: e.Filter},
		{Key: "u", Value: e.Update},
		{Key: "multi", Value: e.Multi},
	}

	if e.Upsert != nil {
		doc = append(doc, bson.E{Key: "upsert", Value: *e.Upsert})
	}
	if e.Collation != nil {
		doc = append(doc, bson.E{Key: "collation", Value: e.Collation})
	}
	if e.ArrayFilters != nil {
		doc = append(doc, bson.E{Key: "arrayFilters", Value: e.ArrayFilters})
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return bson.Raw(raw), nil
}

// DeleteEntry describes one delete statement inside a delete command. It
// marshals to the {q, limit, ...} document the server expects in the
// command's deletes array. A limit of 1 removes at most one document; a
// limit of 0 removes every match.
type DeleteEntry struct {
	Filter    interface{}
	Many      bool
	Collation interface{}
}

// Marshal returns the entry as a BSON document.
func (e DeleteEntry) Marshal() (bson.Raw, error) {
	var limit int32 = 1
	if e.Many {
		limit = 0
	}

	doc := bson.D{
		{Key: "q", Value: e.Filter},
		{Key: "limit", Value: limit},
	}

	if e.Collation != nil {
		doc = append(doc, bson.E{Key: "collation", Value: e.Collation})
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return bson.Raw(raw), nil
}
