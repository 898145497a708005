// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

// Collation allows users to specify language-specific rules for string
// comparison, such as rules for lettercase and accent marks.
type Collation struct {
	Locale          string `bson:"locale,omitempty"`
	CaseLevel       bool   `bson:"caseLevel,omitempty"`
	CaseFirst       string `bson:"caseFirst,omitempty"`
	Strength        int    `bson:"strength,omitempty"`
	NumericOrdering bool   `bson:"numericOrdering,omitempty"`
	Alternate       string `bson:"alternate,omitempty"`
	MaxVariable     string `bson:"maxVariable,omitempty"`
	Normalization   bool   `bson:"normalization,omitempty"`
	Backwards       bool   `bson:"backwards,omitempty"`
}

// WriteModel is the interface satisfied by models that can be queued on a
// Bulk through Raw.
type WriteModel interface {
	writeModel()
}

// InsertOneModel inserts a single document.
type InsertOneModel struct {
	Document interface{}
}

func (InsertOneModel) writeModel() {}

// UpdateModel holds the fields shared by update and replace models.
type UpdateModel struct {
	Collation *Collation

	Upsert bool
	// UpsertSet reports whether Upsert was set explicitly. The upsert flag is
	// only sent to the server when it is true.
	UpsertSet bool
}

// UpdateOneModel updates at most one document matching the filter.
type UpdateOneModel struct {
	Filter interface{}

	// Update must contain only update operators.
	Update interface{}

	ArrayFilters    []interface{}
	ArrayFiltersSet bool

	UpdateModel
}

func (UpdateOneModel) writeModel() {}

// UpdateManyModel updates every document matching the filter.
type UpdateManyModel struct {
	Filter interface{}

	// Update must contain only update operators.
	Update interface{}

	ArrayFilters    []interface{}
	ArrayFiltersSet bool

	UpdateModel
}

func (UpdateManyModel) writeModel() {}

// ReplaceOneModel replaces at most one document matching the filter.
type ReplaceOneModel struct {
	Filter interface{}

	// Replacement must not contain update operators.
	Replacement interface{}

	UpdateModel
}

func (ReplaceOneModel) writeModel() {}

// DeleteOneModel deletes at most one document matching the filter.
type DeleteOneModel struct {
	Filter    interface{}
	Collation *Collation
}

func (DeleteOneModel) writeModel() {}

// DeleteManyModel deletes every document matching the filter.
type DeleteManyModel struct {
	Filter    interface{}
	Collation *Collation
}

func (DeleteManyModel) writeModel() {}
