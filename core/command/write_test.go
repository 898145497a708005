// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package command

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ephemer/node-mongodb-native/core/writeconcern"
)

func TestWriteMarshal(t *testing.T) {
	entry, err := DeleteEntry{Filter: bson.D{{Key: "x", Value: int32(1)}}}.Marshal()
	require.NoError(t, err)

	t.Run("minimal", func(t *testing.T) {
		doc, err := Write{
			Kind:    DeleteCommand,
			NS:      NewNamespace("foo", "bar"),
			Ops:     []bson.Raw{entry},
			Ordered: true,
		}.Marshal()
		require.NoError(t, err)

		require.Equal(t, "delete", doc[0].Key)
		require.Equal(t, "bar", doc[0].Value)
		require.Equal(t, bson.E{Key: "ordered", Value: true}, doc[1])
		require.Equal(t, "deletes", doc[2].Key)
		require.Len(t, doc[2].Value.(bson.A), 1)
	})

	t.Run("write concern and bypass", func(t *testing.T) {
		bypass := true
		doc, err := Write{
			Kind:                     InsertCommand,
			NS:                       NewNamespace("foo", "bar"),
			Ops:                      []bson.Raw{entry},
			WriteConcern:             writeconcern.New(writeconcern.WMajority()),
			BypassDocumentValidation: &bypass,
		}.Marshal()
		require.NoError(t, err)

		require.Equal(t, "writeConcern", doc[2].Key)
		require.Equal(t, bson.D{{Key: "w", Value: "majority"}}, doc[2].Value)
		require.Equal(t, bson.E{Key: "bypassDocumentValidation", Value: true}, doc[3])
		require.Equal(t, "documents", doc[4].Key)
	})

	t.Run("invalid namespace", func(t *testing.T) {
		_, err := Write{Kind: InsertCommand, NS: Namespace{}, Ops: []bson.Raw{entry}}.Marshal()
		require.Error(t, err)
	})

	t.Run("invalid write concern", func(t *testing.T) {
		_, err := Write{
			Kind:         InsertCommand,
			NS:           NewNamespace("foo", "bar"),
			Ops:          []bson.Raw{entry},
			WriteConcern: writeconcern.New(writeconcern.W(0), writeconcern.J(true)),
		}.Marshal()
		require.ErrorIs(t, err, writeconcern.ErrInconsistent)
	})
}

func TestUpdateEntryMarshal(t *testing.T) {
	filter := bson.D{{Key: "x", Value: int32(1)}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "y", Value: int32(2)}}}}

	t.Run("required fields only", func(t *testing.T) {
		raw, err := UpdateEntry{Filter: filter, Update: update, Multi: true}.Marshal()
		require.NoError(t, err)

		elems, err := raw.Elements()
		require.NoError(t, err)
		require.Len(t, elems, 3)
		require.Equal(t, "q", elems[0].Key())
		require.Equal(t, "u", elems[1].Key())
		require.True(t, raw.Lookup("multi").Boolean())

		_, err = raw.LookupErr("upsert")
		require.Error(t, err, "upsert must be omitted when unset")
	})

	t.Run("optional fields", func(t *testing.T) {
		upsert := true
		entry := UpdateEntry{
			Filter:       filter,
			Update:       update,
			Upsert:       &upsert,
			Collation:    bson.D{{Key: "locale", Value: "fr"}},
			ArrayFilters: []interface{}{bson.D{{Key: "elem.score", Value: bson.D{{Key: "$lt", Value: int32(5)}}}}},
		}
		raw, err := entry.Marshal()
		require.NoError(t, err)

		require.False(t, raw.Lookup("multi").Boolean())
		require.True(t, raw.Lookup("upsert").Boolean())
		require.Equal(t, "fr", raw.Lookup("collation", "locale").StringValue())

		filters, err := raw.Lookup("arrayFilters").Array().Values()
		require.NoError(t, err)
		require.Len(t, filters, 1)
	})

	t.Run("explicit false upsert is sent", func(t *testing.T) {
		upsert := false
		raw, err := UpdateEntry{Filter: filter, Update: update, Upsert: &upsert}.Marshal()
		require.NoError(t, err)
		require.False(t, raw.Lookup("upsert").Boolean())
	})
}

func TestDeleteEntryMarshal(t *testing.T) {
	filter := bson.D{{Key: "x", Value: int32(1)}}

	t.Run("single", func(t *testing.T) {
		raw, err := DeleteEntry{Filter: filter}.Marshal()
		require.NoError(t, err)
		require.Equal(t, int32(1), raw.Lookup("limit").Int32())

		_, err = raw.LookupErr("collation")
		require.Error(t, err)
	})

	t.Run("many", func(t *testing.T) {
		raw, err := DeleteEntry{Filter: filter, Many: true}.Marshal()
		require.NoError(t, err)
		require.Equal(t, int32(0), raw.Lookup("limit").Int32())
	})

	t.Run("collation", func(t *testing.T) {
		raw, err := DeleteEntry{Filter: filter, Collation: bson.D{{Key: "locale", Value: "fr"}}}.Marshal()
		require.NoError(t, err)
		require.Equal(t, "fr", raw.Lookup("collation", "locale").StringValue())
	})
}
