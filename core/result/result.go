// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package result contains the server response models for write commands.
package result

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upsert is a single upserted document record inside a write result. The
// index is local to the batch that produced it.
type Upsert struct {
	Index int64       `bson:"index"`
	ID    interface{} `bson:"_id"`
}

// WriteError is a non-write concern failure of a single operation inside a
// write result. The index is local to the batch that produced it.
type WriteError struct {
	Index  int64  `bson:"index"`
	Code   int32  `bson:"code"`
	ErrMsg string `bson:"errmsg"`
}

func (we WriteError) Error() string { return we.ErrMsg }

// WriteConcernError is a write concern failure reported on a write result.
type WriteConcernError struct {
	Code    int32    `bson:"code"`
	ErrMsg  string   `bson:"errmsg"`
	ErrInfo bson.Raw `bson:"errInfo"`
}

func (wce WriteConcernError) Error() string { return wce.ErrMsg }

// OpTime is the operation time marker reported on a write result. The
// server reports it either as a raw timestamp value or as a decomposed
// {ts, t} document; both normalize to this type.
type OpTime struct {
	TS primitive.Timestamp `bson:"ts"`
	T  int64               `bson:"t"`
}

// Before reports whether ot is strictly earlier than other. Markers are
// ordered lexicographically on seconds, then ordinal, with equal timestamps
// broken by term.
func (ot OpTime) Before(other OpTime) bool {
	if c := primitive.CompareTimestamp(ot.TS, other.TS); c != 0 {
		return c < 0
	}
	return ot.T < other.T
}

// Write is the normalized form of a server write-result document. Shape
// variance in the raw document (singular vs plural upserted records, an
// omitted nModified, opTime vs lastOp markers) is resolved during decoding
// so that merge logic never sees it.
type Write struct {
	OK                int32
	Code              int32
	ErrMsg            string
	N                 int64
	NModified         *int64
	Upserted          []Upsert
	WriteErrors       []WriteError
	WriteConcernError *WriteConcernError
	OpTime            *OpTime
}

// NewWrite decodes a raw server write-result document into its normalized
// form.
func NewWrite(raw bson.Raw) (Write, error) {
	var res Write

	elems, err := raw.Elements()
	if err != nil {
		return Write{}, fmt.Errorf("invalid write result document: %s", err)
	}

	for _, elem := range elems {
		val := elem.Value()

		switch elem.Key() {
		case "ok":
			n, ok := numericValue(val)
			if !ok {
				return Write{}, fmt.Errorf("invalid type for ok: %s", val.Type)
			}
			res.OK = int32(n)
		case "n":
			n, ok := numericValue(val)
			if !ok {
				return Write{}, fmt.Errorf("invalid type for n: %s", val.Type)
			}
			res.N = n
		case "nModified":
			n, ok := numericValue(val)
			if !ok {
				return Write{}, fmt.Errorf("invalid type for nModified: %s", val.Type)
			}
			res.NModified = &n
		case "code":
			n, ok := numericValue(val)
			if !ok {
				return Write{}, fmt.Errorf("invalid type for code: %s", val.Type)
			}
			res.Code = int32(n)
		case "errmsg":
			msg, ok := val.StringValueOK()
			if !ok {
				return Write{}, fmt.Errorf("invalid type for errmsg: %s", val.Type)
			}
			res.ErrMsg = msg
		case "upserted":
			res.Upserted, err = decodeUpserted(val)
			if err != nil {
				return Write{}, err
			}
		case "writeErrors":
			arr, ok := val.ArrayOK()
			if !ok {
				return Write{}, fmt.Errorf("invalid type for writeErrors: %s", val.Type)
			}
			vals, err := arr.Values()
			if err != nil {
				return Write{}, fmt.Errorf("invalid writeErrors array: %s", err)
			}
			for _, v := range vals {
				doc, ok := v.DocumentOK()
				if !ok {
					return Write{}, fmt.Errorf("invalid type for write error: %s", v.Type)
				}
				var we WriteError
				if err := bson.Unmarshal(doc, &we); err != nil {
					return Write{}, err
				}
				res.WriteErrors = append(res.WriteErrors, we)
			}
		case "writeConcernError":
			doc, ok := val.DocumentOK()
			if !ok {
				return Write{}, fmt.Errorf("invalid type for writeConcernError: %s", val.Type)
			}
			var wce WriteConcernError
			if err := bson.Unmarshal(doc, &wce); err != nil {
				return Write{}, err
			}
			res.WriteConcernError = &wce
		case "opTime", "lastOp":
			ot, err := decodeOpTime(val)
			if err != nil {
				return Write{}, err
			}
			res.OpTime = &ot
		}
	}

	return res, nil
}

// decodeUpserted accepts both response shapes for upserted records: an
// array of {index, _id} documents or a bare {index, _id} document.
func decodeUpserted(val bson.RawValue) ([]Upsert, error) {
	switch val.Type {
	case bsontype.Array:
		vals, err := val.Array().Values()
		if err != nil {
			return nil, fmt.Errorf("invalid upserted array: %s", err)
		}
		upserted := make([]Upsert, 0, len(vals))
		for _, v := range vals {
			doc, ok := v.DocumentOK()
			if !ok {
				return nil, fmt.Errorf("invalid type for upserted record: %s", v.Type)
			}
			var up Upsert
			if err := bson.Unmarshal(doc, &up); err != nil {
				return nil, err
			}
			upserted = append(upserted, up)
		}
		return upserted, nil
	case bsontype.EmbeddedDocument:
		var up Upsert
		if err := bson.Unmarshal(val.Document(), &up); err != nil {
			return nil, err
		}
		return []Upsert{up}, nil
	default:
		return nil, fmt.Errorf("invalid type for upserted: %s", val.Type)
	}
}

// decodeOpTime accepts both marker shapes: a raw timestamp value or a
// decomposed {ts, t} document.
func decodeOpTime(val bson.RawValue) (OpTime, error) {
	switch val.Type {
	case bsontype.Timestamp:
		t, i := val.Timestamp()
		return OpTime{TS: primitive.Timestamp{T: t, I: i}}, nil
	case bsontype.EmbeddedDocument:
		var ot OpTime
		if err := bson.Unmarshal(val.Document(), &ot); err != nil {
			return OpTime{}, err
		}
		return ot, nil
	default:
		return OpTime{}, fmt.Errorf("invalid type for operation time: %s", val.Type)
	}
}

func numericValue(val bson.RawValue) (int64, bool) {
	switch val.Type {
	case bsontype.Int32:
		return int64(val.Int32()), true
	case bsontype.Int64:
		return val.Int64(), true
	case bsontype.Double:
		return int64(val.Double()), true
	default:
		return 0, false
	}
}
