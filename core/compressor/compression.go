// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package compressor provides the pluggable byte transforms a transport
// can apply to shrink payloads before they leave the client and to expand
// responses after they arrive.
package compressor

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
)

// ID identifies a compressor on the wire.
type ID uint8

// The wire identifiers of the supported compressors.
const (
	IDSnappy ID = 1
	IDZlib   ID = 2
)

// DefaultZlibLevel is the zlib compression level used when none is
// specified.
const DefaultZlibLevel = 6

// Compressor is implemented by types that can compress and decompress
// payload bytes.
type Compressor interface {
	CompressBytes(src, dest []byte) ([]byte, error)
	UncompressBytes(src, dest []byte) ([]byte, error)
	ID() ID
	Name() string
}

// CreateSnappy creates a snappy compressor.
func CreateSnappy() Compressor {
	return &SnappyCompressor{}
}

// SnappyCompressor uses the snappy method to compress data.
type SnappyCompressor struct{}

// CompressBytes compresses src into dest.
func (s *SnappyCompressor) CompressBytes(src, dest []byte) ([]byte, error) {
	dest = dest[:0]
	dest = snappy.Encode(dest, src)
	return dest, nil
}

// UncompressBytes decompresses src into dest.
func (s *SnappyCompressor) UncompressBytes(src, dest []byte) ([]byte, error) {
	dest, err := snappy.Decode(dest, src)
	if err != nil {
		return dest, err
	}

	return dest, nil
}

// ID returns the snappy wire identifier.
func (s *SnappyCompressor) ID() ID { return IDSnappy }

// Name returns the compressor name.
func (s *SnappyCompressor) Name() string { return "snappy" }

// ZlibCompressor uses the zlib method to compress data.
type ZlibCompressor struct {
	level      int
	zlibWriter *zlib.Writer
}

// CreateZlib creates a zlib compressor using the given level. A level less
// than zero means the default level.
func CreateZlib(level int) (Compressor, error) {
	if level < 0 {
		level = DefaultZlibLevel
	}

	var compressor ZlibCompressor
	compressor.level = level

	var err error
	compressor.zlibWriter, err = zlib.NewWriterLevel(nil, compressor.level)
	if err != nil {
		return nil, err
	}

	return &compressor, nil
}

// CompressBytes compresses src into dest.
func (z *ZlibCompressor) CompressBytes(src, dest []byte) ([]byte, error) {
	sink := &writer{buf: dest[:0]}
	z.zlibWriter.Reset(sink)

	_, err := z.zlibWriter.Write(src)
	if err != nil {
		_ = z.zlibWriter.Close()
		return dest, err
	}

	err = z.zlibWriter.Close()
	if err != nil {
		return dest, err
	}
	return sink.buf, nil
}

// UncompressBytes decompresses src into dest.
func (z *ZlibCompressor) UncompressBytes(src, dest []byte) ([]byte, error) {
	reader := bytes.NewReader(src)
	zlibReader, err := zlib.NewReader(reader)
	if err != nil {
		return dest, err
	}
	defer func() {
		_ = zlibReader.Close()
	}()

	dest = dest[:0]
	out := bytes.NewBuffer(dest)
	_, err = io.Copy(out, zlibReader)
	if err != nil {
		return dest, err
	}

	return out.Bytes(), nil
}

// ID returns the zlib wire identifier.
func (z *ZlibCompressor) ID() ID { return IDZlib }

// Name returns the compressor name.
func (z *ZlibCompressor) Name() string { return "zlib" }

// writer is an in-memory grow-only sink for the zlib writer.
type writer struct {
	buf []byte
}

func (w *writer) Write(p []byte) (int, error) {
	index := len(w.buf)
	if len(p) > cap(w.buf)-index {
		buf := make([]byte, 2*cap(w.buf)+len(p))
		copy(buf, w.buf)
		w.buf = buf[:index]
	}

	w.buf = w.buf[:index+len(p)]
	copy(w.buf[index:], p)
	return len(p), nil
}
