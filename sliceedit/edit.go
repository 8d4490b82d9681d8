// Copyright 2023 Jesus Ruiz. All rights reserved.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package sliceedit uses rsc.io/edit to fill templates held in byte slices.
// All the edits are queued against the original data and applied in a single
// allocation when the result is requested.
package sliceedit

import (
	"bytes"

	"rsc.io/edit"
)

// A Buffer is a queue of edits to apply to a given byte slice.
type Buffer struct {
	ed  *edit.Buffer
	buf []byte
}

// NewBuffer returns a new buffer to accumulate changes to an initial data slice.
// The returned buffer maintains a reference to the data, so the caller must ensure
// the data is not modified until after the Buffer is done being used.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{
		ed:  edit.NewBuffer(buf),
		buf: buf,
	}
}

// FindAll returns the offsets of all non-overlapping instances of item in buf.
func FindAll(buf []byte, item string) []int {
	found := []int{}

	if len(item) == 0 {
		return found
	}

	offset := 0
	for {
		i := bytes.Index(buf[offset:], []byte(item))
		if i == -1 {
			return found
		}
		found = append(found, offset+i)
		offset += i + len(item)
	}
}

// ReplaceAllString queues the replacement of every instance of old by new,
// returning how many were found.
// Instances of old must not overlap with other edits queued in the buffer.
func (b *Buffer) ReplaceAllString(old string, new string) int {
	hits := FindAll(b.buf, old)
	for _, hit := range hits {
		b.ed.Replace(hit, hit+len(old), new)
	}
	return len(hits)
}

// Bytes returns a new byte slice containing the original data
// with the queued edits applied.
func (b *Buffer) Bytes() []byte {
	return b.ed.Bytes()
}

// String returns a string containing the original data
// with the queued edits applied.
func (b *Buffer) String() string {
	return b.ed.String()
}
