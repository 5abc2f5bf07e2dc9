// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wire implements xproc's self-describing serialization format:
// an append-only byte buffer plus an ordered sidecar list of OS handles,
// with extensions for cyclic/shared references, boxed polymorphic values,
// lazily-deserialized payloads, and static references.
//
// There is no code generator: a type becomes transmissible by hand-writing
// MarshalWire/UnmarshalWire methods that call the Put*/Get* functions in
// this package, field by field.
package wire

import (
	"bytes"

	"v.io/x/xproc/handle"
)

// Serializer accumulates a message's byte payload and handle sidecar.
//
// DrainHandles may be called at most once; further AddHandle calls after
// that panic (a programming error, not a wire condition).
type Serializer struct {
	buf       bytes.Buffer
	handles   []handle.Raw
	drained   bool
	cyclicIDs map[uintptr]int
}

// NewSerializer returns an empty Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// WriteRaw appends b verbatim to the byte payload.
func (s *Serializer) WriteRaw(b []byte) {
	s.buf.Write(b)
}

// AddHandle appends raw to the handle sidecar and returns its zero-based
// index, which the caller embeds in the byte stream.
func (s *Serializer) AddHandle(raw handle.Raw) int {
	if s.drained {
		panic("wire: AddHandle called after DrainHandles")
	}
	idx := len(s.handles)
	s.handles = append(s.handles, raw)
	return idx
}

// DrainHandles consumes and returns the handle sidecar. Calling it twice on
// the same Serializer is a programming error.
func (s *Serializer) DrainHandles() []handle.Raw {
	if s.drained {
		panic("wire: DrainHandles called twice")
	}
	s.drained = true
	h := s.handles
	s.handles = nil
	return h
}

// LearnCyclic assigns a 1-based identity to ptr the first time it is seen
// in this message and reports whether this is that first sighting.
// Callers serializing a Shared[T] use this to decide whether to emit the
// payload (first sighting) or just the back-reference id.
func (s *Serializer) LearnCyclic(ptr uintptr) (id int, first bool) {
	if s.cyclicIDs == nil {
		s.cyclicIDs = make(map[uintptr]int)
	}
	if existing, ok := s.cyclicIDs[ptr]; ok {
		return existing, false
	}
	id = len(s.cyclicIDs) + 1
	s.cyclicIDs[ptr] = id
	return id, true
}

// Bytes returns the accumulated byte payload. It does not drain handles;
// call DrainHandles separately once, after all Put* calls are done.
func (s *Serializer) Bytes() []byte {
	return s.buf.Bytes()
}

// Len reports the number of payload bytes written so far.
func (s *Serializer) Len() int {
	return s.buf.Len()
}
