// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"unsafe"

	"v.io/v23/verror"
	"v.io/x/xproc/xerrors"
)

// Shared is a pointer whose *identity* (not just its value) is preserved
// across a single serialize/deserialize round trip. Two Shared[T] values
// wrapping the same *T serialize as one payload plus one back-reference,
// and deserialize back into two pointer-equal values.
type Shared[T any] struct {
	ptr *T
}

// NewShared wraps v for shared transmission. All copies derived from the
// same NewShared call (e.g. by copying the Shared[T] value, which is cheap
// since it's just a pointer) are "the same" reference for cycle-table
// purposes.
func NewShared[T any](v T) Shared[T] {
	return Shared[T]{ptr: &v}
}

// Get returns the pointer to the shared value.
func (s Shared[T]) Get() *T { return s.ptr }

// PutShared writes v's identity-preserving encoding: cycle id 0 followed
// by the payload on first sighting in this message, or the nonzero id of
// an earlier sighting.
func PutShared[T any](s *Serializer, v Shared[T], put func(*Serializer, T) error) error {
	id, first := s.LearnCyclic(uintptr(unsafe.Pointer(v.ptr)))
	if first {
		PutLen(s, 0)
		return put(s, *v.ptr)
	}
	PutLen(s, id)
	return nil
}

// GetShared reads a Shared[T] encoded by PutShared, reconstructing shared
// identity via the deserializer's cyclic table.
func GetShared[T any](d *Deserializer, get func(*Deserializer) (T, error)) (Shared[T], error) {
	id, err := GetLen(d)
	if err != nil {
		return Shared[T]{}, err
	}
	if id == 0 {
		v, err := get(d)
		if err != nil {
			return Shared[T]{}, err
		}
		ptr := &v
		d.learnCyclic(ptr)
		return Shared[T]{ptr: ptr}, nil
	}
	any_, err := d.getCyclic(id)
	if err != nil {
		return Shared[T]{}, err
	}
	ptr, ok := any_.(*T)
	if !ok {
		return Shared[T]{}, verror.New(xerrors.ErrInvalidData, nil, "cyclic id type mismatch")
	}
	return Shared[T]{ptr: ptr}, nil
}
