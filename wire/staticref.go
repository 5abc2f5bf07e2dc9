// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"v.io/v23/verror"
	"v.io/x/xproc/xerrors"
)

// StaticRef is a serializable proxy for a reference to a process-lifetime
// constant. It is keyed by a registered name, resolved against a
// same-binary registry populated at init() time — sound because both
// peers are the same build of the same binary.
type StaticRef[T any] struct {
	name string
}

var staticRegistry = map[string]any{}

// RegisterStatic associates name with v for StaticRef transport. Call from
// an init() function so both parent and child register the same values
// before any bootstrap traffic is decoded.
func RegisterStatic[T any](name string, v T) {
	staticRegistry[name] = v
}

// NewStaticRef returns a StaticRef for a name already registered via
// RegisterStatic. Panics if name was never registered — a programming
// error, since it means this binary would be unable to deserialize its own
// reference on the peer side either.
func NewStaticRef[T any](name string) StaticRef[T] {
	if _, ok := staticRegistry[name]; !ok {
		panic("wire: StaticRef name not registered: " + name)
	}
	return StaticRef[T]{name: name}
}

// Get resolves the static value.
func (r StaticRef[T]) Get() T {
	return staticRegistry[r.name].(T)
}

// PutStaticRef writes the registered name.
func PutStaticRef[T any](s *Serializer, r StaticRef[T]) error {
	PutString(s, r.name)
	return nil
}

// GetStaticRef reads a name and resolves it against the local registry.
func GetStaticRef[T any](d *Deserializer) (StaticRef[T], error) {
	name, err := GetString(d)
	if err != nil {
		return StaticRef[T]{}, err
	}
	if _, ok := staticRegistry[name]; !ok {
		return StaticRef[T]{}, verror.New(xerrors.ErrInvalidData, nil, "unregistered static ref: "+name)
	}
	return StaticRef[T]{name: name}, nil
}
