// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"reflect"

	"v.io/v23/verror"
	"v.io/x/xproc/xerrors"
)

// Boxed carries a polymorphic Object value across the wire. The concrete
// type's registered name is written ahead of its payload and looked up in
// a same-binary registry on the way back in, the same technique
// encoding/gob's Register uses for interface values.
type Boxed struct {
	Value Object
}

var (
	boxedByName = map[string]reflect.Type{}
	boxedByType = map[reflect.Type]string{}
)

// RegisterBoxed associates name with the concrete type T for Boxed
// transport. Both the parent and child process must call this for every
// concrete type they exchange boxed — trivially true here, since both
// sides are the same re-exec'd binary and registration happens in package
// init().
func RegisterBoxed[T any](name string) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	boxedByName[name] = t
	boxedByType[t] = name
}

// PutBoxed writes v's registered name followed by its own encoding.
func PutBoxed(s *Serializer, v Object) error {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name, ok := boxedByType[t]
	if !ok {
		return verror.New(xerrors.ErrUnknownBoxedType, nil, t.String())
	}
	PutString(s, name)
	return v.MarshalWire(s)
}

// GetBoxed reads a name, looks up the registered concrete type, allocates
// a zero value of it on the heap, and dispatches decoding through its
// UnmarshalWire method. The returned Object is the pointer the value was
// decoded into.
func GetBoxed(d *Deserializer) (Object, error) {
	name, err := GetString(d)
	if err != nil {
		return nil, err
	}
	t, ok := boxedByName[name]
	if !ok {
		return nil, verror.New(xerrors.ErrUnknownBoxedType, nil, name)
	}
	ptr := reflect.New(t)
	um, ok := ptr.Interface().(Unmarshaler)
	if !ok {
		return nil, verror.New(xerrors.ErrInvalidData, nil, "registered boxed type "+name+" has no UnmarshalWire method")
	}
	if err := um.UnmarshalWire(d); err != nil {
		return nil, err
	}
	obj, ok := ptr.Interface().(Object)
	if !ok {
		return nil, verror.New(xerrors.ErrInvalidData, nil, "registered boxed type "+name+" has no MarshalWire method")
	}
	return obj, nil
}
