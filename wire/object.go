// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

// Object is implemented by every type that hand-writes its own wire
// encoding: entry points, user-defined structs/sums, and the channel
// endpoint types themselves (sending a Receiver migrates its underlying
// handle).
type Object interface {
	MarshalWire(s *Serializer) error
}

// Unmarshaler is implemented on a pointer receiver by types that hand-write
// their own decoding. Kept separate from Object (rather than folded into one
// interface with both methods) because decoding constructs a new value: the
// natural Go shape is "new(T) then populate", which needs a pointer
// receiver, while encoding only ever reads an existing value.
type Unmarshaler interface {
	UnmarshalWire(d *Deserializer) error
}

// ObjectPtr is the generic constraint used by DeserializeNew: PT must be a
// pointer to T and must implement Unmarshaler. This is the standard Go
// generic "pointer method set" trick (also used by protobuf-go's generated
// accessors) for letting a function allocate a T and decode into it without
// reflection.
type ObjectPtr[T any] interface {
	*T
	Unmarshaler
}

// DeserializeNew allocates a zero T, decodes into it via PT's UnmarshalWire,
// and returns the populated value.
func DeserializeNew[T any, PT ObjectPtr[T]](d *Deserializer) (T, error) {
	var v T
	if err := PT(&v).UnmarshalWire(d); err != nil {
		return v, err
	}
	return v, nil
}
