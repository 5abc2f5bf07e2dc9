// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

// PutOption writes a one-byte presence tag then, if present, the value.
func PutOption[T any](s *Serializer, v *T, put func(*Serializer, T) error) error {
	PutBool(s, v != nil)
	if v == nil {
		return nil
	}
	return put(s, *v)
}

// GetOption reads an Option<T> encoded by PutOption, returning a nil
// pointer for the absent case.
func GetOption[T any](d *Deserializer, get func(*Deserializer) (T, error)) (*T, error) {
	present, err := GetBool(d)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := get(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// TaggedResult is a wire-level ok-or-error sum: exactly one of Ok or Err
// is meaningful, selected by the boolean tag.
type TaggedResult[T, E any] struct {
	IsOk bool
	Ok   T
	Err  E
}

// PutResult writes a TaggedResult: one byte (1 = Ok, 0 = Err) then the
// selected branch.
func PutResult[T, E any](s *Serializer, r TaggedResult[T, E], putOk func(*Serializer, T) error, putErr func(*Serializer, E) error) error {
	PutBool(s, r.IsOk)
	if r.IsOk {
		return putOk(s, r.Ok)
	}
	return putErr(s, r.Err)
}

// GetResult reads a TaggedResult encoded by PutResult.
func GetResult[T, E any](d *Deserializer, getOk func(*Deserializer) (T, error), getErr func(*Deserializer) (E, error)) (TaggedResult[T, E], error) {
	var r TaggedResult[T, E]
	isOk, err := GetBool(d)
	if err != nil {
		return r, err
	}
	r.IsOk = isOk
	if isOk {
		r.Ok, err = getOk(d)
	} else {
		r.Err, err = getErr(d)
	}
	return r, err
}
