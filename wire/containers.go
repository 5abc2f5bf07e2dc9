// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

// PutSlice writes length then each element in order. Every sequential
// container shares this encoding; the receiver picks whatever container
// shape it wants via GetSlice's companion bulk-build helpers.
func PutSlice[T any](s *Serializer, v []T, put func(*Serializer, T) error) error {
	PutLen(s, len(v))
	for _, e := range v {
		if err := put(s, e); err != nil {
			return err
		}
	}
	return nil
}

// GetSlice reads a length-prefixed sequence into a freshly allocated slice.
func GetSlice[T any](d *Deserializer, get func(*Deserializer) (T, error)) ([]T, error) {
	n, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		v, err := get(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// GetSet reads a length-prefixed sequence into a set: bulk-insert into a
// map[T]struct{} rather than a slice.
func GetSet[T comparable](d *Deserializer, get func(*Deserializer) (T, error)) (map[T]struct{}, error) {
	n, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	out := make(map[T]struct{}, n)
	for i := 0; i < n; i++ {
		v, err := get(d)
		if err != nil {
			return nil, err
		}
		out[v] = struct{}{}
	}
	return out, nil
}

// PutSet writes a set's elements in map-iteration order. Order is not
// part of a set's semantics, so the receiver may observe any permutation.
func PutSet[T comparable](s *Serializer, v map[T]struct{}, put func(*Serializer, T) error) error {
	PutLen(s, len(v))
	for e := range v {
		if err := put(s, e); err != nil {
			return err
		}
	}
	return nil
}

// PutMap writes length then key/value pairs.
func PutMap[K comparable, V any](s *Serializer, m map[K]V, putKey func(*Serializer, K) error, putVal func(*Serializer, V) error) error {
	PutLen(s, len(m))
	for k, v := range m {
		if err := putKey(s, k); err != nil {
			return err
		}
		if err := putVal(s, v); err != nil {
			return err
		}
	}
	return nil
}

// GetMap reads a length-prefixed key/value sequence into a fresh map.
func GetMap[K comparable, V any](d *Deserializer, getKey func(*Deserializer) (K, error), getVal func(*Deserializer) (V, error)) (map[K]V, error) {
	n, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := getKey(d)
		if err != nil {
			return nil, err
		}
		v, err := getVal(d)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// PutArray writes a fixed-size array as the concatenation of its element
// encodings, with no length prefix: the size is part of the type, known
// to both peers.
func PutArray[T any](s *Serializer, v []T, put func(*Serializer, T) error) error {
	for _, e := range v {
		if err := put(s, e); err != nil {
			return err
		}
	}
	return nil
}

// GetArray reads n elements with no length prefix into a freshly allocated
// slice of length n.
func GetArray[T any](d *Deserializer, n int, get func(*Deserializer) (T, error)) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := get(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PutPair and GetPair cover 2-tuples. Larger product types hand-write
// MarshalWire/UnmarshalWire field by field.

func PutPair[A, B any](s *Serializer, a A, b B, putA func(*Serializer, A) error, putB func(*Serializer, B) error) error {
	if err := putA(s, a); err != nil {
		return err
	}
	return putB(s, b)
}

func GetPair[A, B any](d *Deserializer, getA func(*Deserializer) (A, error), getB func(*Deserializer) (B, error)) (A, B, error) {
	a, err := getA(d)
	if err != nil {
		var zb B
		return a, zb, err
	}
	b, err := getB(d)
	return a, b, err
}
