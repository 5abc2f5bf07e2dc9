// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import "v.io/x/xproc/handle"

type delayedState int

const (
	delayedHoldsValue delayedState = iota
	delayedHoldsBytes
	delayedConsumed
)

// Delayed defers deserialization of an inner value until the receiver
// chooses to decode it, e.g. after installing a channel the inner value's
// decoding depends on. The subprocess bootstrap uses the same wire shape
// through spawn's own putBootstrapPayload/getBootstrapPayload helpers, not
// through this type.
//
// A Delayed is either holding a concrete value (constructed locally via
// NewDelayed, ready to serialize) or holding undecoded bytes plus the
// owned handles drained out of the outer message (produced by GetDelayed,
// ready for exactly one call to Deserialize).
type Delayed[T any] struct {
	state   delayedState
	value   T
	data    []byte
	handles []*handle.Owned
	get     func(*Deserializer) (T, error)
}

// NewDelayed wraps v for deferred transmission.
func NewDelayed[T any](v T) *Delayed[T] {
	return &Delayed[T]{state: delayedHoldsValue, value: v}
}

// PutDelayed serializes the inner value into a scratch Serializer, then
// emits the inner handle indices translated into the outer Serializer's
// index space followed by the inner bytes. Serializing a Delayed that
// isn't holding a value is a programming error.
func PutDelayed[T any](s *Serializer, dly *Delayed[T], put func(*Serializer, T) error) error {
	if dly.state != delayedHoldsValue {
		panic("wire: Delayed already serialized")
	}
	inner := NewSerializer()
	if err := put(inner, dly.value); err != nil {
		return err
	}
	innerHandles := inner.DrainHandles()
	outerIx := make([]int, len(innerHandles))
	for i, h := range innerHandles {
		outerIx[i] = s.AddHandle(h)
	}
	if err := PutSlice(s, outerIx, func(s *Serializer, v int) error { PutLen(s, v); return nil }); err != nil {
		return err
	}
	PutBytes(s, inner.Bytes())
	return nil
}

// GetDelayed reads the handle-index list and inner bytes without decoding
// them. The referenced handles are drained out of d immediately, so the
// wrapper owns them independently of the outer message — the caller is
// free to Close d (as the channel receive path does) before materializing
// the value. get is stashed for the single Deserialize call that follows.
func GetDelayed[T any](d *Deserializer, get func(*Deserializer) (T, error)) (*Delayed[T], error) {
	ix, err := GetSlice(d, GetLen)
	if err != nil {
		return nil, err
	}
	data, err := GetBytes(d)
	if err != nil {
		return nil, err
	}
	handles := make([]*handle.Owned, len(ix))
	for i, idx := range ix {
		h, err := d.DrainHandle(idx)
		if err != nil {
			return nil, err
		}
		handles[i] = h
	}
	return &Delayed[T]{state: delayedHoldsBytes, data: data, handles: handles, get: get}, nil
}

// Deserialize materializes the inner value, consuming the wrapper. Calling
// it twice panics: reuse is a programming error, not a wire condition.
func (dly *Delayed[T]) Deserialize() (T, error) {
	if dly.state == delayedConsumed {
		panic("wire: Delayed deserialized twice")
	}
	if dly.state == delayedHoldsValue {
		dly.state = delayedConsumed
		return dly.value, nil
	}
	inner := NewDeserializer(dly.data, dly.handles)
	dly.state = delayedConsumed
	dly.handles = nil
	v, err := dly.get(inner)
	if err != nil {
		inner.Close()
	}
	return v, err
}
