// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"reflect"
	"testing"
	"time"

	"v.io/v23/verror"

	"v.io/x/xproc/xerrors"
)

// roundTrip serializes with put, checks no handles were produced, and
// hands the bytes to get.
func roundTrip[T any](t *testing.T, v T, put func(*Serializer, T) error, get func(*Deserializer) (T, error)) T {
	t.Helper()
	s := NewSerializer()
	if err := put(s, v); err != nil {
		t.Fatalf("serialize %v: %v", v, err)
	}
	if hs := s.DrainHandles(); len(hs) != 0 {
		t.Fatalf("serialize %v: unexpected %d handles in sidecar", v, len(hs))
	}
	d := NewDeserializer(s.Bytes(), nil)
	got, err := get(d)
	if err != nil {
		t.Fatalf("deserialize %v: %v", v, err)
	}
	if d.Remaining() != 0 {
		t.Errorf("deserialize %v: %d bytes left unconsumed", v, d.Remaining())
	}
	return got
}

func TestPrimitiveRoundTrip(t *testing.T) {
	if got := roundTrip(t, true, func(s *Serializer, v bool) error { PutBool(s, v); return nil }, GetBool); got != true {
		t.Errorf("bool: got %v", got)
	}
	for _, v := range []int64{0, 1, -1, 0x0123_4567_89ab_cdef, -0x0123_4567_89ab_cdef} {
		if got := roundTrip(t, v, func(s *Serializer, v int64) error { PutInt64(s, v); return nil }, GetInt64); got != v {
			t.Errorf("int64 %#x: got %#x", v, got)
		}
	}
	for _, v := range []uint64{0, 1, ^uint64(0)} {
		if got := roundTrip(t, v, func(s *Serializer, v uint64) error { PutUint64(s, v); return nil }, GetUint64); got != v {
			t.Errorf("uint64 %#x: got %#x", v, got)
		}
	}
	for _, v := range []float64{0, -1.5, 3.14159e300} {
		if got := roundTrip(t, v, func(s *Serializer, v float64) error { PutFloat64(s, v); return nil }, GetFloat64); got != v {
			t.Errorf("float64 %v: got %v", v, got)
		}
	}
	if got := roundTrip(t, 'λ', func(s *Serializer, v rune) error { PutRune(s, v); return nil }, GetRune); got != 'λ' {
		t.Errorf("rune: got %q", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, v := range []string{"", "hello", "héllo wörld", "\x00\xff"} {
		if got := roundTrip(t, v, func(s *Serializer, v string) error { PutString(s, v); return nil }, GetString); got != v {
			t.Errorf("string %q: got %q", v, got)
		}
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	units := []uint16{0x0068, 0x00e9, 0xd83d, 0xde00}
	got := roundTrip(t, units, func(s *Serializer, v []uint16) error { PutUTF16(s, v); return nil }, GetUTF16)
	if !reflect.DeepEqual(got, units) {
		t.Errorf("utf16: got %v, want %v", got, units)
	}
}

func TestShortReadFails(t *testing.T) {
	d := NewDeserializer([]byte{1, 2, 3}, nil)
	if _, err := GetInt64(d); verror.ErrorID(err) != xerrors.ErrInvalidData.ID {
		t.Errorf("expected ErrInvalidData on short stream, got %v", err)
	}
}

func TestSliceSetMapRoundTrip(t *testing.T) {
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	v := []int64{3, 1, 4, 1, 5}
	if got := roundTrip(t, v, func(s *Serializer, v []int64) error { return PutSlice(s, v, putI) },
		func(d *Deserializer) ([]int64, error) { return GetSlice(d, GetInt64) }); !reflect.DeepEqual(got, v) {
		t.Errorf("slice: got %v, want %v", got, v)
	}

	set := map[int64]struct{}{3: {}, 1: {}, 4: {}}
	if got := roundTrip(t, set, func(s *Serializer, v map[int64]struct{}) error { return PutSet(s, v, putI) },
		func(d *Deserializer) (map[int64]struct{}, error) { return GetSet(d, GetInt64) }); !reflect.DeepEqual(got, set) {
		t.Errorf("set: got %v, want %v", got, set)
	}

	m := map[string]int64{"a": 1, "b": -2}
	if got := roundTrip(t, m,
		func(s *Serializer, v map[string]int64) error {
			return PutMap(s, v, func(s *Serializer, k string) error { PutString(s, k); return nil }, putI)
		},
		func(d *Deserializer) (map[string]int64, error) { return GetMap(d, GetString, GetInt64) }); !reflect.DeepEqual(got, m) {
		t.Errorf("map: got %v, want %v", got, m)
	}
}

func TestOptionRoundTrip(t *testing.T) {
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	five := int64(5)
	got := roundTrip(t, &five, func(s *Serializer, v *int64) error { return PutOption(s, v, putI) },
		func(d *Deserializer) (*int64, error) { return GetOption(d, GetInt64) })
	if got == nil || *got != 5 {
		t.Errorf("option some: got %v", got)
	}
	got = roundTrip(t, nil, func(s *Serializer, v *int64) error { return PutOption(s, v, putI) },
		func(d *Deserializer) (*int64, error) { return GetOption(d, GetInt64) })
	if got != nil {
		t.Errorf("option none: got %v", *got)
	}
}

func TestResultRoundTrip(t *testing.T) {
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	putS := func(s *Serializer, v string) error { PutString(s, v); return nil }
	for _, r := range []TaggedResult[int64, string]{
		{IsOk: true, Ok: 42},
		{IsOk: false, Err: "broke"},
	} {
		got := roundTrip(t, r,
			func(s *Serializer, v TaggedResult[int64, string]) error { return PutResult(s, v, putI, putS) },
			func(d *Deserializer) (TaggedResult[int64, string], error) { return GetResult(d, GetInt64, GetString) })
		if got != r {
			t.Errorf("result: got %+v, want %+v", got, r)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, v := range []time.Duration{0, time.Nanosecond, 90*time.Second + 123*time.Nanosecond} {
		if got := roundTrip(t, v, func(s *Serializer, v time.Duration) error { PutDuration(s, v); return nil }, GetDuration); got != v {
			t.Errorf("duration %v: got %v", v, got)
		}
	}
}

func TestVariantTagOutOfRange(t *testing.T) {
	s := NewSerializer()
	PutVariant(s, 7)
	d := NewDeserializer(s.Bytes(), nil)
	if _, err := GetVariant(d, 3); verror.ErrorID(err) != xerrors.ErrUnknownVariant.ID {
		t.Errorf("expected ErrUnknownVariant for tag 7 of 3, got %v", err)
	}

	s = NewSerializer()
	PutVariant(s, 2)
	d = NewDeserializer(s.Bytes(), nil)
	if tag, err := GetVariant(d, 3); err != nil || tag != 2 {
		t.Errorf("expected tag 2, got (%d, %v)", tag, err)
	}
}

type podPoint struct {
	X, Y int32
	Z    uint64
}

func TestPODEquivalence(t *testing.T) {
	// The payload length must equal the type's fixed size, with an empty
	// sidecar.
	v := podPoint{X: 5, Y: -7, Z: 0xdeadbeef}
	s := NewSerializer()
	if err := PutPOD(s, v); err != nil {
		t.Fatalf("PutPOD: %v", err)
	}
	if want := binary.Size(v); s.Len() != want {
		t.Errorf("POD payload length: got %d, want %d", s.Len(), want)
	}
	if hs := s.DrainHandles(); len(hs) != 0 {
		t.Errorf("POD sidecar not empty: %d entries", len(hs))
	}
	d := NewDeserializer(s.Bytes(), nil)
	got, err := GetPOD[podPoint](d)
	if err != nil {
		t.Fatalf("GetPOD: %v", err)
	}
	if got != v {
		t.Errorf("POD round trip: got %+v, want %+v", got, v)
	}
	if PODSize[podPoint]() != binary.Size(v) {
		t.Errorf("PODSize disagrees with binary.Size")
	}
}

func TestSerializerDrainTwicePanics(t *testing.T) {
	s := NewSerializer()
	s.DrainHandles()
	defer func() {
		if recover() == nil {
			t.Errorf("second DrainHandles did not panic")
		}
	}()
	s.DrainHandles()
}

func TestAddHandleAfterDrainPanics(t *testing.T) {
	s := NewSerializer()
	s.DrainHandles()
	defer func() {
		if recover() == nil {
			t.Errorf("AddHandle after DrainHandles did not panic")
		}
	}()
	s.AddHandle(0)
}

func TestLearnCyclicIDs(t *testing.T) {
	s := NewSerializer()
	id1, first := s.LearnCyclic(0x1000)
	if !first || id1 != 1 {
		t.Errorf("first sighting: got (%d, %v), want (1, true)", id1, first)
	}
	id2, first := s.LearnCyclic(0x2000)
	if !first || id2 != 2 {
		t.Errorf("second pointer: got (%d, %v), want (2, true)", id2, first)
	}
	id, first := s.LearnCyclic(0x1000)
	if first || id != 1 {
		t.Errorf("repeat sighting: got (%d, %v), want (1, false)", id, first)
	}
}

func TestSharedIdentityRoundTrip(t *testing.T) {
	// Spec section 8, rc_sharing: two clones of the same Rc round-trip to
	// two pointer-equal values both dereferencing to 42.
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	x := NewShared[int64](42)
	pair := [2]Shared[int64]{x, x}

	s := NewSerializer()
	for _, e := range pair {
		if err := PutShared(s, e, putI); err != nil {
			t.Fatalf("PutShared: %v", err)
		}
	}
	s.DrainHandles()

	d := NewDeserializer(s.Bytes(), nil)
	var got [2]Shared[int64]
	for i := range got {
		e, err := GetShared(d, GetInt64)
		if err != nil {
			t.Fatalf("GetShared[%d]: %v", i, err)
		}
		got[i] = e
	}
	if got[0].Get() != got[1].Get() {
		t.Errorf("shared identity lost: %p vs %p", got[0].Get(), got[1].Get())
	}
	if *got[0].Get() != 42 {
		t.Errorf("shared value: got %d, want 42", *got[0].Get())
	}
}

func TestSharedDistinctStayDistinct(t *testing.T) {
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	a, b := NewShared[int64](1), NewShared[int64](1)
	s := NewSerializer()
	if err := PutShared(s, a, putI); err != nil {
		t.Fatal(err)
	}
	if err := PutShared(s, b, putI); err != nil {
		t.Fatal(err)
	}
	s.DrainHandles()
	d := NewDeserializer(s.Bytes(), nil)
	ga, err := GetShared(d, GetInt64)
	if err != nil {
		t.Fatal(err)
	}
	gb, err := GetShared(d, GetInt64)
	if err != nil {
		t.Fatal(err)
	}
	if ga.Get() == gb.Get() {
		t.Errorf("distinct shared values were merged")
	}
}

// Three implementors of a speaking interface, round-tripped through the
// boxed path.

type speaker interface {
	Object
	Speak() string
}

type stringSpeaker struct{ Text string }

func (v stringSpeaker) MarshalWire(s *Serializer) error { PutString(s, v.Text); return nil }
func (v *stringSpeaker) UnmarshalWire(d *Deserializer) error {
	t, err := GetString(d)
	v.Text = t
	return err
}
func (v stringSpeaker) Speak() string { return "string: " + v.Text }

type intSpeaker struct{ N int64 }

func (v intSpeaker) MarshalWire(s *Serializer) error { PutInt64(s, v.N); return nil }
func (v *intSpeaker) UnmarshalWire(d *Deserializer) error {
	n, err := GetInt64(d)
	v.N = n
	return err
}
func (v intSpeaker) Speak() string {
	if v.N == 7 {
		return "int: seven"
	}
	return "int: other"
}

type boolSpeaker bool

func (v boolSpeaker) MarshalWire(s *Serializer) error { PutBool(s, bool(v)); return nil }
func (v *boolSpeaker) UnmarshalWire(d *Deserializer) error {
	b, err := GetBool(d)
	*v = boolSpeaker(b)
	return err
}
func (v boolSpeaker) Speak() string {
	if v {
		return "bool: yes"
	}
	return "bool: no"
}

func init() {
	RegisterBoxed[stringSpeaker]("wire_test.stringSpeaker")
	RegisterBoxed[intSpeaker]("wire_test.intSpeaker")
	RegisterBoxed[boolSpeaker]("wire_test.boolSpeaker")
}

func TestBoxedRoundTrip(t *testing.T) {
	tests := []struct {
		in   Object
		want string
	}{
		{stringSpeaker{Text: "woof"}, "string: woof"},
		{intSpeaker{N: 7}, "int: seven"},
		{boolSpeaker(true), "bool: yes"},
	}
	for _, tc := range tests {
		s := NewSerializer()
		if err := PutBoxed(s, tc.in); err != nil {
			t.Fatalf("PutBoxed(%T): %v", tc.in, err)
		}
		s.DrainHandles()
		d := NewDeserializer(s.Bytes(), nil)
		out, err := GetBoxed(d)
		if err != nil {
			t.Fatalf("GetBoxed(%T): %v", tc.in, err)
		}
		sp, ok := out.(speaker)
		if !ok {
			t.Fatalf("GetBoxed(%T) returned %T, which does not speak", tc.in, out)
		}
		if got := sp.Speak(); got != tc.want {
			t.Errorf("Speak: got %q, want %q", got, tc.want)
		}
	}
}

func TestBoxedUnknownName(t *testing.T) {
	s := NewSerializer()
	PutString(s, "wire_test.never-registered")
	d := NewDeserializer(s.Bytes(), nil)
	if _, err := GetBoxed(d); verror.ErrorID(err) != xerrors.ErrUnknownBoxedType.ID {
		t.Errorf("expected ErrUnknownBoxedType, got %v", err)
	}
}

func TestDelayedRoundTrip(t *testing.T) {
	// Spec section 8, lazy_payload: serialize, deserialize into the
	// undecoded state, materialize once, then panic on re-materialize.
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	dly := NewDelayed[int64](99)

	s := NewSerializer()
	if err := PutDelayed(s, dly, putI); err != nil {
		t.Fatalf("PutDelayed: %v", err)
	}
	s.DrainHandles()

	d := NewDeserializer(s.Bytes(), nil)
	got, err := GetDelayed(d, GetInt64)
	if err != nil {
		t.Fatalf("GetDelayed: %v", err)
	}
	v, err := got.Deserialize()
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if v != 99 {
		t.Errorf("delayed value: got %d, want 99", v)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("second Deserialize did not panic")
		}
	}()
	got.Deserialize()
}

func TestDelayedSerializeReceivedPanics(t *testing.T) {
	// A Delayed in the serialized (received, not yet materialized) state
	// cannot be re-serialized.
	putI := func(s *Serializer, v int64) error { PutInt64(s, v); return nil }
	s := NewSerializer()
	if err := PutDelayed(s, NewDelayed[int64](1), putI); err != nil {
		t.Fatal(err)
	}
	s.DrainHandles()
	d := NewDeserializer(s.Bytes(), nil)
	received, err := GetDelayed(d, GetInt64)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("serializing a received Delayed did not panic")
		}
	}()
	_ = PutDelayed(NewSerializer(), received, putI)
}

func TestStaticRefRoundTrip(t *testing.T) {
	RegisterStatic[string]("wire_test.greeting", "hello")
	r := NewStaticRef[string]("wire_test.greeting")
	s := NewSerializer()
	if err := PutStaticRef(s, r); err != nil {
		t.Fatal(err)
	}
	s.DrainHandles()
	d := NewDeserializer(s.Bytes(), nil)
	got, err := GetStaticRef[string](d)
	if err != nil {
		t.Fatal(err)
	}
	if got.Get() != "hello" {
		t.Errorf("static ref: got %q, want %q", got.Get(), "hello")
	}
}
