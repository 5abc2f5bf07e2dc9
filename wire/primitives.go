// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"

	"v.io/v23/verror"
	"v.io/x/xproc/xerrors"
)

// Wire format for primitives: native-endian byte copy, no padding. Sum
// tags and sequence lengths are uint64, native-endian. The format is
// private to a single build of a single binary, so native endianness is
// fine; nothing here survives a cross-version or cross-machine hop.
var nativeEndian = binary.NativeEndian

func putFixed[T any](s *Serializer, v T) {
	// binary.Write never fails for fixed-width numeric kinds and bool.
	_ = binary.Write(&s.buf, nativeEndian, v)
}

func getFixed[T any](d *Deserializer) (T, error) {
	var v T
	n := binary.Size(v)
	b, err := d.ReadRaw(n)
	if err != nil {
		return v, err
	}
	if err := binary.Read(byteReader{b}, nativeEndian, &v); err != nil {
		return v, verror.New(xerrors.ErrInvalidData, nil, err.Error())
	}
	return v, nil
}

// byteReader adapts a byte slice to io.Reader without an allocation beyond
// the slice header, for binary.Read's benefit.
type byteReader struct{ b []byte }

func (r byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.b)
	return n, nil
}

func PutBool(s *Serializer, v bool)          { putFixed(s, v) }
func GetBool(d *Deserializer) (bool, error)  { return getFixed[bool](d) }
func PutInt8(s *Serializer, v int8)          { putFixed(s, v) }
func GetInt8(d *Deserializer) (int8, error)  { return getFixed[int8](d) }
func PutUint8(s *Serializer, v uint8)        { putFixed(s, v) }
func GetUint8(d *Deserializer) (uint8, error) { return getFixed[uint8](d) }
func PutInt16(s *Serializer, v int16)         { putFixed(s, v) }
func GetInt16(d *Deserializer) (int16, error) { return getFixed[int16](d) }
func PutUint16(s *Serializer, v uint16)         { putFixed(s, v) }
func GetUint16(d *Deserializer) (uint16, error) { return getFixed[uint16](d) }
func PutInt32(s *Serializer, v int32)         { putFixed(s, v) }
func GetInt32(d *Deserializer) (int32, error) { return getFixed[int32](d) }
func PutUint32(s *Serializer, v uint32)         { putFixed(s, v) }
func GetUint32(d *Deserializer) (uint32, error) { return getFixed[uint32](d) }
func PutInt64(s *Serializer, v int64)         { putFixed(s, v) }
func GetInt64(d *Deserializer) (int64, error) { return getFixed[int64](d) }
func PutUint64(s *Serializer, v uint64)         { putFixed(s, v) }
func GetUint64(d *Deserializer) (uint64, error) { return getFixed[uint64](d) }
func PutFloat32(s *Serializer, v float32)         { putFixed(s, v) }
func GetFloat32(d *Deserializer) (float32, error) { return getFixed[float32](d) }
func PutFloat64(s *Serializer, v float64)         { putFixed(s, v) }
func GetFloat64(d *Deserializer) (float64, error) { return getFixed[float64](d) }
func PutRune(s *Serializer, v rune)         { putFixed(s, int32(v)) }
func GetRune(d *Deserializer) (rune, error) { v, err := getFixed[int32](d); return rune(v), err }

// PutInt/GetInt and PutUint/GetUint stand in for isize/usize: always
// transmitted as 64 bits regardless of the host's native int width.
func PutInt(s *Serializer, v int)  { PutInt64(s, int64(v)) }
func GetInt(d *Deserializer) (int, error) {
	v, err := GetInt64(d)
	return int(v), err
}
func PutUint(s *Serializer, v uint) { PutUint64(s, uint64(v)) }
func GetUint(d *Deserializer) (uint, error) {
	v, err := GetUint64(d)
	return uint(v), err
}

// PutLen/GetLen write/read the uint64 length prefix used by every
// variable-length wire form (strings, sequences, sum tags' sibling count
// fields, delayed-payload index lists).
func PutLen(s *Serializer, n int) { PutUint64(s, uint64(n)) }
func GetLen(d *Deserializer) (int, error) {
	v, err := GetUint64(d)
	return int(v), err
}

// PutBytes writes a length-prefixed raw byte sequence.
func PutBytes(s *Serializer, b []byte) {
	PutLen(s, len(b))
	s.WriteRaw(b)
}

// GetBytes reads a length-prefixed raw byte sequence.
func GetBytes(d *Deserializer) ([]byte, error) {
	n, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	b, err := d.ReadRaw(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// PutString writes a length-prefixed UTF-8 string. Go's native string
// type is UTF-8 on both platforms; the UTF-16 path below is reserved for
// Windows OS strings.
func PutString(s *Serializer, v string) {
	PutBytes(s, []byte(v))
}

// GetString reads a length-prefixed string. The bytes are not checked for
// UTF-8 validity.
func GetString(d *Deserializer) (string, error) {
	b, err := GetBytes(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PutUTF16 writes a length-prefixed sequence of UTF-16 code units, for OS
// strings on Windows.
func PutUTF16(s *Serializer, units []uint16) {
	PutLen(s, len(units))
	for _, u := range units {
		PutUint16(s, u)
	}
}

// GetUTF16 reads a length-prefixed sequence of UTF-16 code units.
func GetUTF16(d *Deserializer) ([]uint16, error) {
	n, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		u, err := GetUint16(d)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// PutVariant writes a sum type's variant tag, transmitted as 64 bits
// like every other length or index here.
func PutVariant(s *Serializer, tag int) {
	PutLen(s, tag)
}

// GetVariant reads a variant tag and checks it against the sum's variant
// count.
func GetVariant(d *Deserializer, numVariants int) (int, error) {
	tag, err := GetLen(d)
	if err != nil {
		return 0, err
	}
	if tag < 0 || tag >= numVariants {
		return 0, verror.New(xerrors.ErrUnknownVariant, nil, tag)
	}
	return tag, nil
}
