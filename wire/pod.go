// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"

	"v.io/v23/verror"
	"v.io/x/xproc/xerrors"
)

// PutPOD writes v as a raw, fixed-width, native-endian byte copy — the
// fast path for a plain-old-data type with no interior handles or
// pointers. binary.Write compiles down to a memcpy for any type whose
// Size is fixed, so there is no need for unsafe here.
func PutPOD[T any](s *Serializer, v T) error {
	return binary.Write(&s.buf, nativeEndian, v)
}

// GetPOD reads a PlainOldData value written by PutPOD. Requires T to be
// fixed-size (encoding/binary.Size(T) > 0); returns ErrInvalidData
// otherwise or if too few bytes remain.
func GetPOD[T any](d *Deserializer) (T, error) {
	var v T
	n := binary.Size(v)
	if n <= 0 {
		return v, verror.New(xerrors.ErrInvalidData, nil, "not a fixed-size POD type")
	}
	b, err := d.ReadRaw(n)
	if err != nil {
		return v, err
	}
	if err := binary.Read(bytes.NewReader(b), nativeEndian, &v); err != nil {
		return v, verror.New(xerrors.ErrInvalidData, nil, err.Error())
	}
	return v, nil
}

// PODSize reports the wire size of T's plain-old-data encoding, or -1 if
// T is not fixed-size.
func PODSize[T any]() int {
	var v T
	return binary.Size(v)
}
