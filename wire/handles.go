// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import "v.io/x/xproc/handle"

// PutHandle migrates an owned handle: its raw value is written to the
// sidecar via AddHandle and the index embedded in the byte stream. The
// sidecar borrows the handle — the transport duplicates it into the peer
// at send time, and h remains owned by the caller, whose Close (or drop)
// releases the sender-side copy. Endpoint marshaling borrows the same
// way.
func PutHandle(s *Serializer, h *handle.Owned) {
	PutRawHandle(s, h.Raw())
}

// PutRawHandle is PutHandle for a bare raw handle the caller manages
// outside an Owned wrapper.
func PutRawHandle(s *Serializer, r handle.Raw) {
	idx := s.AddHandle(r)
	PutLen(s, idx)
}

// GetHandle reads a handle index and drains the corresponding owned handle
// from the sidecar.
func GetHandle(d *Deserializer) (*handle.Owned, error) {
	idx, err := GetLen(d)
	if err != nil {
		return nil, err
	}
	return d.DrainHandle(idx)
}
