// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import (
	"v.io/v23/verror"
	"v.io/x/xproc/handle"
	"v.io/x/xproc/xerrors"
)

// Deserializer walks a byte payload plus the owned handles received
// alongside it, draining each handle at most once.
type Deserializer struct {
	data    []byte
	pos     int
	handles []*handle.Owned
	cyclics []any
}

// NewDeserializer wraps data and the owned handles that arrived with it.
// Ownership of every element of handles passes to the Deserializer; undrained
// handles are closed when the message is fully consumed by calling Close.
func NewDeserializer(data []byte, handles []*handle.Owned) *Deserializer {
	return &Deserializer{data: data, handles: handles}
}

// ReadRaw consumes and returns the next n bytes, or an error if fewer than
// n bytes remain.
func (d *Deserializer) ReadRaw(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, verror.New(xerrors.ErrInvalidData, nil, "short read")
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// Remaining reports how many payload bytes are left unconsumed.
func (d *Deserializer) Remaining() int {
	return len(d.data) - d.pos
}

// DrainHandle returns the idx-th received handle. Calling it twice with
// the same idx is a programming error.
func (d *Deserializer) DrainHandle(idx int) (*handle.Owned, error) {
	if idx < 0 || idx >= len(d.handles) {
		return nil, verror.New(xerrors.ErrHandleIndexOutOfRange, nil, idx, len(d.handles))
	}
	h := d.handles[idx]
	if h == nil {
		panic("wire: DrainHandle called twice for the same index")
	}
	d.handles[idx] = nil
	return h, nil
}

// learnCyclic pushes a newly-materialized shared value, to be retrieved
// later by id via getCyclic.
func (d *Deserializer) learnCyclic(v any) int {
	d.cyclics = append(d.cyclics, v)
	return len(d.cyclics)
}

// getCyclic retrieves a previously materialized shared value by its
// 1-based id.
func (d *Deserializer) getCyclic(id int) (any, error) {
	if id < 1 || id > len(d.cyclics) {
		return nil, verror.New(xerrors.ErrInvalidData, nil, "unknown cyclic id")
	}
	return d.cyclics[id-1], nil
}

// Close releases every handle that was never drained — the message is
// being discarded (e.g. an error mid-decode), and any undrained fds/HANDLEs
// in its sidecar would otherwise leak.
func (d *Deserializer) Close() {
	for i, h := range d.handles {
		if h != nil {
			_ = h.Close()
			d.handles[i] = nil
		}
	}
}
