// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handle provides a platform abstraction over raw OS handles: file
// descriptors on UNIX, HANDLE values on Windows. It is the lowest layer of
// xproc — wire, packet, channel, and spawn all move values of type
// OwnedHandle across process boundaries without knowing which platform
// they're on.
package handle

import "sync"

// Raw is an opaque OS handle identifier. On UNIX it is a file descriptor;
// on Windows, a HANDLE value. On Windows the zero value is never a valid
// open handle; on UNIX it is file descriptor 0, standard input.
type Raw = rawHandle

// Owned wraps a Raw with guaranteed close-on-drop semantics: a finalizer
// closes it if Close/Release was never called, so callers need not thread
// a defer through every error path.
//
// Serialization borrows, it does not take: marshaling a handle-bearing
// value puts Raw() in the sidecar, the transport duplicates the handle
// into the peer at send time, and this Owned still closes the sender-side
// copy on Close or drop. Release exists for the opposite case, where some
// other owner (an os.File, a migrated endpoint) takes over the raw value
// and this wrapper must not close it.
type Owned struct {
	mu     sync.Mutex
	raw    Raw
	closed bool
	valid  bool
}

// NewOwned takes ownership of raw, which must be a valid, open handle that
// no other Owned already owns.
func NewOwned(raw Raw) *Owned {
	h := &Owned{raw: raw, valid: true}
	armFinalizer(h)
	return h
}

// Raw returns the wrapped value without transferring ownership. The
// returned value is invalidated by a subsequent Close or Release.
func (h *Owned) Raw() Raw {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.raw
}

// Close releases the handle, closing the underlying OS resource. Safe to
// call more than once; only the first call has an effect.
func (h *Owned) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || !h.valid {
		return nil
	}
	h.closed = true
	disarmFinalizer(h)
	return closeRaw(h.raw)
}

// Release returns the wrapped Raw and disarms the finalizer without closing
// the underlying resource — used when another owner (an os.File, a
// migrated endpoint) takes over the raw value and the local copy's
// lifetime is no longer this Owned's responsibility.
func (h *Owned) Release() Raw {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.valid = false
	disarmFinalizer(h)
	return h.raw
}
