//go:build windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"encoding/binary"
	"io"

	"golang.org/x/sys/windows"

	"v.io/v23/verror"
	"v.io/x/xproc/handle"
	"v.io/x/xproc/xerrors"
)

// windowsEndpoint implements Endpoint over a pair of anonymous pipe
// handles, with out-of-band handle migration through a broker process.
// Framing collapses to write(size) then write(bytes) — there is no
// ancillary-data equivalent on a Windows pipe.
type windowsEndpoint struct {
	r, w   windows.Handle
	broker windows.Handle
}

// SetBroker installs the process into which handles are duplicated for
// migration. Until set, Send refuses to migrate a non-empty handle list.
func (e *windowsEndpoint) SetBroker(broker windows.Handle) {
	e.broker = broker
}

// SetEndpointBroker installs broker on an Endpoint created by this
// package. The parent process is its own broker (the pseudo-handle from
// windows.CurrentProcess works for self-to-self duplication); a worker
// receives the parent's real process handle on its bootstrap command line.
func SetEndpointBroker(ep Endpoint, broker windows.Handle) {
	ep.(*windowsEndpoint).SetBroker(broker)
}

func newPipe() (r, w windows.Handle, err error) {
	var sa windows.SecurityAttributes
	sa.Length = uint32(unsafeSizeofSA)
	sa.InheritHandle = 1
	err = windows.CreatePipe(&r, &w, &sa, 0)
	return
}

const unsafeSizeofSA = 24 // windows.SecurityAttributes{} on amd64/arm64: two uint32/ptr fields + bool, platform-fixed.

// NewPair creates a bidirectional pair: two pipes, one per direction.
func NewPair() (Endpoint, Endpoint, error) {
	r1, w1, err := newPipe()
	if err != nil {
		return nil, nil, err
	}
	r2, w2, err := newPipe()
	if err != nil {
		return nil, nil, err
	}
	a := &windowsEndpoint{r: r2, w: w1}
	b := &windowsEndpoint{r: r1, w: w2}
	return a, b, nil
}

// NewChannelPair creates a unidirectional pair: a single pipe.
func NewChannelPair() (sender, receiver Endpoint, err error) {
	r, w, err := newPipe()
	if err != nil {
		return nil, nil, err
	}
	return &windowsEndpoint{w: w}, &windowsEndpoint{r: r}, nil
}

// FromRaw wraps a single inherited handle as a duplex-capable Endpoint,
// used for the bootstrap handle: treats the one value as both directions.
func FromRaw(h handle.Raw) (Endpoint, error) {
	hh := windows.Handle(h)
	return &windowsEndpoint{r: hh, w: hh}, nil
}

// FromRawSender wraps a migrated write-direction pipe handle as a
// send-only Endpoint. The broker must be set separately via SetBroker
// before any handle-bearing payload is sent through it.
func FromRawSender(h handle.Raw) (Endpoint, error) {
	return &windowsEndpoint{w: windows.Handle(h)}, nil
}

// FromRawReceiver is FromRawSender's read-direction counterpart.
func FromRawReceiver(h handle.Raw) (Endpoint, error) {
	return &windowsEndpoint{r: windows.Handle(h)}, nil
}

func (e *windowsEndpoint) Raw() handle.Raw {
	if e.w != 0 {
		return handle.Raw(e.w)
	}
	return handle.Raw(e.r)
}

func (e *windowsEndpoint) Close() error {
	var err error
	if e.r != 0 {
		err = windows.CloseHandle(e.r)
	}
	if e.w != 0 {
		if werr := windows.CloseHandle(e.w); err == nil {
			err = werr
		}
	}
	return err
}

func writeFull(h windows.Handle, b []byte) error {
	for len(b) > 0 {
		var n uint32
		if err := windows.WriteFile(h, b, &n, nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func readFull(h windows.Handle, b []byte) error {
	for len(b) > 0 {
		var n uint32
		if err := windows.ReadFile(h, b, &n, nil); err != nil {
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
		b = b[n:]
	}
	return nil
}

// Send duplicates each handle into the broker process, leaving the
// caller's own handle open, then writes a single framed message: payload
// length, payload, handle count, migrated handle values.
func (e *windowsEndpoint) Send(payload []byte, handles []handle.Raw) error {
	if len(handles) > 0 && e.broker == 0 {
		return verror.New(xerrors.ErrInvalidData, nil, "no handle broker configured for this endpoint")
	}
	migrated := make([]windows.Handle, len(handles))
	self := windows.CurrentProcess()
	for i, h := range handles {
		var dup windows.Handle
		if err := windows.DuplicateHandle(self, windows.Handle(h), e.broker, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
			return err
		}
		migrated[i] = dup
	}

	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(migrated)))
	if err := writeFull(e.w, hdr[:]); err != nil {
		return err
	}
	if err := writeFull(e.w, payload); err != nil {
		return err
	}
	for _, h := range migrated {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(h))
		if err := writeFull(e.w, b[:]); err != nil {
			return err
		}
	}
	return nil
}

// Recv reads one framed message and pulls each migrated handle back out of
// the broker process into this one.
func (e *windowsEndpoint) Recv() ([]byte, []*handle.Owned, bool, error) {
	var hdr [8]byte
	if err := readFull(e.r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	payloadLen := binary.LittleEndian.Uint32(hdr[0:4])
	handleCount := binary.LittleEndian.Uint32(hdr[4:8])

	payload := make([]byte, payloadLen)
	if err := readFull(e.r, payload); err != nil {
		return nil, nil, false, err
	}

	self := windows.CurrentProcess()
	owned := make([]*handle.Owned, handleCount)
	for i := range owned {
		var b [8]byte
		if err := readFull(e.r, b[:]); err != nil {
			return nil, nil, false, err
		}
		brokered := windows.Handle(binary.LittleEndian.Uint64(b[:]))
		var dup windows.Handle
		if err := windows.DuplicateHandle(e.broker, brokered, self, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS|windows.DUPLICATE_CLOSE_SOURCE); err != nil {
			return nil, nil, false, err
		}
		owned[i] = handle.NewOwned(handle.Raw(dup))
	}
	return payload, owned, true, nil
}
