// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package packet implements xproc's physical framing layer: chunking a
// single logical message — byte payload plus handle sidecar — into
// segments no larger than MaxPacketSize, each carrying a one-byte
// continuation marker, with the handle sidecar attached per segment on
// UNIX (SCM_RIGHTS) or migrated via a handle broker on Windows.
package packet

import "v.io/x/xproc/handle"

const (
	// MaxPacketSize bounds a single physical send, continuation marker
	// included: at most MaxPacketSize-1 payload bytes per segment.
	MaxPacketSize = 16 * 1024

	// MaxPacketFDs bounds the number of handles attached to one UNIX
	// segment as SCM_RIGHTS ancillary data, the kernel's SCM_MAX_FD.
	MaxPacketFDs = 253
)

// Endpoint is one end of a physical message-oriented transport: UNIX's
// SOCK_SEQPACKET socketpair half, or Windows' paired anonymous pipes. It
// speaks xproc's packet framing directly — callers above it (channel.go)
// only see whole messages.
type Endpoint interface {
	// Send frames and transmits one logical message: a byte payload plus
	// its ordered handle sidecar. Handles are borrowed: the peer receives
	// its own duplicate of each, and the caller keeps (and eventually
	// closes) the handles it passed in.
	Send(payload []byte, handles []handle.Raw) error

	// Recv reads one logical message. ok is false on a clean close with
	// no partial message pending; a close mid-message is an error.
	Recv() (payload []byte, handles []*handle.Owned, ok bool, err error)

	// Raw returns the underlying handle, e.g. for passing across a
	// bootstrap message or for re-enabling inheritance across exec.
	Raw() handle.Raw

	// Close releases the endpoint's underlying kernel resource.
	Close() error
}

// FromRawSender and FromRawReceiver rebuild an Endpoint from a single raw
// handle received as part of another message's sidecar — the channel
// package's MarshalWire/UnmarshalWire path for transporting a Sender or
// Receiver value as a payload of its own. On UNIX both reconstruct the
// same kind of socket half, since one fd serves both directions; on
// Windows they differ because each direction is a distinct unidirectional
// pipe handle.
