// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xerrors holds the verror ids shared by every package in xproc.
//
// Every fallible operation that can occur as part of the wire protocol
// returns one of these; invariant violations by the caller (double-drain,
// double-serialize, concurrent endpoint use) panic instead.
package xerrors

import "v.io/v23/verror"

const pkgPath = "v.io/x/xproc"

var (
	// ErrInvalidData means the byte stream was structurally wrong: too few
	// bytes, an unknown cyclic id, or a value that does not decode as its
	// expected type. Out-of-range sum tags use ErrUnknownVariant instead.
	// String and UTF-16 payloads are not checked for valid encoding.
	ErrInvalidData = verror.Register(pkgPath+".ErrInvalidData", verror.NoRetry, "{1:}{2:} invalid data on wire{:_}")

	// ErrHandleIndexOutOfRange means a serialized handle index has no
	// corresponding sidecar entry.
	ErrHandleIndexOutOfRange = verror.Register(pkgPath+".ErrHandleIndexOutOfRange", verror.NoRetry, "{1:}{2:} handle index {3} out of range (sidecar has {4} entries){:_}")

	// ErrUnknownVariant means a sum type tag did not match any known variant.
	ErrUnknownVariant = verror.Register(pkgPath+".ErrUnknownVariant", verror.NoRetry, "{1:}{2:} unknown variant tag {3}{:_}")

	// ErrUnknownBoxedType means a Boxed value's registered type name has
	// no constructor registered in this process.
	ErrUnknownBoxedType = verror.Register(pkgPath+".ErrUnknownBoxedType", verror.NoRetry, "{1:}{2:} no constructor registered for boxed type {3}{:_}")

	// ErrUnterminatedMessage means the peer closed mid-message: a zero
	// length packet arrived while a partial message was accumulated.
	ErrUnterminatedMessage = verror.Register(pkgPath+".ErrUnterminatedMessage", verror.NoRetry, "{1:}{2:} unterminated message on channel{:_}")

	// ErrUnexpectedAncillary means a control message of a kind other than
	// SCM_RIGHTS arrived on the channel socket.
	ErrUnexpectedAncillary = verror.Register(pkgPath+".ErrUnexpectedAncillary", verror.NoRetry, "{1:}{2:} unexpected ancillary message kind{:_}")

	// ErrPeerClosed means Duplex.Request's send succeeded but the peer
	// closed the channel before responding.
	ErrPeerClosed = verror.Register(pkgPath+".ErrPeerClosed", verror.NoRetry, "{1:}{2:} peer exited before responding{:_}")

	// ErrTimeout means Spawn's bootstrap handshake exceeded
	// Options.ReadyTimeout.
	ErrTimeout = verror.Register(pkgPath+".ErrTimeout", verror.NoRetry, "{1:}{2:} timeout waiting for subprocess{:_}")

	// ErrSubprocessFailed means the child exited non-zero or via signal.
	ErrSubprocessFailed = verror.Register(pkgPath+".ErrSubprocessFailed", verror.NoRetry, "{1:}{2:} subprocess failed: {3}{:_}")

	// ErrNoResult means the child exited 0 but never sent a result.
	ErrNoResult = verror.Register(pkgPath+".ErrNoResult", verror.NoRetry, "{1:}{2:} subprocess terminated without returning a value{:_}")

	// ErrNoSuchProcess means an operation was attempted on a Child whose
	// process handle was never successfully created.
	ErrNoSuchProcess = verror.Register(pkgPath+".ErrNoSuchProcess", verror.NoRetry, "{1:}{2:} no such process{:_}")
)
