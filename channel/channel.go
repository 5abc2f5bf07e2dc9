// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel implements xproc's typed channel endpoints: Sender[T],
// Receiver[T], and Duplex[S,R] as type-tagged wrappers around a single
// packet.Endpoint. Every endpoint is itself a wire.Object — sending
// a Receiver over a channel migrates the underlying kernel handle to the
// peer, yielding a working endpoint on the other side, exactly like any
// other handle-bearing value.
package channel

import (
	"github.com/google/uuid"

	"v.io/v23/verror"
	"v.io/x/lib/vlog"

	"v.io/x/xproc/packet"
	"v.io/x/xproc/wire"
	"v.io/x/xproc/xerrors"
)

// Sender is the transmitting half of a typed channel. The id tags this
// endpoint's log lines so a message can be correlated across the two
// processes it traverses.
type Sender[T any] struct {
	id  uuid.UUID
	ep  packet.Endpoint
	put func(*wire.Serializer, T) error
}

// Receiver is the receiving half of a typed channel.
type Receiver[T any] struct {
	id  uuid.UUID
	ep  packet.Endpoint
	get func(*wire.Deserializer) (T, error)
}

// New creates a matched Sender/Receiver pair over a fresh packet.Endpoint
// pair (a SOCK_SEQPACKET socketpair on UNIX, pipes on Windows).
func New[T any](put func(*wire.Serializer, T) error, get func(*wire.Deserializer) (T, error)) (Sender[T], Receiver[T], error) {
	a, b, err := packet.NewPair()
	if err != nil {
		return Sender[T]{}, Receiver[T]{}, err
	}
	return Sender[T]{id: uuid.New(), ep: a, put: put}, Receiver[T]{id: uuid.New(), ep: b, get: get}, nil
}

// WrapSender adapts an already-established endpoint (e.g. one received as
// the payload of another message) into a typed Sender.
func WrapSender[T any](ep packet.Endpoint, put func(*wire.Serializer, T) error) Sender[T] {
	return Sender[T]{id: uuid.New(), ep: ep, put: put}
}

// WrapReceiver is WrapSender's receive-side counterpart.
func WrapReceiver[T any](ep packet.Endpoint, get func(*wire.Deserializer) (T, error)) Receiver[T] {
	return Receiver[T]{id: uuid.New(), ep: ep, get: get}
}

// Endpoint exposes the underlying packet.Endpoint, e.g. so it can be moved
// into another Sender/Receiver's handle sidecar for transport.
func (s Sender[T]) Endpoint() packet.Endpoint { return s.ep }
func (r Receiver[T]) Endpoint() packet.Endpoint { return r.ep }

// Close releases the underlying kernel endpoint.
func (s Sender[T]) Close() error { return s.ep.Close() }
func (r Receiver[T]) Close() error { return r.ep.Close() }

// Send serializes v into (bytes, handle-sidecar), frames it, and
// transmits it. Concurrent Send calls on the same Sender from multiple
// goroutines are a usage error, not a supported pattern — callers
// serialize their own access.
func (s Sender[T]) Send(v T) error {
	ser := wire.NewSerializer()
	if err := s.put(ser, v); err != nil {
		return err
	}
	raws := ser.DrainHandles()
	vlog.VI(2).Infof("channel %s: send %d bytes, %d handles", s.id, ser.Len(), len(raws))
	return s.ep.Send(ser.Bytes(), raws)
}

// Recv reads and deserializes the next message. ok is false on clean
// peer close.
func (r Receiver[T]) Recv() (v T, ok bool, err error) {
	payload, handles, ok, err := r.ep.Recv()
	if err != nil || !ok {
		return v, ok, err
	}
	vlog.VI(2).Infof("channel %s: recv %d bytes, %d handles", r.id, len(payload), len(handles))
	d := wire.NewDeserializer(payload, handles)
	defer d.Close()
	v, err = r.get(d)
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Duplex is a type-tagged wrapper combining a send side of type S and a
// receive side of type R over a single underlying endpoint pair.
type Duplex[S, R any] struct {
	tx Sender[S]
	rx Receiver[R]
}

// NewDuplex creates a connected (local, remote) pair of duplexes: local
// sends S and receives R; remote sends R and receives S.
func NewDuplex[S, R any](
	putS func(*wire.Serializer, S) error, getS func(*wire.Deserializer) (S, error),
	putR func(*wire.Serializer, R) error, getR func(*wire.Deserializer) (R, error),
) (local Duplex[S, R], remote Duplex[R, S], err error) {
	a, b, err := packet.NewPair()
	if err != nil {
		return Duplex[S, R]{}, Duplex[R, S]{}, err
	}
	local = Duplex[S, R]{tx: WrapSender[S](a, putS), rx: WrapReceiver[R](a, getR)}
	remote = Duplex[R, S]{tx: WrapSender[R](b, putR), rx: WrapReceiver[S](b, getS)}
	return local, remote, nil
}

// Send transmits v on the send side.
func (d Duplex[S, R]) Send(v S) error { return d.tx.Send(v) }

// Recv reads from the receive side.
func (d Duplex[S, R]) Recv() (R, bool, error) { return d.rx.Recv() }

// Request sends v and waits for the reply, treating a clean close as
// "peer exited before responding".
func (d Duplex[S, R]) Request(v S) (R, error) {
	var zero R
	if err := d.tx.Send(v); err != nil {
		return zero, err
	}
	r, ok, err := d.rx.Recv()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, verror.New(xerrors.ErrPeerClosed, nil, "peer exited before responding")
	}
	return r, nil
}

// IntoSender splits off the send half, discarding the receive half.
//
// A Duplex's two directions are two typed views (tx, rx) over the same
// underlying packet.Endpoint — on UNIX that endpoint is one bidirectional
// SOCK_SEQPACKET fd; on Windows it is already a pair of unidirectional
// pipe handles bundled as one Endpoint. Splitting here never calls Close:
// on UNIX that leaves the one shared fd usable by whichever half is kept
// (dropping a half does not close the socket out from under the other,
// since there is only one socket). A deserialized Duplex, whose two
// directions always arrive as two separately migrated handles (MarshalWire
// sends one per direction on every platform), does let the discarded
// half's Close run independently with no effect on the kept one. The
// difference is observable and deliberate.
func (d Duplex[S, R]) IntoSender() Sender[S] { return d.tx }

// IntoReceiver is IntoSender's receive-side counterpart.
func (d Duplex[S, R]) IntoReceiver() Receiver[R] { return d.rx }

// Close releases the underlying endpoint, or both endpoints when the two
// directions were decoded from separately migrated handles.
func (d Duplex[S, R]) Close() error {
	err := d.tx.Close()
	if d.rx.ep != d.tx.ep {
		if rerr := d.rx.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
