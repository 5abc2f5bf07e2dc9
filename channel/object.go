// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"v.io/x/xproc/packet"
	"v.io/x/xproc/wire"
)

// MarshalWire migrates the underlying endpoint to the peer: its raw
// handle goes into the outer message's sidecar, and the transport hands
// the peer its own duplicate. The local Sender keeps its copy open until
// the caller closes it.
func (s Sender[T]) MarshalWire(w *wire.Serializer) error {
	idx := w.AddHandle(s.ep.Raw())
	wire.PutLen(w, idx)
	return nil
}

// unmarshalWith rebuilds a Sender from a migrated handle. T's codec
// functions must be supplied explicitly, via DecodeSender, since a bare
// UnmarshalWire has no way to receive them — see that function's doc.
func (s *Sender[T]) unmarshalWith(d *wire.Deserializer, put func(*wire.Serializer, T) error) error {
	idx, err := wire.GetLen(d)
	if err != nil {
		return err
	}
	owned, err := d.DrainHandle(idx)
	if err != nil {
		return err
	}
	ep, err := packet.FromRawSender(owned.Release())
	if err != nil {
		return err
	}
	s.ep = ep
	s.put = put
	return nil
}

// MarshalWire is Sender's receive-side counterpart.
func (r Receiver[T]) MarshalWire(w *wire.Serializer) error {
	idx := w.AddHandle(r.ep.Raw())
	wire.PutLen(w, idx)
	return nil
}

func (r *Receiver[T]) unmarshalWith(d *wire.Deserializer, get func(*wire.Deserializer) (T, error)) error {
	idx, err := wire.GetLen(d)
	if err != nil {
		return err
	}
	owned, err := d.DrainHandle(idx)
	if err != nil {
		return err
	}
	ep, err := packet.FromRawReceiver(owned.Release())
	if err != nil {
		return err
	}
	r.ep = ep
	r.get = get
	return nil
}

// DecodeSender deserializes a Sender[T] carried as the payload of an outer
// message. Generic methods cannot themselves satisfy wire.Unmarshaler's
// pointer-receiver, argument-free contract once a codec closure is
// involved, so callers needing a Sender field inside their own Object type
// call this directly from their UnmarshalWire, the same way they'd call
// wire.GetSlice or any other parameterized helper.
func DecodeSender[T any](d *wire.Deserializer, put func(*wire.Serializer, T) error) (Sender[T], error) {
	var s Sender[T]
	if err := s.unmarshalWith(d, put); err != nil {
		return Sender[T]{}, err
	}
	return s, nil
}

// DecodeReceiver is DecodeSender's receive-side counterpart.
func DecodeReceiver[T any](d *wire.Deserializer, get func(*wire.Deserializer) (T, error)) (Receiver[T], error) {
	var r Receiver[T]
	if err := r.unmarshalWith(d, get); err != nil {
		return Receiver[T]{}, err
	}
	return r, nil
}

// MarshalWire migrates both directions of the duplex.
func (d Duplex[S, R]) MarshalWire(w *wire.Serializer) error {
	if err := d.tx.MarshalWire(w); err != nil {
		return err
	}
	return d.rx.MarshalWire(w)
}

// DecodeDuplex is Duplex's deserialization entry point, taking the codec
// functions explicitly for the same reason DecodeSender does.
func DecodeDuplex[S, R any](
	d *wire.Deserializer,
	putS func(*wire.Serializer, S) error, getR func(*wire.Deserializer) (R, error),
) (Duplex[S, R], error) {
	tx, err := DecodeSender[S](d, putS)
	if err != nil {
		return Duplex[S, R]{}, err
	}
	rx, err := DecodeReceiver[R](d, getR)
	if err != nil {
		return Duplex[S, R]{}, err
	}
	return Duplex[S, R]{tx: tx, rx: rx}, nil
}
