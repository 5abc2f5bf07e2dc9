// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spawn implements xproc's subprocess bootstrap: a boxed entry
// point is serialized, the binary re-execs itself with a sentinel
// argv[0], and the child deserializes and invokes the entry point,
// returning its result over a result channel.
package spawn

import (
	"reflect"

	"v.io/v23/verror"

	"v.io/x/xproc/packet"
	"v.io/x/xproc/wire"
	"v.io/x/xproc/xerrors"
)

// Entrypoint is implemented by a user-defined callable struct — the boxed
// function Spawn serializes and ships to the child. Args and Result must
// each use the value-receiver-MarshalWire / pointer-receiver-UnmarshalWire
// convention this package's invocation envelope relies on (the same
// convention wire.DeserializeNew assumes elsewhere in this module).
type Entrypoint[Args any, Result any] interface {
	wire.Object
	Run(args Args) Result
}

// invocation bundles an Entrypoint with its bound arguments into the
// single boxed, type-erased payload that crosses the bootstrap channel.
// The type parameters are only used to instantiate this generic type once
// per (Entrypoint, Args, Result) triple at the call site; the bootstrap
// dispatch only needs the instantiated type's own invoke method, which
// has a uniform non-generic signature.
type invocation[Args any, ArgsPtr wire.ObjectPtr[Args], Result any, ResultPtr wire.ObjectPtr[Result]] struct {
	entry Entrypoint[Args, Result]
	args  Args
}

func (inv *invocation[Args, ArgsPtr, Result, ResultPtr]) MarshalWire(s *wire.Serializer) error {
	// The entry goes through the boxed path, not a bare MarshalWire: the
	// child decodes it with wire.GetBoxed, which needs the registered
	// name prefix to pick the concrete type (RegisterEntrypoint registers
	// it alongside the invocation itself).
	if err := wire.PutBoxed(s, inv.entry); err != nil {
		return err
	}
	return marshalValue(s, inv.args)
}

func (inv *invocation[Args, ArgsPtr, Result, ResultPtr]) UnmarshalWire(d *wire.Deserializer) error {
	entry, err := wire.GetBoxed(d)
	if err != nil {
		return err
	}
	typed, ok := entry.(Entrypoint[Args, Result])
	if !ok {
		return verror.New(xerrors.ErrUnknownBoxedType, nil, "decoded entry point has the wrong Args/Result type")
	}
	inv.entry = typed
	args, err := wire.DeserializeNew[Args, ArgsPtr](d)
	if err != nil {
		return err
	}
	inv.args = args
	return nil
}

// invoke runs the bound entry point and sends its result back over the
// same endpoint the bootstrap message arrived on — the bootstrap duplex
// doubles as the result channel once the handshake completes.
func (inv *invocation[Args, ArgsPtr, Result, ResultPtr]) invoke(ep packet.Endpoint) int {
	result := inv.entry.Run(inv.args)

	ser := wire.NewSerializer()
	if err := marshalValue(ser, result); err != nil {
		return 1
	}
	raws := ser.DrainHandles()

	if err := ep.Send(ser.Bytes(), raws); err != nil {
		return 1
	}
	return 0
}

func marshalValue(s *wire.Serializer, v any) error {
	return v.(wire.Object).MarshalWire(s)
}

// RegisterEntrypoint associates name with Entry and with the invocation
// envelope that boxes it together with its (Args, Result) instantiation —
// call once from an init() function on both the parent and child side
// (same binary, so both register the same set), mirroring
// wire.RegisterBoxed's requirement. Entry's pointer type must implement
// wire.Unmarshaler, the same convention Args and Result follow.
func RegisterEntrypoint[Entry any, Args any, ArgsPtr wire.ObjectPtr[Args], Result any, ResultPtr wire.ObjectPtr[Result]](name string) {
	wire.RegisterBoxed[Entry](name + "/entry")
	wire.RegisterBoxed[invocation[Args, ArgsPtr, Result, ResultPtr]](name)
}

// boxedInvocation is the non-generic interface every instantiated
// invocation[...] type satisfies, used by the bootstrap dispatch loop
// which cannot itself be generic over Args/Result (it runs before any
// spawn call site's type parameters exist).
type boxedInvocation interface {
	wire.Object
	invoke(ep packet.Endpoint) int
}

func decodeInvocation(d *wire.Deserializer) (boxedInvocation, error) {
	obj, err := wire.GetBoxed(d)
	if err != nil {
		return nil, err
	}
	inv, ok := obj.(boxedInvocation)
	if !ok {
		return nil, verror.New(xerrors.ErrUnknownBoxedType, nil,
			"decoded boxed value "+reflect.TypeOf(obj).String()+" is not a spawn invocation")
	}
	return inv, nil
}
