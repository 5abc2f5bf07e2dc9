// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn_test

import (
	"os"
	"testing"

	"v.io/v23/verror"

	"v.io/x/xproc/channel"
	"v.io/x/xproc/config"
	"v.io/x/xproc/spawn"
	"v.io/x/xproc/wire"
	"v.io/x/xproc/xerrors"
)

// TestMain hands the process to the bootstrap first: when the test binary
// is re-exec'd as a worker, Init never returns and the entry point's exit
// code is the process's exit code. In the parent, Init is a no-op.
func TestMain(m *testing.M) {
	spawn.Init()
	os.Exit(m.Run())
}

func putInt64(s *wire.Serializer, v int64) error { wire.PutInt64(s, v); return nil }

type noArgs struct{}

func (noArgs) MarshalWire(*wire.Serializer) error      { return nil }
func (*noArgs) UnmarshalWire(*wire.Deserializer) error { return nil }

type i64Result struct{ V int64 }

func (r i64Result) MarshalWire(s *wire.Serializer) error { wire.PutInt64(s, r.V); return nil }
func (r *i64Result) UnmarshalWire(d *wire.Deserializer) error {
	v, err := wire.GetInt64(d)
	r.V = v
	return err
}

// simpleEntry returns a fixed value with no arguments.
type simpleEntry struct{}

func (simpleEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*simpleEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (simpleEntry) Run(noArgs) i64Result                    { return i64Result{V: 0x0123_4567_89ab_cdef} }

// addEntry adds its two bound arguments.
type addArgs struct{ A, B int64 }

func (a addArgs) MarshalWire(s *wire.Serializer) error {
	wire.PutInt64(s, a.A)
	wire.PutInt64(s, a.B)
	return nil
}
func (a *addArgs) UnmarshalWire(d *wire.Deserializer) error {
	var err error
	if a.A, err = wire.GetInt64(d); err != nil {
		return err
	}
	a.B, err = wire.GetInt64(d)
	return err
}

type addEntry struct{}

func (addEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*addEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (addEntry) Run(a addArgs) i64Result                 { return i64Result{V: a.A + a.B} }

// simplePair is a structured argument and result.
type simplePair struct{ X, Y int64 }

func (p simplePair) MarshalWire(s *wire.Serializer) error {
	wire.PutInt64(s, p.X)
	wire.PutInt64(s, p.Y)
	return nil
}
func (p *simplePair) UnmarshalWire(d *wire.Deserializer) error {
	var err error
	if p.X, err = wire.GetInt64(d); err != nil {
		return err
	}
	p.Y, err = wire.GetInt64(d)
	return err
}

type swapEntry struct{}

func (swapEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*swapEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (swapEntry) Run(p simplePair) simplePair             { return simplePair{X: p.Y, Y: p.X} }

// recvArgs carries a migrated Receiver into the child.
type recvArgs struct{ RX channel.Receiver[int64] }

func (a recvArgs) MarshalWire(s *wire.Serializer) error { return a.RX.MarshalWire(s) }
func (a *recvArgs) UnmarshalWire(d *wire.Deserializer) error {
	rx, err := channel.DecodeReceiver[int64](d, wire.GetInt64)
	a.RX = rx
	return err
}

// subEntry reads two values from its receiver and returns their
// difference.
type subEntry struct{}

func (subEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*subEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (subEntry) Run(a recvArgs) i64Result {
	defer a.RX.Close()
	x, ok, err := a.RX.Recv()
	if err != nil || !ok {
		return i64Result{V: -1_000_000}
	}
	y, ok, err := a.RX.Recv()
	if err != nil || !ok {
		return i64Result{V: -1_000_001}
	}
	return i64Result{V: x - y}
}

// duplexArgs carries a migrated Duplex into the child.
type duplexArgs struct {
	DX channel.Duplex[int64, simplePair]
}

func (a duplexArgs) MarshalWire(s *wire.Serializer) error { return a.DX.MarshalWire(s) }
func (a *duplexArgs) UnmarshalWire(d *wire.Deserializer) error {
	dx, err := channel.DecodeDuplex[int64, simplePair](d, putInt64,
		func(d *wire.Deserializer) (simplePair, error) {
			return wire.DeserializeNew[simplePair, *simplePair](d)
		})
	a.DX = dx
	return err
}

// serveEntry answers x-y for every received pair until the parent drops
// its end, then reports how many requests it served.
type serveEntry struct{}

func (serveEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*serveEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (serveEntry) Run(a duplexArgs) i64Result {
	defer a.DX.Close()
	var served int64
	for {
		p, ok, err := a.DX.Recv()
		if err != nil || !ok {
			return i64Result{V: served}
		}
		if err := a.DX.Send(p.X - p.Y); err != nil {
			return i64Result{V: served}
		}
		served++
	}
}

// innerCarrier wraps a Receiver so it can itself be the element type of an
// outer channel — the nested_channel scenario.
type innerCarrier struct{ RX channel.Receiver[int64] }

func (c innerCarrier) MarshalWire(s *wire.Serializer) error { return c.RX.MarshalWire(s) }
func (c *innerCarrier) UnmarshalWire(d *wire.Deserializer) error {
	rx, err := channel.DecodeReceiver[int64](d, wire.GetInt64)
	c.RX = rx
	return err
}

func putCarrier(s *wire.Serializer, c innerCarrier) error { return c.MarshalWire(s) }
func getCarrier(d *wire.Deserializer) (innerCarrier, error) {
	return wire.DeserializeNew[innerCarrier, *innerCarrier](d)
}

type nestedArgs struct{ Outer channel.Receiver[innerCarrier] }

func (a nestedArgs) MarshalWire(s *wire.Serializer) error { return a.Outer.MarshalWire(s) }
func (a *nestedArgs) UnmarshalWire(d *wire.Deserializer) error {
	rx, err := channel.DecodeReceiver[innerCarrier](d, getCarrier)
	a.Outer = rx
	return err
}

// nestedEntry receives a Receiver through another channel and reads one
// value from it.
type nestedEntry struct{}

func (nestedEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*nestedEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (nestedEntry) Run(a nestedArgs) i64Result {
	defer a.Outer.Close()
	c, ok, err := a.Outer.Recv()
	if err != nil || !ok {
		return i64Result{V: -1_000_000}
	}
	defer c.RX.Close()
	v, ok, err := c.RX.Recv()
	if err != nil || !ok {
		return i64Result{V: -1_000_001}
	}
	return i64Result{V: v}
}

// hangEntry blocks until its receiver's peer closes, for the kill test.
type hangEntry struct{}

func (hangEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*hangEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (hangEntry) Run(a recvArgs) i64Result {
	defer a.RX.Close()
	for {
		if _, ok, err := a.RX.Recv(); err != nil || !ok {
			return i64Result{V: 0}
		}
	}
}

type strResult struct{ V string }

func (r strResult) MarshalWire(s *wire.Serializer) error { wire.PutString(s, r.V); return nil }
func (r *strResult) UnmarshalWire(d *wire.Deserializer) error {
	v, err := wire.GetString(d)
	r.V = v
	return err
}

// configEntry reads a key from the config the parent attached to the
// spawn.
type configEntry struct{}

func (configEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*configEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (configEntry) Run(noArgs) strResult {
	cfg, err := spawn.ChildConfig()
	if err != nil {
		return strResult{V: "error: " + err.Error()}
	}
	v, err := cfg.Get("greeting")
	if err != nil {
		return strResult{V: "missing"}
	}
	return strResult{V: v}
}

func init() {
	spawn.RegisterEntrypoint[simpleEntry, noArgs, *noArgs, i64Result, *i64Result]("spawn_test.simple")
	spawn.RegisterEntrypoint[addEntry, addArgs, *addArgs, i64Result, *i64Result]("spawn_test.add")
	spawn.RegisterEntrypoint[swapEntry, simplePair, *simplePair, simplePair, *simplePair]("spawn_test.swap")
	spawn.RegisterEntrypoint[subEntry, recvArgs, *recvArgs, i64Result, *i64Result]("spawn_test.sub")
	spawn.RegisterEntrypoint[serveEntry, duplexArgs, *duplexArgs, i64Result, *i64Result]("spawn_test.serve")
	spawn.RegisterEntrypoint[nestedEntry, nestedArgs, *nestedArgs, i64Result, *i64Result]("spawn_test.nested")
	spawn.RegisterEntrypoint[hangEntry, recvArgs, *recvArgs, i64Result, *i64Result]("spawn_test.hang")
	spawn.RegisterEntrypoint[configEntry, noArgs, *noArgs, strResult, *strResult]("spawn_test.config")
}

func TestSimple(t *testing.T) {
	child, err := spawn.Spawn[noArgs, *noArgs, i64Result, *i64Result](simpleEntry{}, noArgs{}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != 0x0123_4567_89ab_cdef {
		t.Errorf("Join: got %#x, want 0x0123456789abcdef", got.V)
	}
}

func TestAddWithArguments(t *testing.T) {
	child, err := spawn.Spawn[addArgs, *addArgs, i64Result, *i64Result](addEntry{}, addArgs{A: 5, B: 7}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != 12 {
		t.Errorf("Join: got %d, want 12", got.V)
	}
}

func TestComplexArgument(t *testing.T) {
	child, err := spawn.Spawn[simplePair, *simplePair, simplePair, *simplePair](swapEntry{}, simplePair{X: 5, Y: 7}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got != (simplePair{X: 7, Y: 5}) {
		t.Errorf("Join: got %+v, want {X:7 Y:5}", got)
	}
}

func TestPassedReceiver(t *testing.T) {
	tx, rx, err := channel.New[int64](putInt64, wire.GetInt64)
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	defer tx.Close()

	child, err := spawn.Spawn[recvArgs, *recvArgs, i64Result, *i64Result](subEntry{}, recvArgs{RX: rx}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	// The child holds its own kernel duplicate of rx now.
	rx.Close()

	if err := tx.Send(5); err != nil {
		t.Fatalf("Send(5): %v", err)
	}
	if err := tx.Send(7); err != nil {
		t.Fatalf("Send(7): %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != -2 {
		t.Errorf("Join: got %d, want -2", got.V)
	}
}

func TestPassedDuplex(t *testing.T) {
	local, remote, err := channel.NewDuplex[simplePair, int64](
		func(s *wire.Serializer, p simplePair) error { return p.MarshalWire(s) },
		func(d *wire.Deserializer) (simplePair, error) {
			return wire.DeserializeNew[simplePair, *simplePair](d)
		},
		putInt64, wire.GetInt64,
	)
	if err != nil {
		t.Fatalf("NewDuplex: %v", err)
	}

	child, err := spawn.Spawn[duplexArgs, *duplexArgs, i64Result, *i64Result](serveEntry{}, duplexArgs{DX: remote}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	remote.Close()

	for _, p := range []simplePair{{X: 5, Y: 7}, {X: 100, Y: -1}, {X: 53, Y: 2354}} {
		got, err := local.Request(p)
		if err != nil {
			t.Fatalf("Request(%+v): %v", p, err)
		}
		if got != p.X-p.Y {
			t.Errorf("Request(%+v): got %d, want %d", p, got, p.X-p.Y)
		}
	}

	// Dropping the parent end must terminate the child's recv loop
	// cleanly.
	local.Close()
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != 3 {
		t.Errorf("Join: child served %d requests, want 3", got.V)
	}
}

func TestNestedChannel(t *testing.T) {
	outerTx, outerRx, err := channel.New[innerCarrier](putCarrier, getCarrier)
	if err != nil {
		t.Fatalf("channel.New outer: %v", err)
	}
	defer outerTx.Close()

	innerTx, innerRx, err := channel.New[int64](putInt64, wire.GetInt64)
	if err != nil {
		t.Fatalf("channel.New inner: %v", err)
	}
	defer innerTx.Close()

	child, err := spawn.Spawn[nestedArgs, *nestedArgs, i64Result, *i64Result](nestedEntry{}, nestedArgs{Outer: outerRx}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	outerRx.Close()

	if err := outerTx.Send(innerCarrier{RX: innerRx}); err != nil {
		t.Fatalf("Send inner receiver through outer channel: %v", err)
	}
	innerRx.Close()

	if err := innerTx.Send(5); err != nil {
		t.Fatalf("Send through inner channel: %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != 5 {
		t.Errorf("Join: got %d, want 5", got.V)
	}
}

func TestKill(t *testing.T) {
	tx, rx, err := channel.New[int64](putInt64, wire.GetInt64)
	if err != nil {
		t.Fatalf("channel.New: %v", err)
	}
	defer tx.Close()

	child, err := spawn.Spawn[recvArgs, *recvArgs, i64Result, *i64Result](hangEntry{}, recvArgs{RX: rx}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	rx.Close()

	if !child.Exists() {
		t.Errorf("Exists: child reported dead while hanging")
	}
	if err := child.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if _, err := child.Join(); verror.ErrorID(err) != xerrors.ErrSubprocessFailed.ID {
		t.Errorf("Join after Kill: got %v, want ErrSubprocessFailed", err)
	}
	if child.Exists() {
		t.Errorf("Exists: child still reported alive after Join")
	}
}

func TestJoinTwice(t *testing.T) {
	child, err := spawn.Spawn[noArgs, *noArgs, i64Result, *i64Result](simpleEntry{}, noArgs{}, spawn.Options{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	first, err1 := child.Join()
	second, err2 := child.Join()
	if err1 != nil || err2 != nil {
		t.Fatalf("Join: %v, %v", err1, err2)
	}
	if first != second {
		t.Errorf("cached Join: got %+v then %+v", first, second)
	}
}

func TestChildConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Set("greeting", "bonjour")
	child, err := spawn.Spawn[noArgs, *noArgs, strResult, *strResult](configEntry{}, noArgs{}, spawn.Options{Config: cfg})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	got, err := child.Join()
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.V != "bonjour" {
		t.Errorf("config round trip: got %q, want %q", got.V, "bonjour")
	}
}
