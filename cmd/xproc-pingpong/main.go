// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xproc-pingpong demonstrates the spawn/channel stack: the parent
// re-execs itself as a worker, hands it one half of a duplex, and plays a
// round of request/response ping-pong before joining on the child.
package main

import (
	"flag"
	"fmt"
	"os"

	"v.io/x/lib/vlog"

	"v.io/x/xproc/channel"
	"v.io/x/xproc/spawn"
	"v.io/x/xproc/wire"
)

var rounds = flag.Int("rounds", 5, "number of ping-pong rounds to play")

func putInt64(s *wire.Serializer, v int64) error { wire.PutInt64(s, v); return nil }

type pongArgs struct {
	DX channel.Duplex[int64, int64]
}

func (a pongArgs) MarshalWire(s *wire.Serializer) error { return a.DX.MarshalWire(s) }
func (a *pongArgs) UnmarshalWire(d *wire.Deserializer) error {
	dx, err := channel.DecodeDuplex[int64, int64](d, putInt64, wire.GetInt64)
	a.DX = dx
	return err
}

type pongResult struct{ Served int64 }

func (r pongResult) MarshalWire(s *wire.Serializer) error { wire.PutInt64(s, r.Served); return nil }
func (r *pongResult) UnmarshalWire(d *wire.Deserializer) error {
	v, err := wire.GetInt64(d)
	r.Served = v
	return err
}

// pongEntry echoes each ping incremented by one until the parent hangs up.
type pongEntry struct{}

func (pongEntry) MarshalWire(*wire.Serializer) error      { return nil }
func (*pongEntry) UnmarshalWire(*wire.Deserializer) error { return nil }
func (pongEntry) Run(a pongArgs) pongResult {
	defer a.DX.Close()
	var served int64
	for {
		v, ok, err := a.DX.Recv()
		if err != nil || !ok {
			return pongResult{Served: served}
		}
		if err := a.DX.Send(v + 1); err != nil {
			return pongResult{Served: served}
		}
		served++
	}
}

func init() {
	spawn.RegisterEntrypoint[pongEntry, pongArgs, *pongArgs, pongResult, *pongResult]("xproc-pingpong.pong")
}

func main() {
	spawn.Init()
	flag.Parse()

	local, remote, err := channel.NewDuplex[int64, int64](putInt64, wire.GetInt64, putInt64, wire.GetInt64)
	if err != nil {
		vlog.Fatalf("creating duplex: %v", err)
	}

	child, err := spawn.Spawn[pongArgs, *pongArgs, pongResult, *pongResult](pongEntry{}, pongArgs{DX: remote}, spawn.Options{})
	if err != nil {
		vlog.Fatalf("spawning worker: %v", err)
	}
	remote.Close()

	for i := 0; i < *rounds; i++ {
		pong, err := local.Request(int64(i))
		if err != nil {
			vlog.Fatalf("round %d: %v", i, err)
		}
		fmt.Printf("ping %d -> pong %d\n", i, pong)
	}
	local.Close()

	result, err := child.Join()
	if err != nil {
		vlog.Fatalf("joining worker: %v", err)
	}
	fmt.Printf("worker served %d rounds, pid %d exited cleanly\n", result.Served, child.Pid())
	os.Exit(0)
}
