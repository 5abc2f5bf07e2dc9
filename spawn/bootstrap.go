// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"os"
	"strconv"

	"v.io/x/lib/vlog"

	"v.io/x/xproc/config"
	"v.io/x/xproc/handle"
	"v.io/x/xproc/wire"
)

// configEnvVar names the environment variable carrying the serialized
// Config from Spawn to the child, alongside (not inside) the bootstrap
// message — the child may want it before the entry point is decoded.
const configEnvVar = "XPROC_CONFIG"

// ChildConfig returns the Config the parent attached to this process's
// spawn via Options.Config, or an empty Config if none was attached.
func ChildConfig() (config.Config, error) {
	cfg := config.NewConfig()
	if blob := os.Getenv(configEnvVar); blob != "" {
		if err := cfg.MergeFrom(blob); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func parseRawHandle(s string) (handle.Raw, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return handle.Raw(n), nil
}

// The bootstrap message is the boxed invocation's serialized bytes plus
// the handles its own serialization produced, migrated into this message's
// own sidecar. The parent side holds those handles as raw borrows (they
// belong to whatever values the caller serialized); the worker side drains
// them back out as owned duplicates.

func putBootstrapPayload(s *wire.Serializer, data []byte, handles []handle.Raw) error {
	wire.PutBytes(s, data)
	return wire.PutSlice(s, handles, func(s *wire.Serializer, r handle.Raw) error {
		wire.PutRawHandle(s, r)
		return nil
	})
}

func getBootstrapPayload(d *wire.Deserializer) ([]byte, []*handle.Owned, error) {
	b, err := wire.GetBytes(d)
	if err != nil {
		return nil, nil, err
	}
	hs, err := wire.GetSlice(d, wire.GetHandle)
	if err != nil {
		return nil, nil, err
	}
	return b, hs, nil
}

// Init must be called first thing in main, before any spawn call and
// before any other initialization that might itself spawn work. If this
// process was launched by Spawn as a worker, Init never returns: it runs
// the bootstrap protocol and calls os.Exit with the entry point's result.
// Otherwise it returns immediately and main proceeds normally. A binary
// that spawns without having called Init leaves its workers stuck in the
// user main.
func Init() {
	if len(os.Args) < 2 || os.Args[0] != sentinel {
		return
	}
	os.Exit(runWorker(os.Args[1:]))
}

// runWorker is the child side of the bootstrap: parse the bootstrap
// handle, receive the boxed invocation, close the cross-exec inheritance
// window, deserialize and invoke, and report the exit code. Any failure
// before the entry point runs is a diagnostic-then-abort — the worker
// must not unwind into cleanup for state it shares with the parent.
func runWorker(args []string) int {
	ep, err := workerEndpoint(args)
	if err != nil {
		abortf("xproc: bad bootstrap arguments %q: %v", args, err)
	}

	outerBytes, outerHandles, ok, err := ep.Recv()
	if err != nil {
		abortf("xproc: failed to read bootstrap message: %v", err)
	}
	if !ok {
		abortf("xproc: bootstrap channel closed before delivering the entry point")
	}
	for _, h := range outerHandles {
		if err := handle.SetCloexec(h.Raw(), true); err != nil {
			abortf("xproc: failed to re-enable CLOEXEC on inherited handle: %v", err)
		}
	}

	outer := wire.NewDeserializer(outerBytes, outerHandles)
	defer outer.Close()
	innerBytes, innerHandles, err := getBootstrapPayload(outer)
	if err != nil {
		abortf("xproc: failed to unwrap bootstrap payload: %v", err)
	}

	d := wire.NewDeserializer(innerBytes, innerHandles)
	defer d.Close()

	inv, err := decodeInvocation(d)
	if err != nil {
		abortf("xproc: failed to deserialize entry point: %v", err)
	}

	vlog.VI(1).Infof("xproc worker pid=%d invoking deserialized entry point", os.Getpid())
	return inv.invoke(ep)
}

// abortf prints a diagnostic to stderr and terminates the process
// immediately, without running deferred cleanups.
func abortf(format string, args ...any) {
	vlog.Errorf(format, args...)
	abortProcess()
}
