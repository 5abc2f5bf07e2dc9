// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"os"
	"os/exec"

	"v.io/x/lib/envvar"
	"v.io/x/lib/vlog"

	"v.io/x/xproc/handle"
	"v.io/x/xproc/packet"
	"v.io/x/xproc/wire"
)

// Spawn boxes entry together with args, re-execs the running binary with
// the sentinel argv[0], hands the child end of a fresh bootstrap endpoint
// across as an inherited file descriptor (UNIX: cmd.ExtraFiles; Windows:
// an inheritable pipe handle named on the command line), and sends the
// boxed invocation as the first message. The same endpoint, kept open in
// the parent, doubles as the result channel once the child calls back
// into it.
func Spawn[Args any, ArgsPtr wire.ObjectPtr[Args], Result any, ResultPtr wire.ObjectPtr[Result]](entry Entrypoint[Args, Result], args Args, opts Options) (*Child[Result], error) {
	inv := &invocation[Args, ArgsPtr, Result, ResultPtr]{entry: entry, args: args}

	ser := wire.NewSerializer()
	if err := wire.PutBoxed(ser, inv); err != nil {
		return nil, err
	}
	// The drained raws are borrows of handles the caller's values still
	// own (the caller closes them once Spawn returns); the transport
	// duplicates each into the child at send time.
	invBytes, invHandles := ser.Bytes(), ser.DrainHandles()

	parentEP, childEP, err := packet.NewPair()
	if err != nil {
		return nil, err
	}
	setParentBroker(parentEP)

	self, err := os.Executable()
	if err != nil {
		parentEP.Close()
		childEP.Close()
		return nil, err
	}

	cmd := exec.Command(self)
	var closeChildSide func() error
	cmd.Args, closeChildSide, err = childArgsPlatform(cmd, childEP)
	if err != nil {
		parentEP.Close()
		childEP.Close()
		return nil, err
	}
	env := envvar.SliceToMap(os.Environ())
	if opts.Env != nil {
		env = envvar.SliceToMap(opts.Env)
	}
	if opts.Config != nil {
		blob, err := opts.Config.Serialize()
		if err != nil {
			parentEP.Close()
			childEP.Close()
			return nil, err
		}
		env[configEnvVar] = blob
	}
	cmd.Env = envvar.MapToSlice(env)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	applyPlatformOptions(cmd, opts)

	if err := cmd.Start(); err != nil {
		parentEP.Close()
		childEP.Close()
		return nil, err
	}
	// The child has its own duplicate (inherited across exec); this
	// process's copy of the child-side handle is no longer needed and
	// would otherwise keep the pipe/socket half-open. Closed through
	// closeChildSide, not childEP.Close directly, so a UNIX os.File
	// wrapper created for ExtraFiles closes its fd exactly once rather
	// than racing its own GC finalizer against a bypassed close.
	if err := closeChildSide(); err != nil {
		vlog.Errorf("spawn: closing parent's copy of the child bootstrap handle: %v", err)
	}

	vlog.VI(1).Infof("spawn: started child pid=%d", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		done <- sendBootstrap(parentEP, invBytes, invHandles)
	}()
	if err := waitReady(done, opts.ReadyTimeout); err != nil {
		parentEP.Close()
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, err
	}

	recv := endpointResultReceiver[Result, ResultPtr]{ep: parentEP}
	return &Child[Result]{
		proc:       childProcess{cmd: cmd},
		resultRecv: recv,
		legacy:     opts.Legacy,
	}, nil
}

// sendBootstrap serializes and transmits the boxed invocation as the
// bootstrap endpoint's first message.
func sendBootstrap(ep packet.Endpoint, data []byte, handles []handle.Raw) error {
	s := wire.NewSerializer()
	if err := putBootstrapPayload(s, data, handles); err != nil {
		return err
	}
	return ep.Send(s.Bytes(), s.DrainHandles())
}

// endpointResultReceiver adapts the bootstrap endpoint — reused as the
// result channel — into the resultReceiver[Result] interface Child.Join
// expects, decoding exactly one Result message via wire.DeserializeNew.
type endpointResultReceiver[Result any, ResultPtr wire.ObjectPtr[Result]] struct {
	ep packet.Endpoint
}

func (r endpointResultReceiver[Result, ResultPtr]) Recv() (Result, bool, error) {
	var zero Result
	payload, handles, ok, err := r.ep.Recv()
	if err != nil || !ok {
		return zero, ok, err
	}
	d := wire.NewDeserializer(payload, handles)
	defer d.Close()
	v, err := wire.DeserializeNew[Result, ResultPtr](d)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (r endpointResultReceiver[Result, ResultPtr]) Close() error { return r.ep.Close() }
