// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"v.io/v23/verror"
	"v.io/x/lib/vlog"

	"v.io/x/xproc/config"
	"v.io/x/xproc/xerrors"
)

// sentinel is the argv[0] token that identifies a re-exec'd worker
// process. Any other argv[0] falls through to the user's main.
const sentinel = "_xproc_worker_"

// Options controls a single Spawn call. The zero value is the default:
// current-process environment, newest protocol semantics, no extra config.
type Options struct {
	// Env, if non-nil, replaces the child's inherited environment
	// entirely (as "KEY=VALUE" strings). Nil means inherit os.Environ().
	Env []string

	// Config is serialized and handed to the child alongside the entry
	// point, readable there via ChildConfig.
	Config config.Config

	// ReadyTimeout bounds how long Spawn waits for the child to reach
	// the bootstrap handshake before giving up. Zero means wait
	// indefinitely.
	ReadyTimeout time.Duration

	// Legacy selects the older bootstrap semantics: a zero-value result
	// is not distinguished from "no result sent", so a child that exits
	// 0 without replying joins cleanly. When false (the default), such
	// an exit is an error.
	Legacy bool

	// CloneFlags, on Linux, is OR-ed into the clone(2) flags used to
	// create the child. Zero means the standard fork+exec path. Ignored
	// on other platforms.
	CloneFlags uintptr
}

// Child is the parent's handle on a spawned process, with a typed result
// channel attached.
type Child[Result any] struct {
	proc       childProcess
	resultRecv resultReceiver[Result]

	joinMu  sync.Mutex
	joined  bool
	joinVal Result
	joinErr error

	legacy bool
}

type resultReceiver[Result any] interface {
	Recv() (Result, bool, error)
	Close() error
}

// Pid returns the child's process id, or 0 if it does not exist.
func (c *Child[Result]) Pid() int { return c.proc.Pid() }

// Exists reports whether the child process can still be signaled.
func (c *Child[Result]) Exists() bool { return c.proc.Exists() }

// Kill sends SIGKILL (UNIX) / TerminateProcess (Windows). It does not
// reap; a subsequent Join performs the wait.
func (c *Child[Result]) Kill() error { return c.proc.Kill() }

// Signal sends an OS signal to the child. Windows only recognizes
// os.Kill; any other value returns an error there, same as os.Process.
func (c *Child[Result]) Signal(sig os.Signal) error { return c.proc.Signal(sig) }

// Join reads the result from the result channel, waits on the process,
// and combines the two into a single outcome.
func (c *Child[Result]) Join() (Result, error) {
	c.joinMu.Lock()
	defer c.joinMu.Unlock()
	if c.joined {
		return c.joinVal, c.joinErr
	}
	c.joined = true

	val, gotVal, recvErr := c.resultRecv.Recv()
	code, waitErr := c.proc.Wait()

	switch {
	case waitErr != nil:
		c.joinErr = waitErr
	case code != 0:
		c.joinErr = verror.New(xerrors.ErrSubprocessFailed, nil, code)
	case recvErr != nil:
		c.joinErr = recvErr
	case !gotVal && c.legacy:
		// Under the legacy semantics an empty result never rode the
		// wire, so a clean close here just means "done", not "no value
		// returned".
	case !gotVal:
		c.joinErr = verror.New(xerrors.ErrNoResult, nil, "subprocess terminated without returning a value")
	default:
		c.joinVal = val
	}
	return c.joinVal, c.joinErr
}

// Clean kills the child (if still running) and reaps it, discarding the
// result.
func (c *Child[Result]) Clean() error {
	_ = c.Kill()
	_, err := c.Join()
	return err
}

// waitReady races the bootstrap handshake against a timeout, built on
// errgroup's context-cancellation idiom rather than a bespoke select.
func waitReady(done <-chan error, timeout time.Duration) error {
	if timeout <= 0 {
		return <-done
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	result := make(chan error, 1)
	g.Go(func() error {
		select {
		case err := <-done:
			result <- err
		case <-gctx.Done():
			vlog.Errorf("spawn: timed out waiting for child bootstrap handshake")
			result <- verror.New(xerrors.ErrTimeout, nil)
		}
		return nil
	})
	_ = g.Wait()
	return <-result
}
