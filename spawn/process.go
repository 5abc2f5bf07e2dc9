// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"os"
	"os/exec"
	"sync"

	"v.io/v23/verror"

	"v.io/x/xproc/xerrors"
)

// childProcess wraps *exec.Cmd with a cached, concurrency-safe Wait —
// calling Wait from both Child.Join and a direct caller must not
// double-Wait the same process.
type childProcess struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	waited bool
	err    error
}

func (p *childProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *childProcess) Exists() bool {
	if p.cmd.Process == nil {
		return false
	}
	return processExists(p.cmd.Process)
}

func (p *childProcess) Kill() error {
	if p.cmd.Process == nil {
		return verror.New(xerrors.ErrNoSuchProcess, nil)
	}
	return p.cmd.Process.Kill()
}

func (p *childProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return verror.New(xerrors.ErrNoSuchProcess, nil)
	}
	return p.cmd.Process.Signal(sig)
}

// Wait runs cmd.Wait() exactly once, caching the result for subsequent
// callers, and reports the process's exit code.
func (p *childProcess) Wait() (code int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.waited {
		p.err = p.cmd.Wait()
		p.waited = true
	}
	if p.err == nil {
		return 0, nil
	}
	if exitErr, ok := p.err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, p.err
}
