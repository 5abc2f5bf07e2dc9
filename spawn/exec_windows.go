//go:build windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"

	"v.io/x/xproc/handle"
	"v.io/x/xproc/packet"
)

// childArgsPlatform threads the child's bootstrap pipe handle onto the
// command line, marking it inheritable via cmd.SysProcAttr's
// AdditionalInheritedHandles rather than ExtraFiles (which os/exec's
// Windows port doesn't support): CreatePipe already set
// HANDLE_FLAG_INHERIT on both ends (packet_windows.go), so this only
// needs to name the handle for CreateProcess's inherit list and put its
// numeric value where runWorker can parse it back: a single bootstrap
// handle takes the place of UNIX's fd number argument.
func childArgsPlatform(cmd *exec.Cmd, childEP packet.Endpoint) ([]string, func() error, error) {
	h := windows.Handle(childEP.Raw())
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}

	// The parent doubles as the handle broker. The worker needs a real,
	// inheritable handle on the parent process to duplicate migrated
	// handles out of; the pseudo-handle CurrentProcess returns only means
	// "self", so materialize a real one here.
	self := windows.CurrentProcess()
	var parentProc windows.Handle
	if err := windows.DuplicateHandle(self, self, self, &parentProc, windows.PROCESS_DUP_HANDLE, true, 0); err != nil {
		return nil, nil, err
	}

	cmd.SysProcAttr.AdditionalInheritedHandles = append(cmd.SysProcAttr.AdditionalInheritedHandles,
		syscall.Handle(h), syscall.Handle(parentProc))
	args := []string{sentinel, strconv.FormatUint(uint64(h), 10), strconv.FormatUint(uint64(parentProc), 10)}
	closer := func() error {
		err := childEP.Close()
		if cerr := windows.CloseHandle(parentProc); err == nil {
			err = cerr
		}
		return err
	}
	return args, closer, nil
}

// setParentBroker makes the parent its own broker: a handle migrated into
// "the broker" is a self-to-self duplicate, and the worker later
// duplicates it out through the parent process handle it inherited.
func setParentBroker(ep packet.Endpoint) {
	packet.SetEndpointBroker(ep, windows.CurrentProcess())
}

// workerEndpoint rebuilds the bootstrap endpoint from the worker's
// command-line tokens: the bootstrap pipe handle and the parent (broker)
// process handle, both as decimal HANDLE values. Inheritance is switched
// back off on the pipe handle, closing the window CreateProcess opened.
func workerEndpoint(args []string) (packet.Endpoint, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected 2 bootstrap arguments, got %d", len(args))
	}
	raw, err := parseRawHandle(args[0])
	if err != nil {
		return nil, err
	}
	if err := handle.SetCloexec(raw, true); err != nil {
		return nil, err
	}
	broker, err := parseRawHandle(args[1])
	if err != nil {
		return nil, err
	}
	ep, err := packet.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	packet.SetEndpointBroker(ep, windows.Handle(broker))
	return ep, nil
}
