//go:build !windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"v.io/x/xproc/handle"
	"v.io/x/xproc/packet"
)

// childArgsPlatform appends the child's bootstrap socket to cmd.ExtraFiles
// (Go's os/exec inherits these across fork+exec without any CLOEXEC window
// for the caller to manage) and returns the sentinel argv naming the
// resulting fd number, plus a closer for the parent's copy of that fd.
// The closer runs f.Close(), not childEP.Close(): os.NewFile installs its
// own finalizer on the fd, and closing the same number twice through two
// unrelated paths risks closing a fd the kernel has since reassigned.
func childArgsPlatform(cmd *exec.Cmd, childEP packet.Endpoint) ([]string, func() error, error) {
	f := os.NewFile(uintptr(childEP.Raw()), "xproc-bootstrap")
	cmd.ExtraFiles = append(cmd.ExtraFiles, f)
	fd := 3 + len(cmd.ExtraFiles) - 1
	return []string{sentinel, strconv.Itoa(fd)}, f.Close, nil
}

// setParentBroker is a no-op on UNIX: handles ride the socket itself as
// SCM_RIGHTS, so no broker process is involved.
func setParentBroker(packet.Endpoint) {}

// workerEndpoint rebuilds the bootstrap endpoint from the worker's
// command-line tokens: a single decimal fd number. CLOEXEC is re-enabled
// immediately, closing the inheritance window exec opened.
func workerEndpoint(args []string) (packet.Endpoint, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected 1 bootstrap argument, got %d", len(args))
	}
	raw, err := parseRawHandle(args[0])
	if err != nil {
		return nil, err
	}
	if err := handle.SetCloexec(raw, true); err != nil {
		return nil, err
	}
	return packet.FromRaw(raw)
}
