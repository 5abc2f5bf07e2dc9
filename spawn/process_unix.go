//go:build !windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"os"
	"syscall"
)

// processExists probes liveness with the conventional signal-0 trick,
// which delivers no signal but still reports ESRCH if the pid is gone or
// already reaped.
func processExists(p *os.Process) bool {
	return p.Signal(syscall.Signal(0)) == nil
}
