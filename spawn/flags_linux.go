// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spawn

import (
	"os/exec"
	"syscall"
)

// applyPlatformOptions threads Options.CloneFlags into the clone(2) call
// os/exec makes for the child.
func applyPlatformOptions(cmd *exec.Cmd, opts Options) {
	if opts.CloneFlags == 0 {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Cloneflags |= opts.CloneFlags
}
