// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package spawn

import "os/exec"

// applyPlatformOptions is a no-op outside Linux: Options.CloneFlags has no
// meaning where clone(2) is unavailable.
func applyPlatformOptions(*exec.Cmd, Options) {}
