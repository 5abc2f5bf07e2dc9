//go:build !windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handle

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// rawHandle is a file descriptor on UNIX.
type rawHandle = int

func closeRaw(fd Raw) error {
	return unix.Close(fd)
}

func armFinalizer(h *Owned) {
	runtime.SetFinalizer(h, func(h *Owned) { _ = h.Close() })
}

func disarmFinalizer(h *Owned) {
	runtime.SetFinalizer(h, nil)
}

// Duplicate returns a new fd referring to the same open file description as
// fd, with FD_CLOEXEC set on the duplicate (UNIX duplicates "in place" —
// there is no target-process argument, unlike Windows' DuplicateHandle).
func Duplicate(fd Raw) (Raw, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

// SetCloexec sets or clears FD_CLOEXEC on fd.
func SetCloexec(fd Raw, on bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if on {
		flags |= unix.FD_CLOEXEC
	} else {
		flags &^= unix.FD_CLOEXEC
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return err
}

// SetNonblocking sets or clears O_NONBLOCK on fd.
func SetNonblocking(fd Raw, on bool) error {
	return unix.SetNonblock(fd, on)
}
