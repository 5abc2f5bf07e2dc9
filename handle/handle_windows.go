//go:build windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handle

import (
	"runtime"

	"golang.org/x/sys/windows"
)

// rawHandle is a HANDLE value on Windows.
type rawHandle = windows.Handle

func closeRaw(h Raw) error {
	return windows.CloseHandle(windows.Handle(h))
}

func armFinalizer(h *Owned) {
	runtime.SetFinalizer(h, func(h *Owned) { _ = h.Close() })
}

func disarmFinalizer(h *Owned) {
	runtime.SetFinalizer(h, nil)
}

// Duplicate duplicates h into target, unlike UNIX's in-place duplication:
// Windows handles are only meaningful within the process whose handle table
// they index, so handle migration always duplicates into a specific target
// process (see packet's handle broker for the case where the eventual
// receiver isn't known yet).
func Duplicate(h Raw, target windows.Handle, inheritable bool, closeSource bool) (Raw, error) {
	self := windows.CurrentProcess()
	var newHandle windows.Handle
	flags := uint32(0)
	if closeSource {
		flags |= windows.DUPLICATE_CLOSE_SOURCE
	}
	access := uint32(0)
	sameAccess := uint32(windows.DUPLICATE_SAME_ACCESS)
	err := windows.DuplicateHandle(self, windows.Handle(h), target, &newHandle, access, inheritable, sameAccess|flags)
	return Raw(newHandle), err
}

// SetCloexec maps to Windows' HANDLE_FLAG_INHERIT, inverted: CLOEXEC means
// "not inherited across exec", so on means clearing HANDLE_FLAG_INHERIT.
func SetCloexec(h Raw, on bool) error {
	var flags uint32
	if !on {
		flags = windows.HANDLE_FLAG_INHERIT
	}
	return windows.SetHandleInformation(windows.Handle(h), windows.HANDLE_FLAG_INHERIT, flags)
}

// SetNonblocking is a no-op on Windows: xproc's Windows transport drives
// anonymous pipes with synchronous ReadFile/WriteFile calls, and there is
// no per-handle flag equivalent to UNIX's O_NONBLOCK to set.
func SetNonblocking(h Raw, on bool) error {
	return nil
}
