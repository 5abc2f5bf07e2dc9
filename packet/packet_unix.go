//go:build !windows

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packet

import (
	"golang.org/x/sys/unix"

	"v.io/v23/verror"
	"v.io/x/xproc/handle"
	"v.io/x/xproc/xerrors"
)

// unixEndpoint is one half of a SOCK_SEQPACKET socketpair.
type unixEndpoint struct {
	fd int
}

// NewPair creates a connected SOCK_SEQPACKET pair, CLOEXEC by default so
// unrelated children cannot inherit it.
func NewPair() (Endpoint, Endpoint, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}
	return &unixEndpoint{fd: fds[0]}, &unixEndpoint{fd: fds[1]}, nil
}

// FromRaw wraps an inherited or received fd as an Endpoint, forcibly
// disabling O_NONBLOCK: a migrated endpoint always starts out blocking.
func FromRaw(fd handle.Raw) (Endpoint, error) {
	if err := handle.SetNonblocking(fd, false); err != nil {
		return nil, err
	}
	return &unixEndpoint{fd: fd}, nil
}

// FromRawSender and FromRawReceiver both reconstruct the same socket-half
// endpoint: a SOCK_SEQPACKET fd is bidirectional, so there is only one
// kind of UNIX Endpoint regardless of which direction the caller cares
// about.
func FromRawSender(fd handle.Raw) (Endpoint, error)   { return FromRaw(fd) }
func FromRawReceiver(fd handle.Raw) (Endpoint, error) { return FromRaw(fd) }

func (e *unixEndpoint) Raw() handle.Raw { return e.fd }

func (e *unixEndpoint) Close() error { return unix.Close(e.fd) }

// Send chunks payload/handles into segments no larger than
// MaxPacketSize-1 bytes / MaxPacketFDs handles, marking the final segment
// with a leading 1 byte.
func (e *unixEndpoint) Send(payload []byte, handles []handle.Raw) error {
	dataPos, fdsPos := 0, 0
	for {
		bufferEnd := min(len(payload), dataPos+MaxPacketSize-1)
		fdsEnd := min(len(handles), fdsPos+MaxPacketFDs)
		isLast := bufferEnd == len(payload) && fdsEnd == len(handles)

		marker := byte(0)
		if isLast {
			marker = 1
		}
		buf := append([]byte{marker}, payload[dataPos:bufferEnd]...)

		var oob []byte
		if fdsEnd > fdsPos {
			ints := make([]int, fdsEnd-fdsPos)
			for i, h := range handles[fdsPos:fdsEnd] {
				ints[i] = h
			}
			oob = unix.UnixRights(ints...)
		}

		for {
			err := unix.Sendmsg(e.fd, buf, oob, nil, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				return err
			}
			break
		}

		dataPos = bufferEnd
		fdsPos = fdsEnd
		if isLast {
			return nil
		}
	}
}

// Recv accumulates segments until the one whose marker byte is 1, then
// returns the assembled message.
func (e *unixEndpoint) Recv() ([]byte, []*handle.Owned, bool, error) {
	var data []byte
	var handles []*handle.Owned

	for {
		buf := make([]byte, MaxPacketSize)
		oob := make([]byte, unix.CmsgSpace(MaxPacketFDs*4))

		n, oobn, _, _, err := unix.Recvmsg(e.fd, buf, oob, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, handles, false, err
		}

		if n == 0 && oobn == 0 {
			if len(data) == 0 && len(handles) == 0 {
				return nil, nil, false, nil
			}
			return nil, handles, false, verror.New(xerrors.ErrUnterminatedMessage, nil)
		}

		if oobn > 0 {
			cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
			if err != nil {
				return nil, handles, false, err
			}
			for _, cmsg := range cmsgs {
				if cmsg.Header.Level != unix.SOL_SOCKET || cmsg.Header.Type != unix.SCM_RIGHTS {
					return nil, handles, false, verror.New(xerrors.ErrUnexpectedAncillary, nil)
				}
				fds, err := unix.ParseUnixRights(&cmsg)
				if err != nil {
					return nil, handles, false, err
				}
				for _, fd := range fds {
					handles = append(handles, handle.NewOwned(fd))
				}
			}
		}

		if n == 0 {
			return nil, handles, false, verror.New(xerrors.ErrInvalidData, nil, "empty segment with no marker byte")
		}

		marker := buf[0]
		data = append(data, buf[1:n]...)

		if marker == 1 {
			return data, handles, true, nil
		}
	}
}
