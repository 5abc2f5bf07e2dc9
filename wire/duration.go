// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wire

import "time"

// PutDuration writes d as whole seconds (uint64) then the sub-second
// remainder in nanoseconds (uint32).
func PutDuration(s *Serializer, d time.Duration) {
	secs := uint64(d / time.Second)
	nanos := uint32(d % time.Second)
	PutUint64(s, secs)
	PutUint32(s, nanos)
}

// GetDuration reads a Duration encoded by PutDuration.
func GetDuration(d *Deserializer) (time.Duration, error) {
	secs, err := GetUint64(d)
	if err != nil {
		return 0, err
	}
	nanos, err := GetUint32(d)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}
