// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config implements the string-keyed configuration blob handed
// from parent to child across a bootstrap.
package config

import (
	"sort"
	"strings"
	"sync"

	"v.io/v23/verror"
)

// Config is a mutable, serializable string-to-string map. A *config is
// merged into, not replaced by, MergeFrom — existing keys not present in
// the merged-in data are left untouched, and keys present in both take the
// incoming value.
type Config interface {
	// Get returns the value for k, or a verror.ErrNoExist error if k is
	// not set.
	Get(k string) (string, error)

	// Set assigns v to k, overwriting any existing value.
	Set(k, v string)

	// Clear removes k, if present.
	Clear(k string)

	// Dump returns a snapshot copy of the entire config.
	Dump() map[string]string

	// Serialize encodes the config into a transport-safe string suitable
	// for MergeFrom on the receiving side.
	Serialize() (string, error)

	// MergeFrom decodes s (as produced by Serialize) and merges its
	// key/value pairs into the receiver, overwriting existing keys.
	MergeFrom(s string) error
}

type config struct {
	mu   sync.Mutex
	data map[string]string
}

// NewConfig returns an empty Config.
func NewConfig() Config {
	return &config{data: map[string]string{}}
}

func (c *config) Get(k string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[k]
	if !ok {
		return "", verror.New(verror.ErrNoExist, nil, k)
	}
	return v, nil
}

func (c *config) Set(k, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = v
}

func (c *config) Clear(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, k)
}

func (c *config) Dump() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Serialize encodes each pair as an escaped "key=value" line, sorted by key
// for deterministic output (useful for tests and logging), joined by "\n".
func (c *config) Serialize() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, escape(k)+"="+escape(c.data[k]))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *config) MergeFrom(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == "" {
		return nil
	}
	for _, line := range strings.Split(s, "\n") {
		k, v, err := splitLine(line)
		if err != nil {
			return err
		}
		c.data[k] = v
	}
	return nil
}

func splitLine(line string) (k, v string, err error) {
	// The separator is the first '=' not escaped by a backslash.
	i := -1
	for j := 0; j < len(line); j++ {
		if line[j] == '\\' {
			j++
			continue
		}
		if line[j] == '=' {
			i = j
			break
		}
	}
	if i < 0 {
		return "", "", verror.New(verror.ErrBadArg, nil, "malformed config line", line)
	}
	return unescape(line[:i]), unescape(line[i+1:]), nil
}

// escape/unescape guard against '=' and '\n' inside keys or values, which
// would otherwise be ambiguous with the line/field delimiters.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "=", `\=`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
