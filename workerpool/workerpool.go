// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workerpool implements a fixed-size pool of long-lived spawned
// worker processes, each fed one task at a time over a persistent duplex
// channel and returned to the pool once it replies.
package workerpool

import (
	"sync"

	"v.io/v23/verror"

	"v.io/x/xproc/channel"
	"v.io/x/xproc/spawn"
	"v.io/x/xproc/wire"
	"v.io/x/xproc/xerrors"
)

// Job is a unit of work a pool dispatches to one of its workers. Job and
// its RunBoxed result must each be registered with wire.RegisterBoxed, the
// same convention spawn's boxed entry points use, since a single pool's
// task/result types are erased to wire.Boxed on the wire.
type Job interface {
	wire.Object
	RunBoxed() wire.Boxed
}

func putBoxedValue(s *wire.Serializer, b wire.Boxed) error { return wire.PutBoxed(s, b.Value) }
func getBoxedValue(d *wire.Deserializer) (wire.Boxed, error) {
	v, err := wire.GetBoxed(d)
	if err != nil {
		return wire.Boxed{}, err
	}
	return wire.Boxed{Value: v}, nil
}

// workerArgs is the single argument passed to every pool worker: its
// half of a persistent task/result duplex, migrated across the bootstrap
// the same way any handle-bearing value is.
type workerArgs struct {
	duplex channel.Duplex[wire.Boxed, wire.Boxed]
}

func (a workerArgs) MarshalWire(s *wire.Serializer) error { return a.duplex.MarshalWire(s) }

func (a *workerArgs) UnmarshalWire(d *wire.Deserializer) error {
	duplex, err := channel.DecodeDuplex[wire.Boxed, wire.Boxed](d, putBoxedValue, getBoxedValue)
	if err != nil {
		return err
	}
	a.duplex = duplex
	return nil
}

// workerResult is sent once, when the worker's duplex closes and its loop
// returns; it carries no data, only marking that the child exited cleanly.
type workerResult struct{}

func (workerResult) MarshalWire(*wire.Serializer) error     { return nil }
func (*workerResult) UnmarshalWire(*wire.Deserializer) error { return nil }

// workerEntrypoint is the boxed callable every pool worker process runs:
// receive a boxed Job, run it, send back its boxed result, until the pool
// closes the duplex.
type workerEntrypoint struct{}

func (workerEntrypoint) MarshalWire(*wire.Serializer) error     { return nil }
func (*workerEntrypoint) UnmarshalWire(*wire.Deserializer) error { return nil }

func (workerEntrypoint) Run(args workerArgs) workerResult {
	for {
		boxedJob, ok, err := args.duplex.Recv()
		if err != nil || !ok {
			return workerResult{}
		}
		job, ok := boxedJob.Value.(Job)
		if !ok {
			return workerResult{}
		}
		if err := args.duplex.Send(job.RunBoxed()); err != nil {
			return workerResult{}
		}
	}
}

func init() {
	spawn.RegisterEntrypoint[workerEntrypoint, workerArgs, *workerArgs, workerResult, *workerResult]("v.io/x/xproc/workerpool.worker")
}

// worker is one live child process plus the parent-side half of its task
// duplex.
type worker struct {
	duplex channel.Duplex[wire.Boxed, wire.Boxed]
	child  *spawn.Child[workerResult]
}

// WorkerPool dispatches Jobs across a fixed set of spawned worker
// processes, each reused across many Run calls: workers are checked out
// of a buffered channel and returned to it after each task.
type WorkerPool struct {
	mu      sync.Mutex
	workers chan *worker
	closed  bool
}

// New spawns concurrency worker processes and returns a pool ready to
// accept Run calls.
func New(concurrency int, opts spawn.Options) (*WorkerPool, error) {
	workers := make(chan *worker, concurrency)
	for i := 0; i < concurrency; i++ {
		local, remote, err := channel.NewDuplex[wire.Boxed, wire.Boxed](putBoxedValue, getBoxedValue, putBoxedValue, getBoxedValue)
		if err != nil {
			return nil, err
		}
		child, err := spawn.Spawn[workerArgs, *workerArgs, workerResult, *workerResult](workerEntrypoint{}, workerArgs{duplex: remote}, opts)
		// The worker holds its own kernel duplicate of the remote half;
		// this process's copy is done either way.
		remote.Close()
		if err != nil {
			local.Close()
			return nil, err
		}
		workers <- &worker{duplex: local, child: child}
	}
	return &WorkerPool{workers: workers}, nil
}

// Run checks out an idle worker, sends it job, waits for the boxed result,
// and returns the worker to the pool. The caller supplies Output to
// type-assert the boxed reply; a reply decoded as *Output is dereferenced.
func Run[Output any](pool *WorkerPool, job Job) (Output, error) {
	var zero Output
	w, ok := <-pool.workers
	if !ok {
		return zero, verror.New(xerrors.ErrPeerClosed, nil, "worker pool is closed")
	}
	if err := w.duplex.Send(wire.Boxed{Value: job}); err != nil {
		return zero, err
	}
	boxedResult, ok, err := w.duplex.Recv()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, verror.New(xerrors.ErrPeerClosed, nil, "worker exited before returning a result")
	}
	// The boxed decode path materializes on the heap, so a concrete
	// Output arrives as *Output.
	out, ok := boxedResult.Value.(Output)
	if !ok {
		p, pok := boxedResult.Value.(*Output)
		if !pok {
			return zero, verror.New(xerrors.ErrInvalidData, nil, "worker pool: job result has an unexpected type")
		}
		out = *p
	}
	pool.mu.Lock()
	closed := pool.closed
	if !closed {
		pool.workers <- w
	}
	pool.mu.Unlock()
	if closed {
		// Close already drained the channel; this worker was checked
		// out at the time, so its shutdown falls to us.
		_ = w.duplex.Close()
		_, _ = w.child.Join()
	}
	return out, nil
}

// Close stops accepting new work, closes every worker's duplex (which ends
// its Recv loop), and joins each child process.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.workers)
	p.mu.Unlock()

	var firstErr error
	for w := range p.workers {
		if err := w.duplex.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if _, err := w.child.Join(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
