/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
)

// ErrWorkerUnitStopTimeoutExceeded is returned by WorkerUnit.Stop when the worker doesn't finish in time.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// Worker performs long-running work until the context is canceled.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error

// Run implements Worker.
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// WorkerUnit runs a Worker as a Unit. Stop cancels the worker's context.
type WorkerUnit struct {
	worker      Worker
	stopTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	started     atomic.Bool
}

var _ Unit = (*WorkerUnit)(nil)

// NewWorkerUnit creates a new WorkerUnit.
// A graceful Stop waits for the worker up to stopTimeout (zero means without a limit).
func NewWorkerUnit(worker Worker, stopTimeout time.Duration) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:      worker,
		stopTimeout: stopTimeout,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start runs the worker in a blocking way. Only the first call (made before Stop) runs it.
func (u *WorkerUnit) Start(fatalErr chan<- error) {
	if !u.started.CompareAndSwap(false, true) {
		return
	}
	defer close(u.done)
	if err := u.worker.Run(u.ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatalErr <- err
	}
}

// Stop cancels the worker and, if gracefully, waits until it returns.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if !gracefully {
		return nil
	}
	if u.started.CompareAndSwap(false, true) {
		close(u.done)
	}

	if u.stopTimeout == 0 {
		<-u.done
		return nil
	}
	timer := time.NewTimer(u.stopTimeout)
	defer timer.Stop()
	select {
	case <-u.done:
		return nil
	case <-timer.C:
		return ErrWorkerUnitStopTimeoutExceeded
	}
}
