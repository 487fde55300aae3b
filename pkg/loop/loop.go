/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package loop is a single goroutine event loop with fd readiness watchers,
// one-shot timers, coalescing async signals and a bounded work pool whose
// completions run back on the loop.
//
// Every callback registered with a Loop runs on the goroutine that called Run,
// never concurrently with another callback. Handles are not safe for use from
// other goroutines, except Async.Send and Loop.Post/Call.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/srediag/plugin-zmq/internal/logging"
)

var (
	// ErrClosed is returned by every operation on a closed loop.
	ErrClosed = errors.New("loop: closed")
	// ErrRunning is returned when Run is called while the loop already runs.
	ErrRunning = errors.New("loop: already running")
	// ErrUnsupportedPlatform is returned by WatchFD where no poller exists.
	ErrUnsupportedPlatform = errors.New("loop: fd watching is not supported on this platform")
)

// Loop is the scheduler that owns every host-visible callback.
type Loop struct {
	cfg    Config
	inbox  *inbox
	pool   *ants.Pool
	poller poller

	refs    atomic.Int64 // ref'd and active handles
	work    atomic.Int64 // QueueWork items not yet completed
	running atomic.Bool
	stopReq atomic.Bool
	closed  atomic.Bool

	closeOnce sync.Once
}

// New creates a loop. A nil config means DefaultConfig.
func New(cfg *Config) (*Loop, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	l := &Loop{
		cfg:   *cfg,
		inbox: newInbox(cfg.InboxHint),
	}
	pool, err := ants.NewPool(cfg.WorkerPoolSize, ants.WithPanicHandler(func(p interface{}) {
		logging.Internal.Errorf("loop: work item panic: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("loop: create work pool: %w", err)
	}
	l.pool = pool
	p, err := newPoller(l)
	if err != nil {
		pool.Release()
		return nil, err
	}
	l.poller = p
	return l, nil
}

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	if l.closed.Load() {
		return ErrClosed
	}
	return l.inbox.put(task(fn))
}

// Call runs fn on the loop goroutine and waits for it to return.
// It must not be called from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dispatches callbacks until ctx is done, Stop is called or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

// RunUntilIdle is Run that also returns once nothing keeps the loop alive.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

// Stop makes the running Run return after the current batch.
func (l *Loop) Stop() {
	l.stopReq.Store(true)
	_ = l.inbox.put(task(nil))
}

// Alive reports whether ref'd handles, outstanding work or queued tasks remain.
func (l *Loop) Alive() bool {
	return l.refs.Load() > 0 || l.work.Load() > 0 || l.inbox.size() > 0
}

// Running reports whether a goroutine is inside Run.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int64 {
	return l.inbox.size()
}

// Close stops the poller, releases the work pool and disposes the inbox.
// Pending tasks are dropped. Close is idempotent.
func (l *Loop) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		err = l.poller.close()
		l.pool.Release()
		l.inbox.dispose()
	})
	return err
}

func (l *Loop) run(ctx context.Context, untilIdle bool) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)
	l.stopReq.Store(false)

	stop := context.AfterFunc(ctx, func() { _ = l.inbox.put(task(nil)) })
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.stopReq.CompareAndSwap(true, false) {
			return nil
		}
		if untilIdle && !l.Alive() {
			return nil
		}
		tasks, err := l.inbox.take(int64(l.cfg.BatchSize))
		for _, t := range tasks {
			l.dispatch(t)
		}
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (l *Loop) dispatch(t task) {
	if t == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Internal.Errorf("loop: callback panic: %v", r)
		}
	}()
	t()
}
