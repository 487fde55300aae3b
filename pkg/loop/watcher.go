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

package loop

import (
	"fmt"

	"github.com/srediag/plugin-zmq/internal/logging"
)

// Watcher calls back on the loop when its fd becomes readable.
// The fd is armed one-shot and re-armed after the callback returns, so a
// callback never overlaps with the next notification for the same fd.
type Watcher struct {
	handle
	fd         int
	cb         func()
	registered bool
}

// WatchFD creates a stopped watcher for fd. The watcher starts ref'd.
func (l *Loop) WatchFD(fd int, cb func()) (*Watcher, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if cb == nil {
		return nil, fmt.Errorf("loop: nil watcher callback")
	}
	if !l.poller.supported() {
		return nil, ErrUnsupportedPlatform
	}
	return &Watcher{handle: newHandle(l), fd: fd, cb: cb}, nil
}

// Fd returns the watched descriptor.
func (w *Watcher) Fd() int {
	return w.fd
}

// Start arms the watcher.
func (w *Watcher) Start() error {
	if w.closed {
		return ErrClosed
	}
	if w.active {
		return nil
	}
	if err := w.loop.poller.arm(w, !w.registered); err != nil {
		return err
	}
	w.registered = true
	w.setActive(true)
	return nil
}

// Stop disarms the watcher. A notification already queued is dropped.
func (w *Watcher) Stop() error {
	if !w.active {
		return nil
	}
	w.setActive(false)
	if !w.registered {
		return nil
	}
	w.registered = false
	return w.loop.poller.remove(w)
}

// Close stops the watcher for good.
func (w *Watcher) Close() {
	if w.closed {
		return
	}
	if err := w.Stop(); err != nil {
		logging.Internal.Debugf("loop: stop watcher fd=%d: %v", w.fd, err)
	}
	w.closed = true
}

// fire runs on the loop. The fd is re-armed even when cb panics.
func (w *Watcher) fire() {
	if !w.active || w.closed {
		return
	}
	defer w.rearm()
	w.cb()
}

func (w *Watcher) rearm() {
	if !w.active || w.closed {
		return
	}
	if err := w.loop.poller.arm(w, false); err != nil {
		logging.Internal.Errorf("loop: re-arm watcher fd=%d: %v", w.fd, err)
	}
}
