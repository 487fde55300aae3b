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
	"time"
)

// Timer runs its callback on the loop once per Start. Owners that need a
// repeating timer call Start again from the callback.
type Timer struct {
	handle
	cb  func()
	t   *time.Timer
	gen uint64
}

// NewTimer creates a stopped, ref'd timer.
func (l *Loop) NewTimer(cb func()) *Timer {
	return &Timer{handle: newHandle(l), cb: cb}
}

// Start (re)arms the timer. A previous arming is cancelled.
func (t *Timer) Start(d time.Duration) {
	if t.closed {
		return
	}
	t.cancel()
	gen := t.gen
	t.setActive(true)
	t.t = time.AfterFunc(d, func() {
		_ = t.loop.Post(func() { t.fire(gen) })
	})
}

// Stop disarms the timer. A fire already queued on the loop is dropped.
func (t *Timer) Stop() {
	t.cancel()
	t.setActive(false)
}

// Close stops the timer for good.
func (t *Timer) Close() {
	t.Stop()
	t.closed = true
}

func (t *Timer) cancel() {
	t.gen++
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}

func (t *Timer) fire(gen uint64) {
	if gen != t.gen || t.closed {
		return
	}
	t.t = nil
	t.setActive(false)
	t.cb()
}
