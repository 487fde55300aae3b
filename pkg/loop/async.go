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
	"sync/atomic"
)

// Async wakes the loop from any goroutine. Sends issued before the callback
// runs are coalesced into one call.
type Async struct {
	handle
	cb      func()
	queued  atomic.Bool
	stopped atomic.Bool
}

// NewAsync creates an active, ref'd async handle.
func (l *Loop) NewAsync(cb func()) *Async {
	a := &Async{handle: newHandle(l), cb: cb}
	a.setActive(true)
	return a
}

// Send schedules the callback. Safe for concurrent use; a no-op after Close.
func (a *Async) Send() {
	if a.stopped.Load() {
		return
	}
	if a.queued.CompareAndSwap(false, true) {
		if err := a.loop.Post(a.fire); err != nil {
			a.queued.Store(false)
		}
	}
}

// Close deactivates the handle.
func (a *Async) Close() {
	if a.closed {
		return
	}
	a.stopped.Store(true)
	a.setActive(false)
	a.closed = true
}

func (a *Async) fire() {
	a.queued.Store(false)
	if a.closed {
		return
	}
	a.cb()
}
