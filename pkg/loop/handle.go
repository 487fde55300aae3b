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

// handle carries the keep-alive bookkeeping shared by every handle type.
// A handle keeps its loop alive only while it is both active and ref'd.
type handle struct {
	loop   *Loop
	active bool
	ref    bool
	closed bool
}

func newHandle(l *Loop) handle {
	return handle{loop: l, ref: true}
}

// Ref makes an active handle keep the loop alive. Idempotent.
func (h *handle) Ref() {
	if h.ref {
		return
	}
	h.ref = true
	if h.active {
		h.loop.refs.Add(1)
	}
}

// Unref stops the handle from keeping the loop alive. Idempotent.
func (h *handle) Unref() {
	if !h.ref {
		return
	}
	h.ref = false
	if h.active {
		h.loop.refs.Add(-1)
	}
}

// HasRef reports whether the handle is ref'd.
func (h *handle) HasRef() bool {
	return h.ref
}

// Active reports whether the handle is started.
func (h *handle) Active() bool {
	return h.active
}

// Closed reports whether Close was called.
func (h *handle) Closed() bool {
	return h.closed
}

func (h *handle) setActive(active bool) {
	if h.active == active {
		return
	}
	h.active = active
	if !h.ref {
		return
	}
	if active {
		h.loop.refs.Add(1)
	} else {
		h.loop.refs.Add(-1)
	}
}
