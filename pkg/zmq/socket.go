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

package zmq

import (
	"fmt"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/internal/transport"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

// Socket is one library socket driven by the context loop.
//
// Its readiness fd is watched for as long as the socket is open. The watch
// keeps the loop alive only while the socket has at least one endpoint and
// Unref was not called.
type Socket struct {
	id     uint64
	ctx    *Context
	typ    SocketType
	caps   api.Capabilities
	loop   *loop.Loop
	native api.NativeSocket

	watcher       *loop.Watcher
	state         State
	closeDeferred bool
	endpoints     int
	unrefd        bool
	pending       bool
	zeroCopy      bool
	inReadiness   bool
	checkQueued   bool
	recheck       bool

	onReadable func()
	onWritable func()
	onError    func(error)

	// zero-copy sends whose buffers the library may still read
	inflight []*BufferReference
	releaser *loop.Async

	monitor *monitor
}

// NewSocket creates a socket of type t and starts watching its readiness fd.
// On failure nothing is left open. Sockets need an fd poller, so outside
// Linux NewSocket fails with an error wrapping loop.ErrUnsupportedPlatform.
func (c *Context) NewSocket(t SocketType) (*Socket, error) {
	if c.closed.Load() {
		return nil, stateError("socket", ErrContextClosed)
	}
	if !t.Valid() {
		return nil, invalidf("socket", "unknown socket type %d", int(t))
	}
	native, err := c.native.NewSocket(t)
	if err != nil {
		return nil, transportError("socket", "", err)
	}
	s := &Socket{
		id:       socketIDs.Add(1),
		ctx:      c,
		typ:      t,
		caps:     c.caps,
		loop:     c.loop,
		native:   native,
		zeroCopy: c.cfg.ZeroCopy,
	}
	fd, err := transport.RetryValue(native.Fd)
	if err == nil {
		s.watcher, err = c.loop.WatchFD(fd, s.onReadiness)
	}
	if err == nil {
		s.watcher.Unref()
		err = s.watcher.Start()
	}
	if err != nil {
		if s.watcher != nil {
			s.watcher.Close()
		}
		if cerr := transport.Retry(native.Close); cerr != nil {
			logging.Internal.Warnf("zmq: close socket after failed setup: %v", cerr)
		}
		return nil, transportError("socket", "", err)
	}
	c.sockets.Set(s.id, s)
	return s, nil
}

// ID returns the process unique socket id.
func (s *Socket) ID() uint64 { return s.id }

// Type returns the socket type.
func (s *Socket) Type() SocketType { return s.typ }

// Context returns the owning context, or nil once the socket is closed.
func (s *Socket) Context() *Context { return s.ctx }

// Loop returns the loop the socket runs on. It stays valid after Close.
func (s *Socket) Loop() *loop.Loop { return s.loop }

// Capabilities returns what the library behind the socket supports.
func (s *Socket) Capabilities() api.Capabilities { return s.caps }

// State returns the lifecycle state.
func (s *Socket) State() State { return s.state }

// Endpoints returns the number of active binds and connects.
func (s *Socket) Endpoints() int { return s.endpoints }

// ZeroCopy reports whether Send pins buffers instead of copying them. A
// pinned buffer must not be reused until its reference is released.
func (s *Socket) ZeroCopy() bool { return s.zeroCopy }

// Pending reports whether write readiness is wanted.
func (s *Socket) Pending() bool { return s.pending }

// SetPending sets write readiness interest. Turning it on queues a readiness
// check, since the writable edge may already have passed.
func (s *Socket) SetPending(pending bool) {
	s.pending = pending
	if pending {
		s.scheduleCheck()
	}
}

// SetReadinessHandlers sets the callbacks run on the loop when the socket is
// readable, and when it is writable while Pending. onReadable is expected to
// read until Recv reports nothing; a partial drain is resumed only on the
// next edge.
func (s *Socket) SetReadinessHandlers(onReadable, onWritable func()) {
	s.onReadable = onReadable
	s.onWritable = onWritable
}

// SetErrorHandler sets where asynchronous errors without a callback go.
// Without one they are logged.
func (s *Socket) SetErrorHandler(fn func(error)) {
	s.onError = fn
}

// Ref makes the socket keep the loop alive while it has endpoints.
func (s *Socket) Ref() {
	s.unrefd = false
	s.updateRef()
}

// Unref stops the socket from keeping the loop alive.
func (s *Socket) Unref() {
	s.unrefd = true
	s.updateRef()
}

// KeepAlive reports whether the socket currently keeps the loop alive.
func (s *Socket) KeepAlive() bool {
	return s.state != StateClosed && s.watcher.HasRef()
}

func (s *Socket) updateRef() {
	if s.state == StateClosed {
		return
	}
	if s.endpoints > 0 && !s.unrefd {
		s.watcher.Ref()
	} else {
		s.watcher.Unref()
	}
}

func (s *Socket) addEndpoints(delta int) {
	s.endpoints += delta
	if s.endpoints < 0 {
		s.endpoints = 0
	}
	s.updateRef()
}

// guard rejects operations on a busy or closed socket before any native call.
func (s *Socket) guard(op string) error {
	switch s.state {
	case StateBusy:
		return stateError(op, ErrBusy)
	case StateClosed:
		return stateError(op, ErrClosed)
	}
	if s.ctx.closed.Load() {
		return stateError(op, ErrContextClosed)
	}
	return nil
}

// Connect adds a connect endpoint.
func (s *Socket) Connect(endpoint string) error {
	if endpoint == "" {
		return invalidf("connect", "empty endpoint")
	}
	if err := s.guard("connect"); err != nil {
		return err
	}
	if err := transport.Retry(func() error { return s.native.Connect(endpoint) }); err != nil {
		return transportError("connect", endpoint, err)
	}
	s.addEndpoints(1)
	s.scheduleCheck()
	return nil
}

// Disconnect removes a connect endpoint.
func (s *Socket) Disconnect(endpoint string) error {
	if endpoint == "" {
		return invalidf("disconnect", "empty endpoint")
	}
	if err := s.guard("disconnect"); err != nil {
		return err
	}
	if !s.caps.HasDisconnect {
		return stateError("disconnect", ErrNotSupported)
	}
	if err := transport.Retry(func() error { return s.native.Disconnect(endpoint) }); err != nil {
		return transportError("disconnect", endpoint, err)
	}
	s.addEndpoints(-1)
	return nil
}

// Subscribe adds a SUB prefix filter.
func (s *Socket) Subscribe(prefix []byte) error {
	return s.SetOption(OptSubscribe, prefix)
}

// Unsubscribe removes a SUB prefix filter.
func (s *Socket) Unsubscribe(prefix []byte) error {
	return s.SetOption(OptUnsubscribe, prefix)
}

// onReadiness runs on the loop for every edge of the readiness fd.
func (s *Socket) onReadiness() {
	s.checkQueued = false
	if s.state != StateReady {
		return
	}
	ev, err := transport.RetryValue(s.native.Events)
	if err != nil {
		s.fail(transportError("events", "", err))
		return
	}
	s.inReadiness = true
	s.recheck = false
	defer func() {
		s.inReadiness = false
		// ev is stale once the handlers made native calls; the edge for
		// anything that arrived since may already be gone
		if s.recheck {
			s.recheck = false
			s.scheduleCheck()
		}
	}()
	if ev.Readable() && s.onReadable != nil {
		s.onReadable()
	}
	if s.state == StateReady && s.pending && ev.Writable() && s.onWritable != nil {
		s.onWritable()
	}
}

// scheduleCheck queues one readiness check. Native calls can consume the fd
// edge, so every path that makes one ends here. Inside the readiness
// handlers the check is deferred until they return.
func (s *Socket) scheduleCheck() {
	if s.inReadiness {
		s.recheck = true
		return
	}
	if s.checkQueued || s.state != StateReady {
		return
	}
	s.checkQueued = true
	if err := s.loop.Post(s.onReadiness); err != nil {
		s.checkQueued = false
		logging.Internal.Debugf("zmq: socket %d: queue readiness check: %v", s.id, err)
	}
}

func (s *Socket) fail(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	logging.Internal.Errorf("zmq: socket %d: %v", s.id, err)
}

// Close closes the socket. It is idempotent. Closing a busy socket marks it
// closed at once and finishes when the running bind or unbind completes.
// A native close failure is returned but the socket stays closed.
func (s *Socket) Close() error {
	switch s.state {
	case StateClosed:
		return nil
	case StateBusy:
		s.state = StateClosed
		s.closeDeferred = true
		return nil
	}
	s.state = StateClosed
	return s.release()
}

// release frees everything the socket holds, in order: the native socket,
// the context registration and reference, the keep-alive, the readiness
// watch, pinned buffers and the monitor.
func (s *Socket) release() error {
	err := transport.Retry(s.native.Close)
	s.ctx.sockets.Remove(s.id)
	s.ctx = nil
	s.endpoints = 0
	s.watcher.Unref()
	s.watcher.Close()
	s.sweepReleases()
	if s.releaser != nil {
		s.releaser.Close()
	}
	s.inflight = nil
	if s.monitor != nil {
		s.monitor.stop(false)
	}
	if err != nil {
		return transportError("close", "", err)
	}
	return nil
}

func (s *Socket) String() string {
	return fmt.Sprintf("socket(%d, %s, %s)", s.id, s.typ, s.state)
}
