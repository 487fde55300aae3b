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
	"github.com/srediag/plugin-zmq/internal/logging"
)

type bindOp int

const (
	opBind bindOp = iota
	opUnbind
)

func (o bindOp) String() string {
	if o == opUnbind {
		return "unbind"
	}
	return "bind"
}

// bindState is one asynchronous bind or unbind. It is created on the loop,
// its call runs once on the work pool and complete runs back on the loop.
type bindState struct {
	socket   *Socket
	op       bindOp
	endpoint string
	cb       func(error)
	err      error
	span     *span
}

// Bind binds endpoint on the work pool and calls cb on the loop with the
// result. The socket is busy until then. Argument and state errors are
// returned at once and cb is not called.
func (s *Socket) Bind(endpoint string, cb func(error)) error {
	return s.startBind(opBind, endpoint, cb)
}

// Unbind is the asynchronous counterpart of UnbindSync.
func (s *Socket) Unbind(endpoint string, cb func(error)) error {
	return s.startBind(opUnbind, endpoint, cb)
}

// BindSync binds endpoint on the calling goroutine.
func (s *Socket) BindSync(endpoint string) error {
	return s.bindSync(opBind, endpoint)
}

// UnbindSync unbinds endpoint on the calling goroutine.
func (s *Socket) UnbindSync(endpoint string) error {
	return s.bindSync(opUnbind, endpoint)
}

func (s *Socket) checkBind(op bindOp, endpoint string) error {
	if endpoint == "" {
		return invalidf(op.String(), "empty endpoint")
	}
	if err := s.guard(op.String()); err != nil {
		return err
	}
	if op == opUnbind && !s.caps.HasUnbind {
		return stateError(op.String(), ErrNotSupported)
	}
	return nil
}

func (s *Socket) newBindState(op bindOp, endpoint string, cb func(error)) *bindState {
	return &bindState{
		socket:   s,
		op:       op,
		endpoint: endpoint,
		cb:       cb,
		span:     s.ctx.telemetry.start(op.String(), endpoint),
	}
}

func (s *Socket) bindSync(op bindOp, endpoint string) error {
	if err := s.checkBind(op, endpoint); err != nil {
		return err
	}
	b := s.newBindState(op, endpoint, nil)
	b.call()
	err := b.settle()
	s.scheduleCheck()
	return err
}

func (s *Socket) startBind(op bindOp, endpoint string, cb func(error)) error {
	if err := s.checkBind(op, endpoint); err != nil {
		return err
	}
	b := s.newBindState(op, endpoint, cb)
	s.state = StateBusy
	// the native socket is not touched from the loop while the pool owns it
	if err := s.watcher.Stop(); err != nil {
		logging.Internal.Debugf("zmq: socket %d: pause readiness: %v", s.id, err)
	}
	if err := s.loop.QueueWork(b.call, b.complete); err != nil {
		s.state = StateReady
		s.resume()
		b.span.end(err)
		return stateError(op.String(), err)
	}
	return nil
}

// call runs the native bind or unbind exactly once.
func (b *bindState) call() {
	if b.op == opUnbind {
		b.err = b.socket.native.Unbind(b.endpoint)
		return
	}
	b.err = b.socket.native.Bind(b.endpoint)
}

// settle applies the result on the loop and returns it as a host error.
func (b *bindState) settle() error {
	s := b.socket
	var err error
	if b.err != nil {
		err = transportError(b.op.String(), b.endpoint, b.err)
	} else if b.op == opBind {
		s.addEndpoints(1)
	} else {
		s.addEndpoints(-1)
	}
	s.ctx.metrics.bind(b.op.String(), err)
	b.span.end(err)
	return err
}

// complete runs on the loop once the pool is done with the call.
func (b *bindState) complete() {
	s := b.socket
	if s.closeDeferred {
		s.closeDeferred = false
		b.span.end(ErrClosed)
		if err := s.release(); err != nil {
			s.fail(err)
		}
		if b.cb != nil {
			b.cb(stateError(b.op.String(), ErrClosed))
		}
		return
	}
	s.state = StateReady
	s.resume()
	err := b.settle()
	b.deliver(err)
	s.scheduleCheck()
}

func (b *bindState) deliver(err error) {
	if b.cb != nil {
		b.cb(err)
		return
	}
	if err != nil {
		b.socket.fail(err)
	}
}

func (s *Socket) resume() {
	if err := s.watcher.Start(); err != nil {
		s.fail(err)
	}
}
