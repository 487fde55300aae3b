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
	"runtime"
	"sync/atomic"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/internal/transport"
)

// messageRef owns one received library frame and closes it exactly once.
type messageRef struct {
	frame    api.Frame
	released atomic.Bool
}

func (r *messageRef) release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	if err := r.frame.Close(); err != nil {
		logging.Internal.Warnf("zmq: release frame: %v", err)
	}
}

// Message is one received frame.
//
// The library frame is released by Release, or by the garbage collector
// once the Message is unreachable. Bytes stays valid either way.
type Message struct {
	ref  *messageRef
	buf  []byte
	size int
	more bool
}

func newMessage(f api.Frame) *Message {
	m := &Message{ref: &messageRef{frame: f}, size: len(f.Bytes())}
	runtime.SetFinalizer(m, (*Message).finalize)
	return m
}

func (m *Message) finalize() {
	m.ref.release()
}

// Bytes returns the payload. The first call exposes the frame memory;
// later calls return the same slice.
func (m *Message) Bytes() []byte {
	if m.buf == nil {
		m.buf = m.ref.frame.Bytes()
		if m.buf == nil {
			m.buf = []byte{}
		}
	}
	return m.buf
}

// Len returns the payload size.
func (m *Message) Len() int {
	return m.size
}

// More reports whether another part of the same message follows. It is
// only set by RecvMultipart.
func (m *Message) More() bool {
	return m.more
}

// Release frees the library frame. Extra calls do nothing.
func (m *Message) Release() {
	if m.buf == nil {
		m.Bytes()
	}
	m.ref.release()
	runtime.SetFinalizer(m, nil)
}

// Released reports whether the library frame was freed.
func (m *Message) Released() bool {
	return m.ref.released.Load()
}

// Recv receives one frame without blocking. It returns nil, nil when
// nothing is queued.
func (s *Socket) Recv(flags Flag) (*Message, error) {
	if err := s.guard("recv"); err != nil {
		return nil, err
	}
	m, err := s.recv(flags)
	s.scheduleCheck()
	return m, err
}

func (s *Socket) recv(flags Flag) (*Message, error) {
	f, err := transport.RetryValue(func() (api.Frame, error) {
		return s.native.Recv(flags | DONTWAIT)
	})
	if err != nil {
		if api.IsWouldBlock(err) {
			return nil, nil
		}
		return nil, transportError("recv", "", err)
	}
	m := newMessage(f)
	s.ctx.metrics.received(m.size)
	return m, nil
}

// RecvMultipart receives every part of the next message. It returns nil, nil
// when no message is queued. On any failure every part already read is
// released and no partial message is returned.
func (s *Socket) RecvMultipart() ([]*Message, error) {
	if err := s.guard("recv"); err != nil {
		return nil, err
	}
	parts, err := s.recvMultipart()
	s.scheduleCheck()
	return parts, err
}

func (s *Socket) recvMultipart() ([]*Message, error) {
	var parts []*Message
	abort := func(err error) ([]*Message, error) {
		for _, p := range parts {
			p.Release()
		}
		return nil, err
	}
	for {
		// libraries without atomic multipart delivery need a readiness
		// check before every part
		if len(parts) == 0 || !s.caps.AtomicMultipart {
			ev, err := transport.RetryValue(s.native.Events)
			if err != nil {
				return abort(transportError("events", "", err))
			}
			if !ev.Readable() {
				if len(parts) == 0 {
					return nil, nil
				}
				return abort(ErrIncompleteMessage)
			}
		}
		m, err := s.recv(0)
		if err != nil {
			return abort(err)
		}
		if m == nil {
			if len(parts) == 0 {
				return nil, nil
			}
			return abort(ErrIncompleteMessage)
		}
		more, err := transport.RetryValue(s.native.RcvMore)
		if err != nil {
			m.Release()
			return abort(transportError("rcvmore", "", err))
		}
		m.more = more
		parts = append(parts, m)
		if !more {
			return parts, nil
		}
	}
}
