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

package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/srediag/plugin-zmq/pkg/loop"
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

var (
	// ErrStreamClosed is returned by stream calls after Close.
	ErrStreamClosed = errors.New("messenger: stream is closed")
	// ErrNotReadable is returned by Recv on a stream over a send only socket.
	ErrNotReadable = errors.New("messenger: stream is not readable")
	// ErrNotWritable is returned by Send on a stream over a receive only socket.
	ErrNotWritable = errors.New("messenger: stream is not writable")
)

// Stream hands the messages of a Socket to goroutines other than the loop.
//
// PULL, SUB and XSUB sockets give a readable stream, PUSH, PUB and XPUB a
// writable one and REQ, REP, DEALER, ROUTER and PAIR a duplex one. Received
// messages wait in a buffer of the given size; while it is full the socket
// stops reading, so the library's high water mark pushes back on the peer.
// A stream takes over Handlers.Message until it is closed.
type Stream struct {
	m        *Socket
	loop     *loop.Loop
	readable bool
	writable bool

	in        chan [][]byte
	done      chan struct{}
	closeOnce sync.Once
	stalled   atomic.Bool

	// loop only
	held [][]byte
	prev func(*Socket, []*zmq.Message)
}

// NewStream wraps m. Like the rest of the package it must be called on the
// loop, or before the loop runs.
func NewStream(m *Socket, buffer int) (*Stream, error) {
	s := &Stream{m: m, loop: m.sock.Loop(), done: make(chan struct{})}
	switch t := m.Type(); t {
	case zmq.PULL, zmq.SUB, zmq.XSUB:
		s.readable = true
	case zmq.PUSH, zmq.PUB, zmq.XPUB:
		s.writable = true
	case zmq.REQ, zmq.REP, zmq.DEALER, zmq.ROUTER, zmq.PAIR:
		s.readable, s.writable = true, true
	default:
		return nil, fmt.Errorf("messenger: stream: unsupported socket type %s", t)
	}
	if buffer < 1 {
		buffer = 1
	}
	s.in = make(chan [][]byte, buffer)
	if s.readable {
		s.prev = m.h.Message
		m.h.Message = s.deliver
		m.flushReads()
	}
	return s, nil
}

func (s *Stream) Readable() bool { return s.readable }

func (s *Stream) Writable() bool { return s.writable }

// deliver runs on the loop for every received message.
func (s *Stream) deliver(_ *Socket, parts []*zmq.Message) {
	msg := make([][]byte, len(parts))
	for i, p := range parts {
		msg[i] = p.Bytes()
	}
	select {
	case s.in <- msg:
		return
	default:
	}
	s.held = msg
	s.m.holdReads = true
	s.stalled.Store(true)
	// a reader may have taken a message between the send above and the store
	s.unstall()
}

// unstall moves the held message into the buffer once there is room and
// lets the socket read again.
func (s *Stream) unstall() {
	if s.held == nil {
		return
	}
	select {
	case s.in <- s.held:
	default:
		return
	}
	s.held = nil
	s.stalled.Store(false)
	s.m.holdReads = false
	s.m.flushReads()
}

// Recv returns the next message. It blocks until one arrives, the stream is
// closed or ctx is done. It may be called from any goroutine but the loop.
func (s *Stream) Recv(ctx context.Context) ([][]byte, error) {
	if !s.readable {
		return nil, ErrNotReadable
	}
	var msg [][]byte
	select {
	case msg = <-s.in:
	default:
		select {
		case msg = <-s.in:
		case <-s.done:
			return nil, ErrStreamClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.stalled.Load() {
		if err := s.loop.Post(s.unstall); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// Send queues parts as one message and waits until it is sent or has
// failed. The parts are copied first, so they may be reused once Send
// returns. It must not be called from the loop goroutine.
func (s *Stream) Send(ctx context.Context, parts ...[]byte) error {
	if !s.writable {
		return ErrNotWritable
	}
	if len(parts) == 0 {
		return &zmq.ValidationError{Op: "send", Reason: "empty message"}
	}
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	frames := make([][]byte, len(parts))
	for i, p := range parts {
		frames[i] = append([]byte(nil), p...)
	}
	res := make(chan error, 1)
	if err := s.loop.Post(func() {
		if err := s.m.SendMultipart(frames, 0, func(err error) { res <- err }); err != nil {
			res <- err
		}
	}); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write sends p as a one part message.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.Send(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close detaches the stream and unblocks pending calls. Recv still returns
// what is buffered before it reports ErrStreamClosed; a message held back
// by a full buffer is dropped. The socket itself stays open. Close may be
// called from any goroutine; extra calls do nothing.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if !s.readable {
			return
		}
		err = s.loop.Post(func() {
			s.held = nil
			s.stalled.Store(false)
			s.m.h.Message = s.prev
			s.m.holdReads = false
			s.m.flushReads()
		})
		if errors.Is(err, loop.ErrClosed) {
			err = nil
		}
	})
	return err
}
