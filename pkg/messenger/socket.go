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

// Package messenger is the queued, handler driven layer over pkg/zmq.
//
// A Socket queues sends as batches and flushes them when the socket becomes
// writable, delivers every received message to Handlers.Message and reports
// failures to the batch callbacks or to Handlers.Error. Like pkg/zmq, all
// methods must be called on the context loop.
package messenger

import (
	"sort"
	"time"

	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// Options maps option names, "linger" or "ZMQ_LINGER", to values.
type Options map[string]any

// Handlers receive what the socket produces. Every field is optional.
type Handlers struct {
	// Message gets each received message. The parts are released when it
	// returns.
	Message func(s *Socket, parts []*zmq.Message)
	// Error gets send failures without a callback and receive failures.
	Error        func(s *Socket, err error)
	Bind         func(s *Socket, endpoint string)
	Unbind       func(s *Socket, endpoint string)
	Monitor      func(s *Socket, e zmq.Event)
	MonitorError func(s *Socket, err error)
}

// Socket wraps a zmq.Socket with an outgoing queue.
type Socket struct {
	sock *zmq.Socket
	h    Handlers

	outgoing       batchList
	paused         bool
	holdReads      bool
	flushingReads  bool
	flushingWrites bool
}

// New creates a socket of type t on ctx and applies opts in name order.
func New(ctx *zmq.Context, t zmq.SocketType, opts Options, h Handlers) (*Socket, error) {
	sock, err := ctx.NewSocket(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(opts))
	for name := range opts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := sock.SetOptionByName(name, opts[name]); err != nil {
			_ = sock.Close()
			return nil, err
		}
	}
	m := &Socket{sock: sock, h: h}
	sock.SetReadinessHandlers(m.flushReads, m.flushWrites)
	sock.SetErrorHandler(m.fail)
	return m, nil
}

// Raw returns the underlying socket.
func (m *Socket) Raw() *zmq.Socket {
	return m.sock
}

func (m *Socket) Type() zmq.SocketType {
	return m.sock.Type()
}

// Queued returns the number of batches waiting to be sent.
func (m *Socket) Queued() int {
	return m.outgoing.len()
}

// Send queues one frame. Frames with SNDMORE are held until the frame that
// completes the message arrives. cb, if set, runs once the message is sent or
// has failed.
func (m *Socket) Send(data []byte, flags zmq.Flag, cb func(error)) error {
	if m.sock.State() == zmq.StateClosed {
		return zmq.ErrClosed
	}
	m.outgoing.append(data, flags, cb)
	m.schedule()
	return nil
}

// SendMultipart queues parts as one message. flags apply to the last part.
// An empty message is rejected and cb is not called.
func (m *Socket) SendMultipart(parts [][]byte, flags zmq.Flag, cb func(error)) error {
	if len(parts) == 0 {
		return &zmq.ValidationError{Op: "send", Reason: "empty message"}
	}
	if m.sock.State() == zmq.StateClosed {
		return zmq.ErrClosed
	}
	for i, p := range parts {
		if i == len(parts)-1 {
			m.outgoing.append(p, flags, cb)
			break
		}
		m.outgoing.append(p, flags|zmq.SNDMORE, nil)
	}
	m.schedule()
	return nil
}

func (m *Socket) schedule() {
	if !m.outgoing.canSend() {
		m.sock.SetPending(false)
		return
	}
	m.sock.SetPending(true)
	m.flushWrites()
}

// Pause stops delivery and sending until Resume. Sends are still queued.
func (m *Socket) Pause() {
	m.paused = true
}

func (m *Socket) Resume() {
	m.paused = false
	m.flushReads()
	m.flushWrites()
}

func (m *Socket) Paused() bool {
	return m.paused
}

// Read receives one message without going through Handlers.Message. It
// returns nil when nothing is waiting or the socket is not ready.
func (m *Socket) Read() ([]*zmq.Message, error) {
	if m.sock.State() != zmq.StateReady {
		return nil, nil
	}
	return m.sock.RecvMultipart()
}

func (m *Socket) flushRead() (bool, error) {
	parts, err := m.Read()
	if err != nil || parts == nil {
		return false, err
	}
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	if m.h.Message != nil {
		m.h.Message(m, parts)
	}
	return true, nil
}

func (m *Socket) flushReads() {
	if m.paused || m.holdReads || m.flushingReads {
		return
	}
	m.flushingReads = true
	defer func() { m.flushingReads = false }()
	// a handler may pause the socket or hold reads
	for !m.paused && !m.holdReads {
		ok, err := m.flushRead()
		if err != nil {
			m.fail(err)
			return
		}
		if !ok {
			return
		}
	}
}

func (m *Socket) flushWrite() bool {
	b := m.outgoing.front()
	if b == nil {
		m.sock.SetPending(false)
		return false
	}
	ok, err := m.sock.SendBatch(b.parts)
	if err == nil && !ok {
		return false
	}
	m.outgoing.pop()
	b.release(!m.sock.ZeroCopy())
	m.sock.SetPending(m.outgoing.canSend())
	if err != nil {
		if !b.fail(err) {
			m.fail(err)
		}
		return false
	}
	b.sent()
	return true
}

func (m *Socket) flushWrites() {
	if m.paused || m.flushingWrites || m.sock.State() != zmq.StateReady {
		return
	}
	m.flushingWrites = true
	defer func() { m.flushingWrites = false }()
	for m.flushWrite() {
	}
}

func (m *Socket) fail(err error) {
	if m.h.Error != nil {
		m.h.Error(m, err)
		return
	}
	logging.Internal.Errorf("messenger: %s: %v", m.sock, err)
}

// Bind binds on the worker pool. On success queued reads and writes are
// flushed, Handlers.Bind runs and then cb. A failure goes to cb, or to
// Handlers.Error without one.
func (m *Socket) Bind(endpoint string, cb func(error)) error {
	return m.sock.Bind(endpoint, func(err error) {
		m.settle(err, cb, func() {
			if m.h.Bind != nil {
				m.h.Bind(m, endpoint)
			}
		})
	})
}

func (m *Socket) BindSync(endpoint string) error {
	return m.sock.BindSync(endpoint)
}

// Unbind is Bind's counterpart. Where the library cannot unbind it only
// runs cb.
func (m *Socket) Unbind(endpoint string, cb func(error)) error {
	if !m.sock.Capabilities().HasUnbind {
		if cb != nil {
			cb(nil)
		}
		return nil
	}
	return m.sock.Unbind(endpoint, func(err error) {
		m.settle(err, cb, func() {
			if m.h.Unbind != nil {
				m.h.Unbind(m, endpoint)
			}
		})
	})
}

func (m *Socket) UnbindSync(endpoint string) error {
	if !m.sock.Capabilities().HasUnbind {
		return nil
	}
	return m.sock.UnbindSync(endpoint)
}

func (m *Socket) settle(err error, cb func(error), notify func()) {
	if err != nil {
		if cb != nil {
			cb(err)
			return
		}
		m.fail(err)
		return
	}
	notify()
	m.flushReads()
	m.flushWrites()
	if cb != nil {
		cb(nil)
	}
}

func (m *Socket) Connect(endpoint string) error {
	return m.sock.Connect(endpoint)
}

// Disconnect is a no-op where the library cannot disconnect.
func (m *Socket) Disconnect(endpoint string) error {
	if !m.sock.Capabilities().HasDisconnect {
		return nil
	}
	return m.sock.Disconnect(endpoint)
}

func (m *Socket) Subscribe(prefix []byte) error {
	return m.sock.Subscribe(prefix)
}

func (m *Socket) Unsubscribe(prefix []byte) error {
	return m.sock.Unsubscribe(prefix)
}

// Monitor reports connection events to Handlers.Monitor and monitor failures
// to Handlers.MonitorError. Zero or negative arguments pick the context
// defaults.
func (m *Socket) Monitor(interval time.Duration, maxEvents int) error {
	return m.sock.Monitor(interval, maxEvents, zmq.MonitorHandler{
		OnEvent: func(e zmq.Event) {
			if m.h.Monitor != nil {
				m.h.Monitor(m, e)
			}
		},
		OnError: func(err error) {
			if m.h.MonitorError != nil {
				m.h.MonitorError(m, err)
				return
			}
			m.fail(err)
		},
	})
}

func (m *Socket) Unmonitor() error {
	return m.sock.Unmonitor()
}

// SetOption sets an option by name.
func (m *Socket) SetOption(name string, value any) error {
	return m.sock.SetOptionByName(name, value)
}

// Option reads an option by name.
func (m *Socket) Option(name string) (any, error) {
	return m.sock.GetOptionByName(name)
}

func (m *Socket) Ref() {
	m.sock.Ref()
}

func (m *Socket) Unref() {
	m.sock.Unref()
}

// Close closes the socket. Queued batches are dropped and their callbacks
// get zmq.ErrClosed.
func (m *Socket) Close() error {
	err := m.sock.Close()
	for _, b := range m.outgoing.drain() {
		b.release(true)
		b.fail(zmq.ErrClosed)
	}
	return err
}
