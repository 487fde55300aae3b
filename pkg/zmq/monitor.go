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
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/internal/transport"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

// MaxEventEndpoint bounds the endpoint copied out of a monitor frame.
const MaxEventEndpoint = 1024

var monitorIDs atomic.Uint64

// Monitor event ids.
const (
	EventConnected      = api.EventConnected
	EventConnectDelayed = api.EventConnectDelayed
	EventConnectRetried = api.EventConnectRetried
	EventListening      = api.EventListening
	EventBindFailed     = api.EventBindFailed
	EventAccepted       = api.EventAccepted
	EventAcceptFailed   = api.EventAcceptFailed
	EventClosed         = api.EventClosed
	EventCloseFailed    = api.EventCloseFailed
	EventDisconnected   = api.EventDisconnected
	EventMonitorStopped = api.EventMonitorStopped
)

var eventNames = map[int]string{
	EventConnected:      "connect",
	EventConnectDelayed: "connect_delay",
	EventConnectRetried: "connect_retry",
	EventListening:      "listen",
	EventBindFailed:     "bind_error",
	EventAccepted:       "accept",
	EventAcceptFailed:   "accept_error",
	EventClosed:         "close",
	EventCloseFailed:    "close_error",
	EventDisconnected:   "disconnect",
	EventMonitorStopped: "monitor_stopped",
	0x0800:              "handshake_failed_no_detail",
	0x1000:              "handshake_succeeded",
	0x2000:              "handshake_failed_protocol",
	0x4000:              "handshake_failed_auth",
}

// EventName returns the name of a monitor event id, e.g. "connect".
func EventName(id int) string {
	if n, ok := eventNames[id]; ok {
		return n
	}
	return fmt.Sprintf("event_%#x", id)
}

// Event is one decoded monitor event.
type Event struct {
	ID       int
	Value    uint32
	Endpoint string
}

// Name returns the event name.
func (e Event) Name() string {
	return EventName(e.ID)
}

// MonitorHandler receives the events of a monitored socket on the loop.
// OnError is called at most once, after monitoring has stopped.
type MonitorHandler struct {
	OnEvent func(Event)
	OnError func(error)
}

// DecodeEvent decodes the frames of one monitor event. The legacy layout is
// one frame: uint16 id, int32 value, endpoint. The two-frame layout carries
// uint16 id and uint32 value, then the endpoint. Integers are little endian.
// Real sockets always use the two-frame layout, since the libzmq transport
// requires libzmq 4.
func DecodeEvent(layout api.MonitorLayout, frames ...[]byte) (Event, error) {
	if len(frames) == 0 || len(frames[0]) < 6 {
		return Event{}, ErrMalformedEvent
	}
	head := frames[0]
	ev := Event{
		ID:    int(binary.LittleEndian.Uint16(head[0:2])),
		Value: binary.LittleEndian.Uint32(head[2:6]),
	}
	var endpoint []byte
	switch layout {
	case api.MonitorLayoutLegacy:
		endpoint = head[6:]
	default:
		if len(frames) < 2 {
			return Event{}, ErrMalformedEvent
		}
		endpoint = frames[1]
	}
	if len(endpoint) > MaxEventEndpoint {
		endpoint = endpoint[:MaxEventEndpoint]
	}
	ev.Endpoint = string(endpoint)
	return ev, nil
}

type monitor struct {
	socket   *Socket
	endpoint string
	pair     api.NativeSocket
	timer    *loop.Timer
	interval time.Duration
	max      int
	h        MonitorHandler
	stopped  bool
}

// Monitor starts publishing the socket's connection events to h. The
// monitor stream is polled every interval, decoding at most maxEvents per
// tick (0 drains everything). A zero interval or negative maxEvents picks
// the context defaults. A running monitor is replaced.
func (s *Socket) Monitor(interval time.Duration, maxEvents int, h MonitorHandler) error {
	if err := s.guard("monitor"); err != nil {
		return err
	}
	if !s.caps.HasMonitor {
		return stateError("monitor", ErrNotSupported)
	}
	if h.OnEvent == nil {
		return invalidf("monitor", "nil event handler")
	}
	if interval <= 0 {
		interval = s.ctx.cfg.MonitorInterval
	}
	if maxEvents < 0 {
		maxEvents = s.ctx.cfg.MonitorMaxEvents
	}
	if s.monitor != nil {
		if err := s.Unmonitor(); err != nil {
			return err
		}
	}
	m := &monitor{
		socket:   s,
		endpoint: fmt.Sprintf("inproc://monitor.%d", monitorIDs.Add(1)),
		interval: interval,
		max:      maxEvents,
		h:        h,
	}
	if err := transport.Retry(func() error { return s.native.Monitor(m.endpoint, api.EventAll) }); err != nil {
		return transportError("monitor", m.endpoint, err)
	}
	pair, err := s.ctx.native.NewSocket(PAIR)
	if err == nil {
		err = transport.Retry(func() error { return pair.Connect(m.endpoint) })
		if err != nil {
			_ = transport.Retry(pair.Close)
		}
	}
	if err != nil {
		if uerr := transport.Retry(func() error { return s.native.Monitor("", 0) }); uerr != nil {
			logging.Internal.Warnf("zmq: socket %d: stop monitor: %v", s.id, uerr)
		}
		return transportError("monitor", m.endpoint, err)
	}
	m.pair = pair
	m.timer = s.loop.NewTimer(m.tick)
	m.timer.Unref()
	m.timer.Start(m.interval)
	s.monitor = m
	return nil
}

// Unmonitor stops monitoring. It does nothing when the socket is not
// monitored, and is allowed on a closed socket.
func (s *Socket) Unmonitor() error {
	if s.monitor == nil {
		return nil
	}
	if s.state == StateBusy {
		return stateError("unmonitor", ErrBusy)
	}
	return s.monitor.stop(s.state != StateClosed)
}

// Monitoring reports whether a monitor is running.
func (s *Socket) Monitoring() bool {
	return s.monitor != nil
}

// stop closes the pair socket and the timer. native says whether the
// monitored socket is still open and must be told to stop publishing.
func (m *monitor) stop(native bool) error {
	if m.stopped {
		return nil
	}
	m.stopped = true
	m.timer.Close()
	if m.socket.monitor == m {
		m.socket.monitor = nil
	}
	var err error
	if native {
		err = transport.Retry(func() error { return m.socket.native.Monitor("", 0) })
	}
	if cerr := transport.Retry(m.pair.Close); err == nil {
		err = cerr
	}
	if err != nil {
		return transportError("unmonitor", m.endpoint, err)
	}
	return nil
}

func (m *monitor) tick() {
	if m.stopped {
		return
	}
	for n := 0; m.max == 0 || n < m.max; n++ {
		ev, ok, err := m.next()
		if err != nil {
			m.fail(err)
			return
		}
		if !ok {
			break
		}
		m.socket.ctx.metrics.monitorEvent(ev.Name())
		m.h.OnEvent(ev)
		if m.stopped {
			return
		}
	}
	m.timer.Start(m.interval)
}

func (m *monitor) fail(err error) {
	native := m.socket.state == StateReady
	if serr := m.stop(native); serr != nil {
		logging.Internal.Warnf("zmq: socket %d: %v", m.socket.id, serr)
	}
	if m.h.OnError != nil {
		m.h.OnError(err)
		return
	}
	logging.Internal.Errorf("zmq: socket %d: monitor: %v", m.socket.id, err)
}

// next reads one event if one is queued.
func (m *monitor) next() (Event, bool, error) {
	ev, err := transport.RetryValue(m.pair.Events)
	if err != nil {
		return Event{}, false, transportError("monitor", m.endpoint, err)
	}
	if !ev.Readable() {
		return Event{}, false, nil
	}
	head, ok, err := m.frame()
	if err != nil || !ok {
		return Event{}, ok, err
	}
	frames := [][]byte{head}
	more, err := transport.RetryValue(m.pair.RcvMore)
	if err != nil {
		return Event{}, false, transportError("monitor", m.endpoint, err)
	}
	for more {
		f, ok, err := m.frame()
		if err != nil {
			return Event{}, false, err
		}
		if !ok {
			return Event{}, false, ErrMalformedEvent
		}
		frames = append(frames, f)
		if more, err = transport.RetryValue(m.pair.RcvMore); err != nil {
			return Event{}, false, transportError("monitor", m.endpoint, err)
		}
	}
	layout := m.socket.caps.MonitorLayout
	e, err := DecodeEvent(layout, frames...)
	if err != nil {
		return Event{}, false, err
	}
	return e, true, nil
}

func (m *monitor) frame() ([]byte, bool, error) {
	f, err := transport.RetryValue(func() (api.Frame, error) { return m.pair.Recv(DONTWAIT) })
	if err != nil {
		if api.IsWouldBlock(err) {
			return nil, false, nil
		}
		return nil, false, transportError("monitor", m.endpoint, err)
	}
	b := append([]byte(nil), f.Bytes()...)
	if err := f.Close(); err != nil {
		logging.Internal.Debugf("zmq: release monitor frame: %v", err)
	}
	return b, true, nil
}
