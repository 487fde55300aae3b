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

package fake

import (
	"os"
	"sync"
	"syscall"

	"github.com/srediag/plugin-zmq/api"
)

type queued struct {
	data []byte
	more bool
}

type link struct {
	peer     *Socket
	endpoint string
}

// Socket is a fake library socket. All sockets of a context share the
// context lock, so routing between them needs no lock ordering.
type Socket struct {
	ctx *Context
	typ api.SocketType

	r, w      *os.File
	signalled bool
	closed    bool

	ints    map[int]int
	int64s  map[int]int64
	uint64s map[int]uint64
	bytes   map[int][]byte

	bound     map[string]bool
	links     []link
	next      int
	target    *Socket
	inbox     []queued
	rcvmore   bool
	sendLimit int

	calls        map[string]int
	fail         map[string][]error
	bindGate     chan struct{}
	holdReleases bool
	held         []func()
	openFrames   int
	doubleClose  int

	monitor     *Socket
	monitorMask int
}

var writeOnlyInts = map[int]bool{
	api.OptRouterMandatory: true,
	api.OptXpubVerbose:     true,
	api.OptProbeRouter:     true,
	api.OptReqCorrelate:    true,
	api.OptReqRelaxed:      true,
	api.OptConflate:        true,
}

var writeOnlyBytes = map[int]bool{
	api.OptSubscribe:      true,
	api.OptUnsubscribe:    true,
	api.OptCurvePublickey: true,
	api.OptCurveSecretkey: true,
	api.OptCurveServerkey: true,
}

func newSocket(c *Context, t api.SocketType) (*Socket, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Socket{
		ctx: c,
		typ: t,
		r:   r,
		w:   w,
		ints: map[int]int{
			api.OptRate:              100,
			api.OptRecoveryIvl:       10000,
			api.OptSndbuf:            0,
			api.OptRcvbuf:            0,
			api.OptLinger:            -1,
			api.OptReconnectIvl:      100,
			api.OptBacklog:           100,
			api.OptReconnectIvlMax:   0,
			api.OptSndhwm:            1000,
			api.OptRcvhwm:            1000,
			api.OptMulticastHops:     1,
			api.OptRcvtimeo:          -1,
			api.OptSndtimeo:          -1,
			api.OptTCPKeepalive:      -1,
			api.OptTCPKeepaliveCnt:   -1,
			api.OptTCPKeepaliveIdle:  -1,
			api.OptTCPKeepaliveIntvl: -1,
			api.OptImmediate:         0,
			api.OptIPv6:              0,
			api.OptMechanism:         0,
			api.OptPlainServer:       0,
			api.OptCurveServer:       0,
		},
		int64s:  map[int]int64{api.OptMaxmsgsize: -1},
		uint64s: map[int]uint64{api.OptAffinity: 0},
		bytes: map[int][]byte{
			api.OptIdentity:      nil,
			api.OptLastEndpoint:  nil,
			api.OptPlainUsername: nil,
			api.OptPlainPassword: nil,
			api.OptZapDomain:     nil,
		},
		bound: make(map[string]bool),
		calls: make(map[string]int),
		fail:  make(map[string][]error),
	}, nil
}

// Type returns the socket type.
func (s *Socket) Type() api.SocketType {
	return s.typ
}

// FailNext makes the next calls of op ("bind", "send", "recv", "events",
// "rcvmore", "close", ...) return errs in order.
func (s *Socket) FailNext(op string, errs ...error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.fail[op] = append(s.fail[op], errs...)
}

// Calls counts the native calls of op, failed ones included.
func (s *Socket) Calls(op string) int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.calls[op]
}

// TotalCalls counts every native call except Fd.
func (s *Socket) TotalCalls() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	n := 0
	for op, c := range s.calls {
		if op != "fd" {
			n += c
		}
	}
	return n
}

// SetBindGate makes Bind and Unbind wait for gate to be closed or to deliver.
func (s *Socket) SetBindGate(gate chan struct{}) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.bindGate = gate
}

// SetSendLimit caps the frames queued in a peer; 0 means no cap.
func (s *Socket) SetSendLimit(n int) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.sendLimit = n
}

// HoldReleases keeps release callbacks of zero-copy sends until ReleaseHeld.
func (s *Socket) HoldReleases(hold bool) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.holdReleases = hold
}

// HeldReleases counts release callbacks not yet run.
func (s *Socket) HeldReleases() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return len(s.held)
}

// ReleaseHeld runs the held release callbacks on a new goroutine and waits.
func (s *Socket) ReleaseHeld() {
	s.ctx.mu.Lock()
	held := s.held
	s.held = nil
	s.ctx.mu.Unlock()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, release := range held {
			release()
		}
	}()
	wg.Wait()
}

// OpenFrames counts received frames not yet closed.
func (s *Socket) OpenFrames() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.openFrames
}

// DoubleCloses counts frames closed more than once.
func (s *Socket) DoubleCloses() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.doubleClose
}

// Closed reports whether Close succeeded.
func (s *Socket) Closed() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.closed
}

// Queued counts frames waiting to be received.
func (s *Socket) Queued() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return len(s.inbox)
}

// Monitoring reports whether a monitor endpoint is active.
func (s *Socket) Monitoring() bool {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return s.monitor != nil
}

// EmitEvent publishes a monitor event as the library would.
func (s *Socket) EmitEvent(event int, value uint32, endpoint string) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.emit(event, value, endpoint)
}

// InjectMonitorFrames queues raw frames on the monitor stream.
func (s *Socket) InjectMonitorFrames(frames ...[]byte) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.monitor == nil {
		return
	}
	for _, l := range s.monitor.links {
		l.peer.enqueue(frames)
		return
	}
}

// call is invoked with the context lock held.
func (s *Socket) call(op string) error {
	s.calls[op]++
	if errs := s.fail[op]; len(errs) > 0 {
		s.fail[op] = errs[1:]
		return errs[0]
	}
	if s.closed {
		return wrongState(op)
	}
	return nil
}

func (s *Socket) Bind(endpoint string) error {
	s.waitGate()
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("bind"); err != nil {
		return err
	}
	if endpoint == "" {
		return errno(syscall.EINVAL)
	}
	if err := s.ctx.registerLocked(endpoint, s); err != nil {
		s.emit(api.EventBindFailed, uint32(syscall.EADDRINUSE), endpoint)
		return err
	}
	s.bound[endpoint] = true
	s.bytes[api.OptLastEndpoint] = []byte(endpoint)
	s.emit(api.EventListening, 0, endpoint)
	return nil
}

func (s *Socket) Unbind(endpoint string) error {
	s.waitGate()
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("unbind"); err != nil {
		return err
	}
	if !s.bound[endpoint] {
		return errno(syscall.ENOENT)
	}
	delete(s.bound, endpoint)
	delete(s.ctx.endpoints, endpoint)
	for _, l := range append([]link(nil), s.links...) {
		if l.endpoint == endpoint {
			s.unlink(l.peer, endpoint)
		}
	}
	s.emit(api.EventClosed, 0, endpoint)
	return nil
}

func (s *Socket) Connect(endpoint string) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("connect"); err != nil {
		return err
	}
	peer := s.ctx.endpoints[endpoint]
	if peer == nil || peer.closed {
		return errno(syscall.ECONNREFUSED)
	}
	s.links = append(s.links, link{peer: peer, endpoint: endpoint})
	peer.links = append(peer.links, link{peer: s, endpoint: endpoint})
	s.bytes[api.OptLastEndpoint] = []byte(endpoint)
	s.emit(api.EventConnected, 0, endpoint)
	peer.emit(api.EventAccepted, 0, endpoint)
	s.signal()
	peer.signal()
	return nil
}

func (s *Socket) Disconnect(endpoint string) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("disconnect"); err != nil {
		return err
	}
	for _, l := range s.links {
		if l.endpoint == endpoint && l.peer.bound[endpoint] {
			s.unlink(l.peer, endpoint)
			return nil
		}
	}
	return errno(syscall.ENOENT)
}

func (s *Socket) Fd() (int, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("fd"); err != nil {
		return -1, err
	}
	return int(s.r.Fd()), nil
}

func (s *Socket) Events() (api.Events, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("events"); err != nil {
		return 0, err
	}
	s.drain()
	var ev api.Events
	if len(s.inbox) > 0 {
		ev |= api.POLLIN
	}
	if s.writable() {
		ev |= api.POLLOUT
	}
	return ev, nil
}

func (s *Socket) RcvMore() (bool, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("rcvmore"); err != nil {
		return false, err
	}
	return s.rcvmore, nil
}

func (s *Socket) Recv(_ api.Flag) (api.Frame, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("recv"); err != nil {
		return nil, err
	}
	if len(s.inbox) == 0 {
		return nil, errno(syscall.EAGAIN)
	}
	q := s.inbox[0]
	s.inbox = s.inbox[1:]
	s.rcvmore = q.more
	s.openFrames++
	for _, l := range s.links {
		l.peer.signal()
	}
	return &frame{owner: s, data: q.data}, nil
}

func (s *Socket) Send(data []byte, flags api.Flag, release func()) error {
	s.ctx.mu.Lock()
	if err := s.call("send"); err != nil {
		s.ctx.mu.Unlock()
		return err
	}
	peers := s.route()
	if len(peers) == 0 {
		s.ctx.mu.Unlock()
		return errno(syscall.EAGAIN)
	}
	more := flags&api.SNDMORE != 0
	for _, p := range peers {
		p.enqueue([][]byte{data}, more)
	}
	if more {
		s.target = peers[0]
	} else {
		s.target = nil
	}
	hold := release != nil && s.holdReleases
	if hold {
		s.held = append(s.held, release)
	}
	s.ctx.mu.Unlock()
	if release != nil && !hold {
		release()
	}
	return nil
}

func (s *Socket) GetInt(code int) (int, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("getsockopt"); err != nil {
		return 0, err
	}
	switch code {
	case api.OptType:
		return int(s.typ), nil
	case api.OptRcvmore:
		if s.rcvmore {
			return 1, nil
		}
		return 0, nil
	case api.OptFd:
		return int(s.r.Fd()), nil
	case api.OptEvents:
		s.drain()
		var ev int
		if len(s.inbox) > 0 {
			ev |= int(api.POLLIN)
		}
		if s.writable() {
			ev |= int(api.POLLOUT)
		}
		return ev, nil
	}
	v, ok := s.ints[code]
	if !ok {
		return 0, errno(syscall.EINVAL)
	}
	return v, nil
}

func (s *Socket) SetInt(code int, value int) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("setsockopt"); err != nil {
		return err
	}
	if writeOnlyInts[code] {
		return nil
	}
	if _, ok := s.ints[code]; !ok || code == api.OptMechanism {
		return errno(syscall.EINVAL)
	}
	s.ints[code] = value
	if code == api.OptPlainServer && value != 0 {
		s.ints[api.OptMechanism] = 1
	}
	if code == api.OptCurveServer && value != 0 {
		s.ints[api.OptMechanism] = 2
	}
	return nil
}

func (s *Socket) GetInt64(code int) (int64, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("getsockopt"); err != nil {
		return 0, err
	}
	v, ok := s.int64s[code]
	if !ok {
		return 0, errno(syscall.EINVAL)
	}
	return v, nil
}

func (s *Socket) SetInt64(code int, value int64) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("setsockopt"); err != nil {
		return err
	}
	if _, ok := s.int64s[code]; !ok {
		return errno(syscall.EINVAL)
	}
	s.int64s[code] = value
	return nil
}

func (s *Socket) GetUint64(code int) (uint64, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("getsockopt"); err != nil {
		return 0, err
	}
	v, ok := s.uint64s[code]
	if !ok {
		return 0, errno(syscall.EINVAL)
	}
	return v, nil
}

func (s *Socket) SetUint64(code int, value uint64) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("setsockopt"); err != nil {
		return err
	}
	if _, ok := s.uint64s[code]; !ok {
		return errno(syscall.EINVAL)
	}
	s.uint64s[code] = value
	return nil
}

func (s *Socket) GetBytes(code int) ([]byte, error) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("getsockopt"); err != nil {
		return nil, err
	}
	v, ok := s.bytes[code]
	if !ok {
		return nil, errno(syscall.EINVAL)
	}
	return append([]byte(nil), v...), nil
}

func (s *Socket) SetBytes(code int, value []byte) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("setsockopt"); err != nil {
		return err
	}
	if writeOnlyBytes[code] {
		return nil
	}
	if _, ok := s.bytes[code]; !ok || code == api.OptLastEndpoint {
		return errno(syscall.EINVAL)
	}
	s.bytes[code] = append([]byte(nil), value...)
	if code == api.OptPlainUsername && len(value) > 0 {
		s.ints[api.OptMechanism] = 1
	}
	return nil
}

func (s *Socket) Monitor(endpoint string, events int) error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("monitor"); err != nil {
		return err
	}
	if endpoint == "" {
		s.stopMonitor()
		return nil
	}
	if s.monitor != nil {
		s.stopMonitor()
	}
	m, err := newSocket(s.ctx, api.PAIR)
	if err != nil {
		return err
	}
	if err := s.ctx.registerLocked(endpoint, m); err != nil {
		m.closeFiles()
		return err
	}
	m.bound[endpoint] = true
	s.monitor = m
	s.monitorMask = events
	return nil
}

func (s *Socket) Close() error {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if err := s.call("close"); err != nil {
		return err
	}
	for ep := range s.bound {
		delete(s.ctx.endpoints, ep)
		s.emit(api.EventClosed, 0, ep)
	}
	for _, l := range append([]link(nil), s.links...) {
		s.unlink(l.peer, l.endpoint)
	}
	s.stopMonitor()
	s.closed = true
	s.closeFiles()
	return nil
}

func (s *Socket) waitGate() {
	s.ctx.mu.Lock()
	gate := s.bindGate
	s.ctx.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (s *Socket) stopMonitor() {
	m := s.monitor
	if m == nil {
		return
	}
	s.emit(api.EventMonitorStopped, 0, "")
	s.monitor = nil
	for ep := range m.bound {
		delete(s.ctx.endpoints, ep)
	}
	for _, l := range append([]link(nil), m.links...) {
		m.unlink(l.peer, l.endpoint)
	}
	m.closed = true
	m.closeFiles()
}

func (s *Socket) unlink(peer *Socket, endpoint string) {
	s.links = removeLink(s.links, peer, endpoint)
	peer.links = removeLink(peer.links, s, endpoint)
	if s.target == peer {
		s.target = nil
	}
	if peer.target == s {
		peer.target = nil
	}
	s.emit(api.EventDisconnected, 0, endpoint)
	peer.emit(api.EventDisconnected, 0, endpoint)
	s.signal()
	peer.signal()
}

func removeLink(links []link, peer *Socket, endpoint string) []link {
	out := links[:0]
	for _, l := range links {
		if l.peer != peer || l.endpoint != endpoint {
			out = append(out, l)
		}
	}
	return out
}

// route picks the peers of the next frame: the pinned peer of a multipart
// message, every peer for PUB and XPUB, otherwise round robin.
func (s *Socket) route() []*Socket {
	if s.target != nil {
		if !s.target.full(s.sendLimit) {
			return []*Socket{s.target}
		}
		return nil
	}
	if len(s.links) == 0 {
		return nil
	}
	if s.typ == api.PUB || s.typ == api.XPUB {
		peers := make([]*Socket, 0, len(s.links))
		for _, l := range s.links {
			if !l.peer.full(s.sendLimit) {
				peers = append(peers, l.peer)
			}
		}
		return peers
	}
	for i := 0; i < len(s.links); i++ {
		l := s.links[(s.next+i)%len(s.links)]
		if !l.peer.full(s.sendLimit) {
			s.next = (s.next + i + 1) % len(s.links)
			return []*Socket{l.peer}
		}
	}
	return nil
}

func (s *Socket) writable() bool {
	if s.typ == api.PUB || s.typ == api.XPUB {
		return !s.closed
	}
	for _, l := range s.links {
		if !l.peer.full(s.sendLimit) {
			return true
		}
	}
	return false
}

func (s *Socket) full(limit int) bool {
	return limit > 0 && len(s.inbox) >= limit
}

func (s *Socket) enqueue(frames [][]byte, more ...bool) {
	last := len(frames) - 1
	for i, f := range frames {
		m := i < last
		if i == last && len(more) > 0 {
			m = more[0]
		}
		s.inbox = append(s.inbox, queued{data: append([]byte(nil), f...), more: m})
	}
	s.signal()
}

func (s *Socket) emit(event int, value uint32, endpoint string) {
	if s.monitor == nil || s.monitorMask&event == 0 {
		return
	}
	layout := api.DetectCapabilities(s.ctx.transport.Version()).MonitorLayout
	for _, l := range s.monitor.links {
		l.peer.enqueue(EncodeEvent(layout, uint16(event), value, endpoint))
		return
	}
}

func (s *Socket) signal() {
	if s.signalled || s.closed {
		return
	}
	s.signalled = true
	_, _ = s.w.Write([]byte{1})
}

func (s *Socket) drain() {
	if !s.signalled {
		return
	}
	var b [1]byte
	_, _ = s.r.Read(b[:])
	s.signalled = false
}

func (s *Socket) closeFiles() {
	_ = s.w.Close()
	_ = s.r.Close()
}

type frame struct {
	owner    *Socket
	data     []byte
	released bool
}

func (f *frame) Bytes() []byte {
	return f.data
}

func (f *frame) Close() error {
	f.owner.ctx.mu.Lock()
	defer f.owner.ctx.mu.Unlock()
	if f.released {
		f.owner.doubleClose++
		return errno(syscall.EFAULT)
	}
	f.released = true
	f.owner.openFrames--
	return nil
}
