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

// Package fake is an in-memory transport for tests. Sockets of one fake
// context route frames to each other by endpoint, expose a pollable fd that
// is signalled on every state change, and can be scripted to fail.
package fake

import (
	"encoding/binary"
	"fmt"
	"sync"
	"syscall"

	"github.com/srediag/plugin-zmq/api"
)

// Transport creates fake contexts reporting a fixed library version.
type Transport struct {
	major, minor, patch int

	mu       sync.Mutex
	contexts []*Context
}

// NewTransport returns a transport that reports major.minor.patch.
func NewTransport(major, minor, patch int) *Transport {
	return &Transport{major: major, minor: minor, patch: patch}
}

func (t *Transport) Version() (major, minor, patch int) {
	return t.major, t.minor, t.patch
}

func (t *Transport) NewContext() (api.NativeContext, error) {
	c := &Context{
		transport: t,
		opts: map[int]int{
			api.CtxIOThreads:  1,
			api.CtxMaxSockets: 1023,
			api.CtxMaxMsgsz:   1<<31 - 1,
			api.CtxIPv6:       0,
			api.CtxBlocky:     1,
		},
		endpoints: make(map[string]*Socket),
	}
	t.mu.Lock()
	t.contexts = append(t.contexts, c)
	t.mu.Unlock()
	return c, nil
}

// Contexts returns every context created so far.
func (t *Transport) Contexts() []*Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Context(nil), t.contexts...)
}

// Context is a fake library context.
type Context struct {
	transport *Transport

	mu         sync.Mutex
	opts       map[int]int
	endpoints  map[string]*Socket
	sockets    []*Socket
	terminated bool
	termCalls  int
	termErrs   []error
}

// FailTerm makes the next Term calls return errs, in order.
func (c *Context) FailTerm(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.termErrs = append(c.termErrs, errs...)
}

// TermCalls counts Term invocations.
func (c *Context) TermCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termCalls
}

// Terminated reports whether Term succeeded.
func (c *Context) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

// Sockets returns every socket created in the context.
func (c *Context) Sockets() []*Socket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Socket(nil), c.sockets...)
}

func (c *Context) NewSocket(t api.SocketType) (api.NativeSocket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return nil, errno(syscall.EFAULT)
	}
	if !t.Valid() {
		return nil, errno(syscall.EINVAL)
	}
	s, err := newSocket(c, t)
	if err != nil {
		return nil, err
	}
	c.sockets = append(c.sockets, s)
	return s, nil
}

func (c *Context) GetOption(code int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.opts[code]
	if !ok {
		return 0, errno(syscall.EINVAL)
	}
	return v, nil
}

func (c *Context) SetOption(code int, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.opts[code]; !ok || value < 0 {
		return errno(syscall.EINVAL)
	}
	c.opts[code] = value
	return nil
}

func (c *Context) Term() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.termCalls++
	if len(c.termErrs) > 0 {
		err := c.termErrs[0]
		c.termErrs = c.termErrs[1:]
		return err
	}
	c.terminated = true
	return nil
}

func (c *Context) registerLocked(endpoint string, s *Socket) error {
	if _, ok := c.endpoints[endpoint]; ok {
		return errno(syscall.EADDRINUSE)
	}
	c.endpoints[endpoint] = s
	return nil
}

// EncodeEvent builds monitor frames in the given layout.
func EncodeEvent(layout api.MonitorLayout, event uint16, value uint32, endpoint string) [][]byte {
	if layout == api.MonitorLayoutLegacy {
		b := make([]byte, 6+len(endpoint))
		binary.LittleEndian.PutUint16(b[0:2], event)
		binary.LittleEndian.PutUint32(b[2:6], value)
		copy(b[6:], endpoint)
		return [][]byte{b}
	}
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], event)
	binary.LittleEndian.PutUint32(b[2:6], value)
	return [][]byte{b, []byte(endpoint)}
}

func errno(e syscall.Errno) error {
	return &api.Errno{Code: int(e), Msg: e.Error()}
}

func wrongState(op string) error {
	return fmt.Errorf("fake: %s on closed socket: %w", op, errno(syscall.ENOTSOCK))
}
