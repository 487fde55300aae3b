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

// Package zmq binds libzmq sockets to a single goroutine event loop.
//
// A Context owns one library context and the loop its sockets report to.
// Every method of Context and Socket, except Context.Close, Live and Ready,
// must run on the loop goroutine or while the loop is not running. Socket
// readiness, bind completions and monitor events are delivered as callbacks
// on the loop; nothing in this package blocks it.
package zmq

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/internal/transport"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

var contextIDs, socketIDs atomic.Uint64

// Context is a library context and the anchor of the sockets created from it.
// Sockets keep a back-reference only; closing them is up to the caller.
type Context struct {
	id      uint64
	cfg     Config
	native  api.NativeContext
	caps    api.Capabilities
	loop    *loop.Loop
	ownLoop bool

	sockets   cmap.ConcurrentMap[uint64, *Socket]
	closed    atomic.Bool
	metrics   *metrics
	telemetry *telemetry
}

// NewContext creates a context. A nil config means DefaultConfig.
func NewContext(cfg *Config) (*Context, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	tr := cfg.Transport
	if tr == nil {
		tr = transport.New()
	}
	c := &Context{
		id:      contextIDs.Add(1),
		cfg:     *cfg,
		caps:    api.DetectCapabilities(tr.Version()),
		sockets: cmap.NewWithCustomShardingFunction[uint64, *Socket](shardID),
	}
	native, err := tr.NewContext()
	if err != nil {
		return nil, transportError("context", "", err)
	}
	c.native = native
	if err := transport.Retry(func() error { return native.SetOption(api.CtxIOThreads, cfg.IOThreads) }); err != nil {
		c.abort()
		return nil, transportError("context", "", err)
	}
	c.loop = cfg.Loop
	if c.loop == nil {
		if c.loop, err = loop.New(cfg.LoopConfig); err != nil {
			c.abort()
			return nil, fmt.Errorf("zmq: context: %w", err)
		}
		c.ownLoop = true
	}
	if c.telemetry, err = newTelemetry(cfg); err != nil {
		c.abort()
		return nil, fmt.Errorf("zmq: context telemetry: %w", err)
	}
	if c.metrics, err = newMetrics(c, cfg.Registerer); err != nil {
		c.abort()
		return nil, fmt.Errorf("zmq: context metrics: %w", err)
	}
	runtime.SetFinalizer(c, (*Context).finalize)
	logging.Internal.Debugf("zmq: context %d created, libzmq %d.%d.%d", c.id, c.caps.Major, c.caps.Minor, c.caps.Patch)
	return c, nil
}

func shardID(id uint64) uint32 {
	return uint32(id)
}

// abort undoes a half built context.
func (c *Context) abort() {
	if err := transport.Retry(c.native.Term); err != nil {
		logging.Internal.Warnf("zmq: terminate context %d: %v", c.id, err)
	}
	if c.ownLoop {
		_ = c.loop.Close()
	}
}

func (c *Context) finalize() {
	if c.closed.Load() {
		return
	}
	logging.Internal.Warnf("zmq: context %d collected without Close", c.id)
	if err := c.Close(); err != nil {
		logging.Internal.Errorf("zmq: finalize context %d: %v", c.id, err)
	}
}

// ID returns the process unique context id.
func (c *Context) ID() uint64 {
	return c.id
}

// Loop returns the loop the context's callbacks run on.
func (c *Context) Loop() *loop.Loop {
	return c.loop
}

// Capabilities returns what the wrapped library version supports.
func (c *Context) Capabilities() api.Capabilities {
	return c.caps
}

// Sockets returns the number of open sockets.
func (c *Context) Sockets() int {
	return c.sockets.Count()
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	return c.closed.Load()
}

// GetOption reads a context option.
func (c *Context) GetOption(o ContextOption) (int, error) {
	if err := c.checkOption("ctx_get", o); err != nil {
		return 0, err
	}
	v, err := transport.RetryValue(func() (int, error) { return c.native.GetOption(int(o)) })
	if err != nil {
		return 0, transportError("ctx_get", "", err)
	}
	return v, nil
}

// SetOption writes a context option.
func (c *Context) SetOption(o ContextOption, value int) error {
	if err := c.checkOption("ctx_set", o); err != nil {
		return err
	}
	if value < 0 {
		return invalidf("ctx_set", "negative value %d", value)
	}
	if err := transport.Retry(func() error { return c.native.SetOption(int(o), value) }); err != nil {
		return transportError("ctx_set", "", err)
	}
	return nil
}

func (c *Context) checkOption(op string, o ContextOption) error {
	if c.closed.Load() {
		return stateError(op, ErrContextClosed)
	}
	if !o.valid() {
		return invalidf(op, "unknown context option %d", int(o))
	}
	if o == CtxMaxMsgsz && !c.caps.HasContextMaxMsgsz {
		return stateError(op, ErrNotSupported)
	}
	return nil
}

// Close terminates the library context, retrying on interruption. Close is
// idempotent; a context whose loop was created by NewContext closes it too.
//
// libzmq's term blocks until every socket of the context is closed, and
// sockets may only be closed on the loop, so Close fails with ErrSocketsOpen
// and leaves the context open while any socket is still open.
func (c *Context) Close() error {
	if c.closed.Load() {
		return nil
	}
	if n := c.sockets.Count(); n > 0 {
		logging.Internal.Errorf("zmq: context %d: close with %d open sockets", c.id, n)
		return stateError("term", fmt.Errorf("%w: %d", ErrSocketsOpen, n))
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	runtime.SetFinalizer(c, nil)
	err := transport.Retry(c.native.Term)
	c.metrics.unregister()
	if c.ownLoop {
		if lerr := c.loop.Close(); lerr != nil {
			logging.Internal.Warnf("zmq: close loop of context %d: %v", c.id, lerr)
		}
	}
	if err != nil {
		return transportError("term", "", err)
	}
	return nil
}

// Live reports whether the context is open.
func (c *Context) Live() error {
	if c.closed.Load() {
		return ErrContextClosed
	}
	return nil
}

// Ready reports whether the context is open and its loop is running.
func (c *Context) Ready() error {
	if err := c.Live(); err != nil {
		return err
	}
	if !c.loop.Running() {
		return errLoopIdle
	}
	return nil
}

var errLoopIdle = errors.New("zmq: event loop is not running")

var _ api.Health = (*Context)(nil)

func transportError(op, endpoint string, err error) error {
	return &TransportError{Op: op, Endpoint: endpoint, Errno: api.ErrnoOf(err), Err: err}
}
