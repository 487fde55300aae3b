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
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/plugin-zmq/internal/fake"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

func TestVerifyConfig(t *testing.T) {
	assert.NoError(t, VerifyConfig(DefaultConfig()))
	assert.Error(t, VerifyConfig(nil))

	cfg := DefaultConfig()
	cfg.IOThreads = 0
	assert.Error(t, VerifyConfig(cfg))

	cfg = DefaultConfig()
	cfg.MonitorInterval = 0
	assert.Error(t, VerifyConfig(cfg))

	cfg = DefaultConfig()
	cfg.MonitorMaxEvents = -1
	assert.Error(t, VerifyConfig(cfg))

	cfg = DefaultConfig()
	cfg.LoopConfig = &loop.Config{}
	assert.Error(t, VerifyConfig(cfg))
}

type ContextTestSuite struct {
	suite.Suite
	tr *fake.Transport
}

func (s *ContextTestSuite) SetupTest() {
	s.tr = fake.NewTransport(4, 3, 4)
}

func (s *ContextTestSuite) newContext(tune func(*Config)) *Context {
	cfg := DefaultConfig()
	cfg.Transport = s.tr
	if tune != nil {
		tune(cfg)
	}
	c, err := NewContext(cfg)
	s.Require().NoError(err)
	return c
}

func (s *ContextTestSuite) native() *fake.Context {
	ctxs := s.tr.Contexts()
	return ctxs[len(ctxs)-1]
}

func (s *ContextTestSuite) TestOptions() {
	c := s.newContext(func(cfg *Config) { cfg.IOThreads = 2 })
	defer c.Close()

	v, err := c.GetOption(CtxIOThreads)
	s.Require().NoError(err)
	s.Equal(2, v)

	s.Require().NoError(c.SetOption(CtxMaxSockets, 64))
	v, err = c.GetOption(CtxMaxSockets)
	s.Require().NoError(err)
	s.Equal(64, v)

	o, err := ContextOptionByName("ZMQ_IPV6")
	s.Require().NoError(err)
	s.Equal(CtxIPv6, o)

	var verr *ValidationError
	s.ErrorAs(c.SetOption(CtxBlocky, -1), &verr)
	s.ErrorAs(c.SetOption(ContextOption(99), 1), &verr)
	_, err = ContextOptionByName("threads")
	s.ErrorAs(err, &verr)
}

func (s *ContextTestSuite) TestMaxMsgszNeedsNewerLibrary() {
	s.tr = fake.NewTransport(4, 1, 6)
	c := s.newContext(nil)
	defer c.Close()
	_, err := c.GetOption(CtxMaxMsgsz)
	s.ErrorIs(err, ErrNotSupported)
}

func (s *ContextTestSuite) TestCloseRetriesInterrupt() {
	c := s.newContext(nil)
	nat := s.native()
	nat.FailTerm(errno(syscall.EINTR), errno(syscall.EINTR))

	s.NoError(c.Close())
	s.Equal(3, nat.TermCalls())
	s.True(nat.Terminated())
	s.True(c.Closed())

	s.NoError(c.Close())
	s.Equal(3, nat.TermCalls())
	s.ErrorIs(c.Loop().Post(func() {}), loop.ErrClosed)
}

func (s *ContextTestSuite) TestCloseFailureIsReportedOnce() {
	c := s.newContext(nil)
	nat := s.native()
	nat.FailTerm(errno(syscall.EFAULT))

	err := c.Close()
	var terr *TransportError
	s.Require().ErrorAs(err, &terr)
	s.Equal("term", terr.Op)
	s.True(c.Closed())
	s.NoError(c.Close())
	s.Equal(1, nat.TermCalls())
}

func (s *ContextTestSuite) TestClosedContextRejectsWork() {
	c := s.newContext(nil)
	s.Require().NoError(c.Close())

	_, err := c.NewSocket(PAIR)
	s.ErrorIs(err, ErrContextClosed)
	_, err = c.GetOption(CtxIOThreads)
	s.ErrorIs(err, ErrContextClosed)
	s.ErrorIs(c.Live(), ErrContextClosed)
}

func (s *ContextTestSuite) TestCloseWithOpenSocketsFails() {
	c := s.newContext(nil)
	nat := s.native()
	sock, err := c.NewSocket(PAIR)
	s.Require().NoError(err)

	err = c.Close()
	s.ErrorIs(err, ErrSocketsOpen)
	s.False(c.Closed())
	s.Equal(0, nat.TermCalls())
	s.Require().NoError(c.Live())

	s.Require().NoError(sock.Close())
	s.Nil(sock.Context())
	s.NotNil(sock.Loop())
	s.NoError(c.Close())
	s.Equal(1, nat.TermCalls())
	s.True(c.Closed())
}

func (s *ContextTestSuite) TestSharedLoop() {
	l, err := loop.New(nil)
	s.Require().NoError(err)
	defer l.Close()

	a := s.newContext(func(cfg *Config) { cfg.Loop = l })
	b := s.newContext(func(cfg *Config) { cfg.Loop = l })
	s.Same(l, a.Loop())
	s.Same(l, b.Loop())
	s.NotEqual(a.ID(), b.ID())

	s.NoError(a.Close())
	s.NoError(l.Post(func() {}))
	s.NoError(b.Close())
}

func (s *ContextTestSuite) TestHealth() {
	c := s.newContext(nil)
	s.NoError(c.Live())
	s.Error(c.Ready())

	var ready error
	s.Require().NoError(c.Loop().Post(func() {
		ready = c.Ready()
		c.Loop().Stop()
	}))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Require().NoError(c.Loop().Run(ctx))
	s.NoError(ready)

	s.Require().NoError(c.Close())
	s.ErrorIs(c.Live(), ErrContextClosed)
	s.ErrorIs(c.Ready(), ErrContextClosed)
}

func gather(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func (s *ContextTestSuite) TestMetrics() {
	reg := prometheus.NewRegistry()
	c := s.newContext(func(cfg *Config) { cfg.Registerer = reg })
	other := s.newContext(func(cfg *Config) { cfg.Registerer = reg })
	s.Require().NoError(other.Close())

	push, err := c.NewSocket(PUSH)
	s.Require().NoError(err)
	s.Require().NoError(push.BindSync("inproc://metrics"))
	s.Error(push.BindSync("inproc://metrics"))
	pull, err := c.NewSocket(PULL)
	s.Require().NoError(err)
	s.Require().NoError(pull.Connect("inproc://metrics"))

	t := s.T()
	s.Equal(2.0, gather(t, reg, "zmq_open_sockets"))
	for _, p := range []string{"abc", "de"} {
		ok, err := push.Send([]byte(p), 0)
		s.Require().NoError(err)
		s.Require().True(ok)
		m, err := pull.Recv(0)
		s.Require().NoError(err)
		m.Release()
	}
	s.Equal(2.0, gather(t, reg, "zmq_sent_messages_total"))
	s.Equal(5.0, gather(t, reg, "zmq_sent_bytes_total"))
	s.Equal(2.0, gather(t, reg, "zmq_received_messages_total"))
	s.Equal(5.0, gather(t, reg, "zmq_received_bytes_total"))
	s.Equal(2.0, gather(t, reg, "zmq_binds_total"))

	s.NoError(push.Close())
	s.NoError(pull.Close())
	s.Equal(0.0, gather(t, reg, "zmq_open_sockets"))
	s.NoError(c.Close())
	s.Equal(0.0, gather(t, reg, "zmq_sent_messages_total"))
}

type recordingTracer struct {
	tracenoop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	sp := &recordingSpan{name: name, attrs: cfg.Attributes()}
	t.spans = append(t.spans, sp)
	return ctx, sp
}

type recordingSpan struct {
	tracenoop.Span
	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption)       { s.ended = true }

func (s *ContextTestSuite) TestBindSpans() {
	tracer := &recordingTracer{}
	c := s.newContext(func(cfg *Config) { cfg.Tracer = tracer })
	defer c.Close()
	a, err := c.NewSocket(PUB)
	s.Require().NoError(err)
	b, err := c.NewSocket(PUB)
	s.Require().NoError(err)

	s.Require().NoError(a.BindSync("inproc://traced"))
	s.Error(b.BindSync("inproc://traced"))
	s.Require().NoError(a.UnbindSync("inproc://traced"))

	s.Require().Len(tracer.spans, 3)
	s.Equal("zmq.bind", tracer.spans[0].name)
	s.Equal(codes.Ok, tracer.spans[0].status)
	s.Equal(codes.Error, tracer.spans[1].status)
	s.Equal("zmq.unbind", tracer.spans[2].name)
	for _, sp := range tracer.spans {
		s.True(sp.ended)
		s.Contains(sp.attrs, attribute.String("zmq.endpoint", "inproc://traced"))
	}
	s.NoError(a.Close())
	s.NoError(b.Close())
}

func TestContextTestSuite(t *testing.T) {
	suite.Run(t, new(ContextTestSuite))
}
