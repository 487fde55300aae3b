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
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ZMQTestSuite runs against the linked libzmq.
type ZMQTestSuite struct {
	suite.Suite
	ctx     *Context
	sockets []*Socket
}

func (s *ZMQTestSuite) SetupTest() {
	cfg := DefaultConfig()
	cfg.MonitorInterval = time.Millisecond
	ctx, err := NewContext(cfg)
	s.Require().NoError(err)
	s.ctx = ctx
	s.sockets = nil
}

func (s *ZMQTestSuite) TearDownTest() {
	for _, sock := range s.sockets {
		s.NoError(sock.Close())
	}
	s.NoError(s.ctx.Close())
}

func (s *ZMQTestSuite) socket(t SocketType) *Socket {
	sock, err := s.ctx.NewSocket(t)
	s.Require().NoError(err)
	s.Require().NoError(sock.SetOption(OptLinger, 0))
	s.sockets = append(s.sockets, sock)
	return sock
}

func (s *ZMQTestSuite) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.ctx.Loop().Run(ctx))
}

func (s *ZMQTestSuite) lastEndpoint(sock *Socket) string {
	v, err := sock.GetOption(OptLastEndpoint)
	s.Require().NoError(err)
	return strings.TrimRight(string(v.([]byte)), "\x00")
}

func (s *ZMQTestSuite) TestPushPullAfterAsyncBind() {
	push := s.socket(PUSH)
	var got string
	var pull *Socket
	s.Require().NoError(push.Bind("inproc://t1", func(err error) {
		s.Require().NoError(err)
		pull = s.socket(PULL)
		pull.SetReadinessHandlers(func() {
			m, err := pull.Recv(0)
			s.Require().NoError(err)
			if m == nil {
				return
			}
			got = string(m.Bytes())
			m.Release()
			s.ctx.Loop().Stop()
		}, nil)
		s.Require().NoError(pull.Connect("inproc://t1"))
		ok, err := push.Send([]byte("hi"), 0)
		s.Require().NoError(err)
		s.True(ok)
	}))
	s.run()
	s.Equal("hi", got)
	s.Equal(1, push.Endpoints())
}

func (s *ZMQTestSuite) TestLargePayloadsOverTCP() {
	pull := s.socket(PULL)
	s.Require().NoError(pull.BindSync("tcp://127.0.0.1:*"))
	endpoint := s.lastEndpoint(pull)
	s.True(strings.HasPrefix(endpoint, "tcp://127.0.0.1:"), endpoint)

	push := s.socket(PUSH)
	s.Require().NoError(push.Connect(endpoint))

	payloads := [][]byte{
		{},
		{0x2a},
		bytes.Repeat([]byte("0123456789"), 21000),
		bytes.Repeat([]byte{0xff}, 4<<20),
	}
	var got [][]byte
	pull.SetReadinessHandlers(func() {
		for {
			m, err := pull.Recv(0)
			s.Require().NoError(err)
			if m == nil {
				return
			}
			got = append(got, m.Bytes())
			m.Release()
			if len(got) == len(payloads) {
				s.ctx.Loop().Stop()
				return
			}
		}
	}, nil)

	var refs []*BufferReference
	for i, p := range payloads {
		if i%2 == 0 {
			ok, err := push.Send(p, 0)
			s.Require().NoError(err)
			s.Require().True(ok)
			continue
		}
		ref, ok, err := push.SendZeroCopy(p, 0)
		s.Require().NoError(err)
		s.Require().True(ok)
		refs = append(refs, ref)
	}
	s.run()

	s.Require().Len(got, len(payloads))
	for i := range payloads {
		s.True(bytes.Equal(payloads[i], got[i]), "payload %d", i)
	}
	s.Eventually(func() bool {
		for _, r := range refs {
			if !r.Done() {
				return false
			}
		}
		return true
	}, 2*time.Second, time.Millisecond)
}

func (s *ZMQTestSuite) TestMultipartOverInproc() {
	push := s.socket(PUSH)
	s.Require().NoError(push.BindSync("inproc://parts"))
	pull := s.socket(PULL)
	s.Require().NoError(pull.Connect("inproc://parts"))

	var got []string
	pull.SetReadinessHandlers(func() {
		parts, err := pull.RecvMultipart()
		s.Require().NoError(err)
		if parts == nil {
			return
		}
		for _, p := range parts {
			got = append(got, string(p.Bytes()))
			p.Release()
		}
		s.ctx.Loop().Stop()
	}, nil)
	ok, err := push.SendMultipart([][]byte{[]byte("a"), []byte("bb"), []byte("ccc")})
	s.Require().NoError(err)
	s.Require().True(ok)
	s.run()
	s.Equal([]string{"a", "bb", "ccc"}, got)
}

func (s *ZMQTestSuite) TestMonitorTCPConnectAndDisconnect() {
	bound := s.socket(PULL)
	s.Require().NoError(bound.BindSync("tcp://127.0.0.1:*"))
	endpoint := s.lastEndpoint(bound)

	sock := s.socket(PUSH)
	s.Require().NoError(sock.SetOption(OptReconnectIvl, 10_000))
	var ids []int
	s.Require().NoError(sock.Monitor(time.Millisecond, 0, MonitorHandler{
		OnEvent: func(e Event) {
			ids = append(ids, e.ID)
			s.Equal(endpoint, e.Endpoint)
			switch e.ID {
			case EventConnected:
				s.NoError(bound.Close())
			case EventDisconnected:
				s.ctx.Loop().Stop()
			}
		},
		OnError: func(err error) { s.Fail("monitor error", "%v", err) },
	}))
	s.Require().NoError(sock.Connect(endpoint))
	s.run()
	s.NoError(sock.Unmonitor())

	s.Contains(ids, EventConnected)
	s.Equal(EventDisconnected, ids[len(ids)-1])
}

func (s *ZMQTestSuite) TestUnbindAfterBind() {
	sock := s.socket(PULL)
	s.Require().NoError(sock.BindSync("tcp://127.0.0.1:*"))
	endpoint := s.lastEndpoint(sock)
	s.True(sock.KeepAlive())
	var unbindErr error
	s.Require().NoError(sock.Unbind(endpoint, func(err error) {
		unbindErr = err
		s.ctx.Loop().Stop()
	}))
	s.run()
	s.NoError(unbindErr)
	s.Equal(0, sock.Endpoints())
	s.False(sock.KeepAlive())
}

func TestZMQTestSuite(t *testing.T) {
	suite.Run(t, new(ZMQTestSuite))
}
