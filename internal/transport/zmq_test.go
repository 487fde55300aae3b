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

package transport

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srediag/plugin-zmq/api"
)

type ZMQTestSuite struct {
	suite.Suite
	ctx api.NativeContext
}

func (s *ZMQTestSuite) SetupTest() {
	ctx, err := New().NewContext()
	s.Require().NoError(err)
	s.ctx = ctx
}

func (s *ZMQTestSuite) TearDownTest() {
	s.Require().NoError(s.ctx.Term())
}

func (s *ZMQTestSuite) socket(t api.SocketType) api.NativeSocket {
	soc, err := s.ctx.NewSocket(t)
	s.Require().NoError(err)
	s.Require().NoError(soc.SetInt(api.OptLinger, 0))
	return soc
}

func (s *ZMQTestSuite) waitReadable(soc api.NativeSocket) {
	s.Eventually(func() bool {
		ev, err := soc.Events()
		return err == nil && ev.Readable()
	}, 2*time.Second, time.Millisecond)
}

func (s *ZMQTestSuite) TestVersion() {
	major, _, _ := New().Version()
	s.GreaterOrEqual(major, 4)
}

func (s *ZMQTestSuite) TestContextOptions() {
	s.Require().NoError(s.ctx.SetOption(api.CtxIOThreads, 2))
	v, err := s.ctx.GetOption(api.CtxIOThreads)
	s.Require().NoError(err)
	s.Equal(2, v)

	s.Require().NoError(s.ctx.SetOption(api.CtxIPv6, 1))
	v, err = s.ctx.GetOption(api.CtxIPv6)
	s.Require().NoError(err)
	s.Equal(1, v)

	_, err = s.ctx.GetOption(999)
	s.ErrorIs(err, syscall.EINVAL)
}

func (s *ZMQTestSuite) TestPushPullRoundTrip() {
	push := s.socket(api.PUSH)
	defer push.Close()
	pull := s.socket(api.PULL)
	defer pull.Close()

	s.Require().NoError(push.Bind("inproc://driver-roundtrip"))
	s.Require().NoError(pull.Connect("inproc://driver-roundtrip"))

	released := false
	s.Require().NoError(push.Send([]byte("a"), api.SNDMORE|api.DONTWAIT, func() { released = true }))
	s.True(released)
	s.Require().NoError(push.Send(nil, api.DONTWAIT, nil))

	s.waitReadable(pull)
	f, err := pull.Recv(api.DONTWAIT)
	s.Require().NoError(err)
	s.Equal([]byte("a"), f.Bytes())
	s.Require().NoError(f.Close())
	s.ErrorIs(f.Close(), ErrFrameReleased)

	more, err := pull.RcvMore()
	s.Require().NoError(err)
	s.True(more)

	f, err = pull.Recv(api.DONTWAIT)
	s.Require().NoError(err)
	s.Empty(f.Bytes())
	s.Require().NoError(f.Close())

	more, err = pull.RcvMore()
	s.Require().NoError(err)
	s.False(more)

	_, err = pull.Recv(api.DONTWAIT)
	s.True(api.IsWouldBlock(err))
}

func (s *ZMQTestSuite) TestFdAndEvents() {
	pull := s.socket(api.PULL)
	defer pull.Close()
	fd, err := pull.Fd()
	s.Require().NoError(err)
	s.Greater(fd, 0)
	ev, err := pull.Events()
	s.Require().NoError(err)
	s.False(ev.Readable())
}

func (s *ZMQTestSuite) TestOptions() {
	soc := s.socket(api.DEALER)
	defer soc.Close()

	s.Require().NoError(soc.SetInt(api.OptSndhwm, 77))
	v, err := soc.GetInt(api.OptSndhwm)
	s.Require().NoError(err)
	s.Equal(77, v)

	v, err = soc.GetInt(api.OptLinger)
	s.Require().NoError(err)
	s.Equal(0, v)
	s.Require().NoError(soc.SetInt(api.OptLinger, -1))
	v, err = soc.GetInt(api.OptLinger)
	s.Require().NoError(err)
	s.Equal(-1, v)

	s.Require().NoError(soc.SetInt64(api.OptMaxmsgsize, 1<<20))
	v64, err := soc.GetInt64(api.OptMaxmsgsize)
	s.Require().NoError(err)
	s.Equal(int64(1<<20), v64)

	s.Require().NoError(soc.SetUint64(api.OptAffinity, 3))
	u64, err := soc.GetUint64(api.OptAffinity)
	s.Require().NoError(err)
	s.Equal(uint64(3), u64)

	s.Require().NoError(soc.SetBytes(api.OptIdentity, []byte("peer-1")))
	b, err := soc.GetBytes(api.OptIdentity)
	s.Require().NoError(err)
	s.Equal([]byte("peer-1"), b)

	v, err = soc.GetInt(api.OptType)
	s.Require().NoError(err)
	s.Equal(int(api.DEALER), v)

	s.ErrorIs(soc.SetInt(api.OptType, 1), syscall.EINVAL)
	_, err = soc.GetBytes(api.OptSubscribe)
	s.ErrorIs(err, syscall.EINVAL)
}

func (s *ZMQTestSuite) TestAddressInUse() {
	a := s.socket(api.PUB)
	defer a.Close()
	b := s.socket(api.PUB)
	defer b.Close()

	s.Require().NoError(a.Bind("tcp://127.0.0.1:*"))
	ep, err := a.GetBytes(api.OptLastEndpoint)
	s.Require().NoError(err)

	err = b.Bind(string(ep))
	s.Require().Error(err)
	s.ErrorIs(err, syscall.EADDRINUSE)
	s.NotEmpty(err.Error())
}

func (s *ZMQTestSuite) TestUnbindDisconnect() {
	a := s.socket(api.PUSH)
	defer a.Close()
	b := s.socket(api.PULL)
	defer b.Close()

	s.Require().NoError(a.Bind("tcp://127.0.0.1:*"))
	ep, err := a.GetBytes(api.OptLastEndpoint)
	s.Require().NoError(err)
	s.Require().NoError(b.Connect(string(ep)))
	s.Require().NoError(b.Disconnect(string(ep)))
	s.Require().NoError(a.Unbind(string(ep)))
	s.Error(a.Unbind(string(ep)))
}

func (s *ZMQTestSuite) TestMonitorToggle() {
	soc := s.socket(api.REP)
	defer soc.Close()
	s.Require().NoError(soc.Monitor("inproc://driver-monitor", api.EventAll))
	s.Require().NoError(soc.Monitor("", api.EventAll))
}

func TestZMQTestSuite(t *testing.T) {
	suite.Run(t, new(ZMQTestSuite))
}
