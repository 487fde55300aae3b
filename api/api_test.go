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

package api

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type APITestSuite struct {
	suite.Suite
}

func (s *APITestSuite) TestParseSocketType() {
	for _, name := range []string{"push", "PUSH", "ZMQ_PUSH", "zmq_push"} {
		t, err := ParseSocketType(name)
		s.Require().NoError(err, name)
		s.Equal(PUSH, t)
	}
	t, err := ParseSocketType("xrep")
	s.Require().NoError(err)
	s.Equal(ROUTER, t)
	t, err = ParseSocketType("xreq")
	s.Require().NoError(err)
	s.Equal(DEALER, t)

	_, err = ParseSocketType("bogus")
	s.Error(err)
}

func (s *APITestSuite) TestSocketTypeString() {
	s.Equal("router", ROUTER.String())
	s.Equal("SocketType(99)", SocketType(99).String())
	s.False(SocketType(-1).Valid())
}

func (s *APITestSuite) TestParseFlag() {
	f, err := ParseFlag("ZMQ_SNDMORE")
	s.Require().NoError(err)
	s.Equal(SNDMORE, f)
	f, err = ParseFlag("noblock")
	s.Require().NoError(err)
	s.Equal(DONTWAIT, f)
	_, err = ParseFlag("later")
	s.Error(err)
}

func (s *APITestSuite) TestEvents() {
	e := POLLIN | POLLOUT
	s.True(e.Readable())
	s.True(e.Writable())
	s.False(POLLOUT.Readable())
}

func (s *APITestSuite) TestErrno() {
	err := fmt.Errorf("bind: %w", &Errno{Code: int(syscall.EADDRINUSE), Msg: "Address already in use"})
	s.True(errors.Is(err, syscall.EADDRINUSE))
	s.False(errors.Is(err, syscall.EAGAIN))
	s.Equal(int(syscall.EADDRINUSE), ErrnoOf(err))
	s.Equal(0, ErrnoOf(errors.New("plain")))
	s.Equal(int(syscall.EINVAL), ErrnoOf(syscall.EINVAL))

	s.True(IsInterrupted(&Errno{Code: int(syscall.EINTR)}))
	s.True(IsWouldBlock(&Errno{Code: int(syscall.EAGAIN)}))
	s.False(IsWouldBlock(nil))
	s.Equal(syscall.EAGAIN.Error(), (&Errno{Code: int(syscall.EAGAIN)}).Error())
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestDetectCapabilities(t *testing.T) {
	c := DetectCapabilities(4, 3, 4)
	assert.True(t, c.HasUnbind)
	assert.True(t, c.HasMonitor)
	assert.True(t, c.AtomicMultipart)
	assert.Equal(t, MonitorLayoutTwoFrame, c.MonitorLayout)
	assert.True(t, c.HasContextMaxMsgsz)
	assert.True(t, c.AtLeast(4, 2))
	assert.False(t, c.AtLeast(4, 4))

	c = DetectCapabilities(3, 2, 5)
	assert.True(t, c.HasMonitor)
	assert.Equal(t, MonitorLayoutLegacy, c.MonitorLayout)
	assert.False(t, c.HasCurve)

	c = DetectCapabilities(2, 2, 0)
	assert.False(t, c.HasUnbind)
	assert.False(t, c.HasMonitor)
	assert.False(t, c.AtomicMultipart)
}
