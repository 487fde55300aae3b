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

// Package transport drives libzmq through github.com/pebbe/zmq4 behind the
// api contracts.
package transport

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	zmq4 "github.com/pebbe/zmq4"

	"github.com/srediag/plugin-zmq/api"
)

// ErrFrameReleased is returned when a frame is closed twice.
var ErrFrameReleased = errors.New("transport: frame already released")

// ZMQ is the libzmq transport.
type ZMQ struct{}

// New returns the libzmq transport.
func New() *ZMQ {
	return &ZMQ{}
}

func (*ZMQ) Version() (major, minor, patch int) {
	return zmq4.Version()
}

func (*ZMQ) NewContext() (api.NativeContext, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, convert(err)
	}
	return &zmqContext{ctx: ctx}, nil
}

type zmqContext struct {
	ctx *zmq4.Context
}

func (c *zmqContext) NewSocket(t api.SocketType) (api.NativeSocket, error) {
	soc, err := c.ctx.NewSocket(zmq4.Type(t))
	if err != nil {
		return nil, convert(err)
	}
	return &zmqSocket{soc: soc}, nil
}

func (c *zmqContext) GetOption(code int) (int, error) {
	var (
		v   int
		b   bool
		err error
	)
	switch code {
	case api.CtxIOThreads:
		v, err = c.ctx.GetIoThreads()
	case api.CtxMaxSockets:
		v, err = c.ctx.GetMaxSockets()
	case api.CtxMaxMsgsz:
		v, err = c.ctx.GetMaxMsgsz()
	case api.CtxIPv6:
		b, err = c.ctx.GetIpv6()
		v = boolToInt(b)
	case api.CtxBlocky:
		b, err = c.ctx.GetBlocky()
		v = boolToInt(b)
	default:
		return 0, invalid(code)
	}
	return v, convert(err)
}

func (c *zmqContext) SetOption(code int, value int) error {
	var err error
	switch code {
	case api.CtxIOThreads:
		err = c.ctx.SetIoThreads(value)
	case api.CtxMaxSockets:
		err = c.ctx.SetMaxSockets(value)
	case api.CtxMaxMsgsz:
		err = c.ctx.SetMaxMsgsz(value)
	case api.CtxIPv6:
		err = c.ctx.SetIpv6(value != 0)
	case api.CtxBlocky:
		err = c.ctx.SetBlocky(value != 0)
	default:
		return invalid(code)
	}
	return convert(err)
}

func (c *zmqContext) Term() error {
	return convert(c.ctx.Term())
}

type zmqSocket struct {
	soc *zmq4.Socket
}

func (s *zmqSocket) Bind(endpoint string) error {
	return convert(s.soc.Bind(endpoint))
}

func (s *zmqSocket) Unbind(endpoint string) error {
	return convert(s.soc.Unbind(endpoint))
}

func (s *zmqSocket) Connect(endpoint string) error {
	return convert(s.soc.Connect(endpoint))
}

func (s *zmqSocket) Disconnect(endpoint string) error {
	return convert(s.soc.Disconnect(endpoint))
}

func (s *zmqSocket) Fd() (int, error) {
	fd, err := s.soc.GetFd()
	return fd, convert(err)
}

func (s *zmqSocket) Events() (api.Events, error) {
	st, err := s.soc.GetEvents()
	if err != nil {
		return 0, convert(err)
	}
	return api.Events(st), nil
}

func (s *zmqSocket) RcvMore() (bool, error) {
	more, err := s.soc.GetRcvmore()
	return more, convert(err)
}

func (s *zmqSocket) Recv(flags api.Flag) (api.Frame, error) {
	b, err := s.soc.RecvBytes(zmq4.Flag(flags))
	if err != nil {
		return nil, convert(err)
	}
	return &frame{data: b}, nil
}

// Send hands data to zmq_send, which copies it before returning, so a
// release callback runs right away on the calling goroutine.
func (s *zmqSocket) Send(data []byte, flags api.Flag, release func()) error {
	if _, err := s.soc.SendBytes(data, zmq4.Flag(flags)); err != nil {
		return convert(err)
	}
	if release != nil {
		release()
	}
	return nil
}

func (s *zmqSocket) GetInt(code int) (int, error) {
	var (
		v   int
		b   bool
		d   time.Duration
		err error
	)
	switch code {
	case api.OptType:
		var t zmq4.Type
		t, err = s.soc.GetType()
		v = int(t)
	case api.OptRcvmore:
		b, err = s.soc.GetRcvmore()
		v = boolToInt(b)
	case api.OptFd:
		v, err = s.soc.GetFd()
	case api.OptEvents:
		var st zmq4.State
		st, err = s.soc.GetEvents()
		v = int(st)
	case api.OptRate:
		v, err = s.soc.GetRate()
	case api.OptRecoveryIvl:
		d, err = s.soc.GetRecoveryIvl()
		v = millis(d)
	case api.OptSndbuf:
		v, err = s.soc.GetSndbuf()
	case api.OptRcvbuf:
		v, err = s.soc.GetRcvbuf()
	case api.OptLinger:
		d, err = s.soc.GetLinger()
		v = millis(d)
	case api.OptReconnectIvl:
		d, err = s.soc.GetReconnectIvl()
		v = millis(d)
	case api.OptReconnectIvlMax:
		d, err = s.soc.GetReconnectIvlMax()
		v = millis(d)
	case api.OptBacklog:
		v, err = s.soc.GetBacklog()
	case api.OptSndhwm:
		v, err = s.soc.GetSndhwm()
	case api.OptRcvhwm:
		v, err = s.soc.GetRcvhwm()
	case api.OptMulticastHops:
		v, err = s.soc.GetMulticastHops()
	case api.OptRcvtimeo:
		d, err = s.soc.GetRcvtimeo()
		v = millis(d)
	case api.OptSndtimeo:
		d, err = s.soc.GetSndtimeo()
		v = millis(d)
	case api.OptTCPKeepalive:
		v, err = s.soc.GetTcpKeepalive()
	case api.OptTCPKeepaliveCnt:
		v, err = s.soc.GetTcpKeepaliveCnt()
	case api.OptTCPKeepaliveIdle:
		v, err = s.soc.GetTcpKeepaliveIdle()
	case api.OptTCPKeepaliveIntvl:
		v, err = s.soc.GetTcpKeepaliveIntvl()
	case api.OptImmediate:
		b, err = s.soc.GetImmediate()
		v = boolToInt(b)
	case api.OptIPv6:
		b, err = s.soc.GetIpv6()
		v = boolToInt(b)
	case api.OptMechanism:
		var m zmq4.Mechanism
		m, err = s.soc.GetMechanism()
		v = int(m)
	case api.OptPlainServer:
		v, err = s.soc.GetPlainServer()
	case api.OptCurveServer:
		v, err = s.soc.GetCurveServer()
	default:
		return 0, invalid(code)
	}
	return v, convert(err)
}

func (s *zmqSocket) SetInt(code int, value int) error {
	var err error
	switch code {
	case api.OptRate:
		err = s.soc.SetRate(value)
	case api.OptRecoveryIvl:
		err = s.soc.SetRecoveryIvl(duration(value))
	case api.OptSndbuf:
		err = s.soc.SetSndbuf(value)
	case api.OptRcvbuf:
		err = s.soc.SetRcvbuf(value)
	case api.OptLinger:
		err = s.soc.SetLinger(duration(value))
	case api.OptReconnectIvl:
		err = s.soc.SetReconnectIvl(duration(value))
	case api.OptReconnectIvlMax:
		err = s.soc.SetReconnectIvlMax(duration(value))
	case api.OptBacklog:
		err = s.soc.SetBacklog(value)
	case api.OptSndhwm:
		err = s.soc.SetSndhwm(value)
	case api.OptRcvhwm:
		err = s.soc.SetRcvhwm(value)
	case api.OptMulticastHops:
		err = s.soc.SetMulticastHops(value)
	case api.OptRcvtimeo:
		err = s.soc.SetRcvtimeo(duration(value))
	case api.OptSndtimeo:
		err = s.soc.SetSndtimeo(duration(value))
	case api.OptRouterMandatory:
		err = s.soc.SetRouterMandatory(value)
	case api.OptTCPKeepalive:
		err = s.soc.SetTcpKeepalive(value)
	case api.OptTCPKeepaliveCnt:
		err = s.soc.SetTcpKeepaliveCnt(value)
	case api.OptTCPKeepaliveIdle:
		err = s.soc.SetTcpKeepaliveIdle(value)
	case api.OptTCPKeepaliveIntvl:
		err = s.soc.SetTcpKeepaliveIntvl(value)
	case api.OptImmediate:
		err = s.soc.SetImmediate(value != 0)
	case api.OptXpubVerbose:
		err = s.soc.SetXpubVerbose(value)
	case api.OptIPv6:
		err = s.soc.SetIpv6(value != 0)
	case api.OptPlainServer:
		err = s.soc.SetPlainServer(value)
	case api.OptCurveServer:
		err = s.soc.SetCurveServer(value)
	case api.OptProbeRouter:
		err = s.soc.SetProbeRouter(value)
	case api.OptReqCorrelate:
		err = s.soc.SetReqCorrelate(value)
	case api.OptReqRelaxed:
		err = s.soc.SetReqRelaxed(value)
	case api.OptConflate:
		err = s.soc.SetConflate(value != 0)
	default:
		return invalid(code)
	}
	return convert(err)
}

func (s *zmqSocket) GetInt64(code int) (int64, error) {
	if code != api.OptMaxmsgsize {
		return 0, invalid(code)
	}
	v, err := s.soc.GetMaxmsgsize()
	return v, convert(err)
}

func (s *zmqSocket) SetInt64(code int, value int64) error {
	if code != api.OptMaxmsgsize {
		return invalid(code)
	}
	return convert(s.soc.SetMaxmsgsize(value))
}

func (s *zmqSocket) GetUint64(code int) (uint64, error) {
	if code != api.OptAffinity {
		return 0, invalid(code)
	}
	v, err := s.soc.GetAffinity()
	return v, convert(err)
}

func (s *zmqSocket) SetUint64(code int, value uint64) error {
	if code != api.OptAffinity {
		return invalid(code)
	}
	return convert(s.soc.SetAffinity(value))
}

func (s *zmqSocket) GetBytes(code int) ([]byte, error) {
	var (
		v   string
		err error
	)
	switch code {
	case api.OptIdentity:
		v, err = s.soc.GetIdentity()
	case api.OptLastEndpoint:
		v, err = s.soc.GetLastEndpoint()
	case api.OptPlainUsername:
		v, err = s.soc.GetPlainUsername()
	case api.OptPlainPassword:
		v, err = s.soc.GetPlainPassword()
	case api.OptZapDomain:
		v, err = s.soc.GetZapDomain()
	default:
		return nil, invalid(code)
	}
	if err != nil {
		return nil, convert(err)
	}
	return []byte(v), nil
}

func (s *zmqSocket) SetBytes(code int, value []byte) error {
	v := string(value)
	var err error
	switch code {
	case api.OptIdentity:
		err = s.soc.SetIdentity(v)
	case api.OptSubscribe:
		err = s.soc.SetSubscribe(v)
	case api.OptUnsubscribe:
		err = s.soc.SetUnsubscribe(v)
	case api.OptPlainUsername:
		err = s.soc.SetPlainUsername(v)
	case api.OptPlainPassword:
		err = s.soc.SetPlainPassword(v)
	case api.OptCurvePublickey:
		err = s.soc.SetCurvePublickey(v)
	case api.OptCurveSecretkey:
		err = s.soc.SetCurveSecretkey(v)
	case api.OptCurveServerkey:
		err = s.soc.SetCurveServerkey(v)
	case api.OptZapDomain:
		err = s.soc.SetZapDomain(v)
	default:
		return invalid(code)
	}
	return convert(err)
}

func (s *zmqSocket) Monitor(endpoint string, events int) error {
	return convert(s.soc.Monitor(endpoint, zmq4.Event(events)))
}

func (s *zmqSocket) Close() error {
	return convert(s.soc.Close())
}

// frame owns a copy made by zmq_msg_recv, so Close only guards the
// single-release contract.
type frame struct {
	data     []byte
	released bool
}

func (f *frame) Bytes() []byte {
	return f.data
}

func (f *frame) Close() error {
	if f.released {
		return ErrFrameReleased
	}
	f.released = true
	f.data = nil
	return nil
}

// convert maps a pebbe/zmq4 error onto *api.Errno, keeping other errors.
func convert(err error) error {
	if err == nil {
		return nil
	}
	if e := zmq4.AsErrno(err); e != 0 {
		return &api.Errno{Code: int(e), Msg: e.Error()}
	}
	return err
}

func invalid(code int) error {
	return fmt.Errorf("transport: option %d: %w", code, &api.Errno{Code: int(syscall.EINVAL), Msg: "Invalid argument"})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int(d / time.Millisecond)
}

func duration(ms int) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}
