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

package messenger

import (
	"context"
	"io"
	"time"

	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// background runs the loop on another goroutine until the returned func is
// called.
func (s *MessengerTestSuite) background() func() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done := make(chan error, 1)
	go func() { done <- s.ctx.Loop().Run(ctx) }()
	return func() {
		cancel()
		s.ErrorIs(<-done, context.Canceled)
	}
}

func (*MessengerTestSuite) recvTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func (s *MessengerTestSuite) TestStreamBackpressure() {
	push := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(push.BindSync("inproc://stream"))
	pull := s.socket(zmq.PULL, nil, Handlers{})
	s.Require().NoError(pull.Connect("inproc://stream"))
	want := []string{"one", "two", "three", "four", "five"}
	for _, p := range want {
		s.Require().NoError(push.Send([]byte(p), 0, nil))
	}

	st, err := NewStream(pull, 1)
	s.Require().NoError(err)
	s.True(st.Readable())
	s.False(st.Writable())
	// one message buffered, one held back, the rest left with the library
	s.Equal(3, s.native(1).Queued())

	stop := s.background()
	defer stop()
	var got []string
	for range want {
		ctx, cancel := s.recvTimeout()
		msg, err := st.Recv(ctx)
		cancel()
		s.Require().NoError(err)
		s.Require().Len(msg, 1)
		got = append(got, string(msg[0]))
	}
	s.Equal(want, got)
	s.Zero(s.native(1).Queued())

	s.ErrorIs(st.Send(context.Background(), []byte("x")), ErrNotWritable)
}

func (s *MessengerTestSuite) TestStreamSendAndWrite() {
	push := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(push.BindSync("inproc://wstream"))
	got := make(chan string, 8)
	pull := s.socket(zmq.PULL, nil, Handlers{Message: func(_ *Socket, parts []*zmq.Message) {
		for _, p := range parts {
			got <- string(p.Bytes())
		}
	}})
	s.Require().NoError(pull.Connect("inproc://wstream"))

	st, err := NewStream(push, 0)
	s.Require().NoError(err)
	s.True(st.Writable())
	var w io.Writer = st

	stop := s.background()
	defer stop()
	ctx, cancel := s.recvTimeout()
	defer cancel()
	s.Require().NoError(st.Send(ctx, []byte("a"), []byte("b")))
	n, err := w.Write([]byte("c"))
	s.Require().NoError(err)
	s.Equal(1, n)
	for _, want := range []string{"a", "b", "c"} {
		select {
		case p := <-got:
			s.Equal(want, p)
		case <-ctx.Done():
			s.FailNow("message not delivered", want)
		}
	}

	var verr *zmq.ValidationError
	s.ErrorAs(st.Send(ctx), &verr)
	_, err = st.Recv(ctx)
	s.ErrorIs(err, ErrNotReadable)
}

func (s *MessengerTestSuite) TestStreamDuplexRoundTrip() {
	a := s.socket(zmq.PAIR, nil, Handlers{})
	s.Require().NoError(a.BindSync("inproc://duplex"))
	b := s.socket(zmq.PAIR, nil, Handlers{})
	s.Require().NoError(b.Connect("inproc://duplex"))
	sa, err := NewStream(a, 4)
	s.Require().NoError(err)
	sb, err := NewStream(b, 4)
	s.Require().NoError(err)

	stop := s.background()
	defer stop()
	ctx, cancel := s.recvTimeout()
	defer cancel()
	s.Require().NoError(sa.Send(ctx, []byte("ping")))
	msg, err := sb.Recv(ctx)
	s.Require().NoError(err)
	s.Equal([][]byte{[]byte("ping")}, msg)
	s.Require().NoError(sb.Send(ctx, []byte("pong"), []byte("!")))
	msg, err = sa.Recv(ctx)
	s.Require().NoError(err)
	s.Equal([][]byte{[]byte("pong"), []byte("!")}, msg)
}

func (s *MessengerTestSuite) TestStreamUnsupportedType() {
	m := s.socket(zmq.STREAM, nil, Handlers{})
	_, err := NewStream(m, 1)
	s.ErrorContains(err, "unsupported socket type")
}

func (s *MessengerTestSuite) TestStreamCloseUnblocksRecv() {
	var got []string
	pull := s.socket(zmq.PULL, nil, Handlers{Message: collect(&got)})
	s.Require().NoError(pull.BindSync("inproc://closed-stream"))
	st, err := NewStream(pull, 1)
	s.Require().NoError(err)

	stop := s.background()
	errc := make(chan error, 1)
	go func() {
		_, err := st.Recv(context.Background())
		errc <- err
	}()
	s.Require().NoError(st.Close())
	s.NoError(st.Close())
	select {
	case err := <-errc:
		s.ErrorIs(err, ErrStreamClosed)
	case <-time.After(2 * time.Second):
		s.FailNow("Recv still blocked after Close")
	}
	ctx, cancel := s.recvTimeout()
	defer cancel()
	// queued behind the detach
	s.Require().NoError(s.ctx.Loop().Call(ctx, func() {}))
	stop()

	// the original handler is back once the loop ran the detach
	push := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(push.Connect("inproc://closed-stream"))
	s.Require().NoError(push.Send([]byte("after"), 0, nil))
	s.runFor(20 * time.Millisecond)
	s.Equal([]string{"after"}, got)
}
