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
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

func (s *MessengerTestSuite) TestProxyPullToPushWithCapture() {
	front := s.socket(zmq.PULL, nil, Handlers{})
	s.Require().NoError(front.BindSync("inproc://front"))
	back := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(back.BindSync("inproc://back"))
	capture := s.socket(zmq.PUB, nil, Handlers{})
	s.Require().NoError(capture.BindSync("inproc://capture"))

	var got, captured []string
	done := func() {
		if len(got) == 2 && len(captured) == 2 {
			s.ctx.Loop().Stop()
		}
	}
	consumer := s.socket(zmq.PULL, nil, Handlers{Message: func(m *Socket, parts []*zmq.Message) {
		collect(&got)(m, parts)
		done()
	}})
	s.Require().NoError(consumer.Connect("inproc://back"))
	tap := s.socket(zmq.SUB, nil, Handlers{Message: func(m *Socket, parts []*zmq.Message) {
		collect(&captured)(m, parts)
		done()
	}})
	s.Require().NoError(tap.Subscribe(nil))
	s.Require().NoError(tap.Connect("inproc://capture"))

	s.Require().NoError(Proxy(front, back, capture))

	producer := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(producer.Connect("inproc://front"))
	s.Require().NoError(producer.SendMultipart([][]byte{[]byte("foo"), []byte("bar")}, 0, nil))
	s.run()

	s.Equal([]string{"foo", "bar"}, got)
	s.Equal([]string{"foo", "bar"}, captured)
}

func (s *MessengerTestSuite) TestProxyPushFrontendForwardsFromBackend() {
	front := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(front.BindSync("inproc://front2"))
	back := s.socket(zmq.PULL, nil, Handlers{})
	s.Require().NoError(back.BindSync("inproc://back2"))

	var got []string
	consumer := s.socket(zmq.PULL, nil, Handlers{Message: func(m *Socket, parts []*zmq.Message) {
		collect(&got)(m, parts)
		s.ctx.Loop().Stop()
	}})
	s.Require().NoError(consumer.Connect("inproc://front2"))
	s.Require().NoError(Proxy(front, back, nil))

	producer := s.socket(zmq.PUSH, nil, Handlers{})
	s.Require().NoError(producer.Connect("inproc://back2"))
	s.Require().NoError(producer.Send([]byte("up"), 0, nil))
	s.run()
	s.Equal([]string{"up"}, got)
}

func (s *MessengerTestSuite) TestProxyRejectsUnsupportedPair() {
	pub := s.socket(zmq.PUB, nil, Handlers{})
	sub := s.socket(zmq.SUB, nil, Handlers{})
	s.ErrorContains(Proxy(pub, sub, nil), "pub/sub")
	s.ErrorContains(Proxy(sub, sub, nil), "unsupported")
}
