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
	"fmt"

	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// Proxy forwards messages between frontend and backend. PUSH/PULL pairs
// forward from the PULL side to the PUSH side; ROUTER/DEALER and XPUB/XSUB
// pairs forward both ways. When capture is set every forwarded message is
// copied to it. Proxy replaces the Message handlers of the sockets involved.
func Proxy(frontend, backend, capture *Socket) error {
	ft, bt := frontend.Type(), backend.Type()
	switch {
	case ft == zmq.PULL && bt == zmq.PUSH:
		frontend.forwardTo(backend, capture)
	case ft == zmq.PUSH && bt == zmq.PULL:
		backend.forwardTo(frontend, capture)
	case ft == zmq.ROUTER && bt == zmq.DEALER,
		ft == zmq.XPUB && bt == zmq.XSUB,
		ft == zmq.XSUB && bt == zmq.XPUB:
		frontend.forwardTo(backend, capture)
		backend.forwardTo(frontend, capture)
	default:
		return fmt.Errorf("messenger: proxy: unsupported socket pair %s/%s", ft, bt)
	}
	return nil
}

func (m *Socket) forwardTo(dst, capture *Socket) {
	m.h.Message = func(_ *Socket, parts []*zmq.Message) {
		frames := make([][]byte, len(parts))
		for i, p := range parts {
			frames[i] = p.Bytes()
		}
		if err := dst.SendMultipart(frames, 0, nil); err != nil {
			m.fail(err)
		}
		if capture != nil {
			if err := capture.SendMultipart(frames, 0, nil); err != nil {
				capture.fail(err)
			}
		}
	}
	m.flushReads()
}
