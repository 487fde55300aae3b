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

package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/srediag/plugin-zmq/pkg/messenger"
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// sendWindow bounds the batches remote-thr keeps queued.
const sendWindow = 1024

type bench func(ctx context.Context, r *runner) (report, error)

var benches = map[string]bench{
	"local-thr":  localThr,
	"remote-thr": remoteThr,
	"local-lat":  localLat,
	"remote-lat": remoteLat,
}

func checkSize(parts []*zmq.Message, size int) error {
	if len(parts) != 1 || parts[0].Len() != size {
		n := 0
		for _, p := range parts {
			n += p.Len()
		}
		return fmt.Errorf("got %d part(s) of %d bytes, want one of %d", len(parts), n, size)
	}
	return nil
}

// localThr binds a PULL socket and times the arrival of count messages,
// from the first one on.
func localThr(ctx context.Context, r *runner) (report, error) {
	var (
		n       int
		start   time.Time
		elapsed time.Duration
	)
	pull, err := r.socket(zmq.PULL, messenger.Handlers{
		Message: func(_ *messenger.Socket, parts []*zmq.Message) {
			if err := checkSize(parts, r.cfg.Size); err != nil {
				r.abort(err)
				return
			}
			if n == 0 {
				start = time.Now()
			}
			n++
			if n == r.cfg.Count {
				elapsed = time.Since(start)
				r.stop()
			}
		},
	})
	if err != nil {
		return report{}, err
	}
	if err := pull.BindSync(r.cfg.Endpoint); err != nil {
		return report{}, err
	}
	if err := r.run(ctx); err != nil {
		return report{}, fmt.Errorf("received %d of %d: %w", n, r.cfg.Count, err)
	}
	return throughput("local-thr", r.cfg.Size, r.cfg.Count, elapsed), nil
}

// remoteThr connects a PUSH socket and sends count messages, keeping at most
// sendWindow of them queued.
func remoteThr(ctx context.Context, r *runner) (report, error) {
	push, err := r.socket(zmq.PUSH, messenger.Handlers{})
	if err != nil {
		return report{}, err
	}
	if err := push.Connect(r.cfg.Endpoint); err != nil {
		return report{}, err
	}
	msg := bytes.Repeat([]byte{'h'}, r.cfg.Size)
	var (
		issued, sent int
		pump         func()
	)
	done := func(err error) {
		if err != nil {
			r.abort(err)
			return
		}
		sent++
		if sent == r.cfg.Count {
			r.stop()
			return
		}
		pump()
	}
	pump = func() {
		for issued < r.cfg.Count && push.Queued() < sendWindow {
			issued++
			if err := push.Send(msg, 0, done); err != nil {
				r.abort(err)
				return
			}
		}
	}
	start := time.Now()
	pump()
	if err := r.run(ctx); err != nil {
		return report{}, fmt.Errorf("sent %d of %d: %w", sent, r.cfg.Count, err)
	}
	return throughput("remote-thr", r.cfg.Size, r.cfg.Count, time.Since(start)), nil
}

// localLat echoes count messages on a REP socket.
func localLat(ctx context.Context, r *runner) (report, error) {
	n := 0
	start := time.Now()
	rep, err := r.socket(zmq.REP, messenger.Handlers{
		Message: func(s *messenger.Socket, parts []*zmq.Message) {
			if err := checkSize(parts, r.cfg.Size); err != nil {
				r.abort(err)
				return
			}
			if err := s.Send(parts[0].Bytes(), 0, nil); err != nil {
				r.abort(err)
				return
			}
			n++
			if n == r.cfg.Count {
				r.stop()
			}
		},
	})
	if err != nil {
		return report{}, err
	}
	if err := rep.BindSync(r.cfg.Endpoint); err != nil {
		return report{}, err
	}
	if err := r.run(ctx); err != nil {
		return report{}, fmt.Errorf("echoed %d of %d: %w", n, r.cfg.Count, err)
	}
	return latency("local-lat", r.cfg.Size, r.cfg.Count, time.Since(start)), nil
}

// remoteLat sends count requests one at a time and times the roundtrips.
func remoteLat(ctx context.Context, r *runner) (report, error) {
	msg := bytes.Repeat([]byte{'h'}, r.cfg.Size)
	var (
		n       int
		start   time.Time
		elapsed time.Duration
	)
	send := func(s *messenger.Socket) {
		if err := s.Send(msg, 0, nil); err != nil {
			r.abort(err)
		}
	}
	req, err := r.socket(zmq.REQ, messenger.Handlers{
		Message: func(s *messenger.Socket, parts []*zmq.Message) {
			if err := checkSize(parts, r.cfg.Size); err != nil {
				r.abort(err)
				return
			}
			n++
			if n == r.cfg.Count {
				elapsed = time.Since(start)
				r.stop()
				return
			}
			send(s)
		},
	})
	if err != nil {
		return report{}, err
	}
	if err := req.Connect(r.cfg.Endpoint); err != nil {
		return report{}, err
	}
	start = time.Now()
	send(req)
	if err := r.run(ctx); err != nil {
		return report{}, fmt.Errorf("completed %d of %d roundtrips: %w", n, r.cfg.Count, err)
	}
	return latency("remote-lat", r.cfg.Size, r.cfg.Count, elapsed), nil
}
