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
	"sync/atomic"
	"syscall"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/internal/transport"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

// BufferReference pins a buffer handed to the library without a copy.
//
// The library signals completion from any goroutine; that only flips done
// and wakes the loop. The pin is dropped and OnRelease runs on the loop.
type BufferReference struct {
	data      []byte
	done      atomic.Bool
	released  bool
	wake      *loop.Async
	onRelease func()
}

func (r *BufferReference) complete() {
	if r.done.CompareAndSwap(false, true) {
		r.wake.Send()
	}
}

// Data returns the pinned buffer. It must not be modified before Released.
func (r *BufferReference) Data() []byte {
	return r.data
}

// Done reports whether the library signalled completion. Safe for
// concurrent use.
func (r *BufferReference) Done() bool {
	return r.done.Load()
}

// Released reports whether the pin was dropped on the loop.
func (r *BufferReference) Released() bool {
	return r.released
}

// OnRelease sets a callback run on the loop when the pin is dropped.
func (r *BufferReference) OnRelease(fn func()) {
	r.onRelease = fn
}

// Part is one frame of a batch send.
type Part struct {
	Data  []byte
	Flags Flag
}

// Send queues one frame without blocking. It returns false, nil when the
// library would block; hard failures are errors. The frame is copied unless
// the context was configured with ZeroCopy.
func (s *Socket) Send(data []byte, flags Flag) (bool, error) {
	if err := s.guard("send"); err != nil {
		return false, err
	}
	ok, err := s.send(data, flags)
	s.scheduleCheck()
	return ok, err
}

// SendZeroCopy queues data without copying. data stays pinned until the
// returned reference is released.
func (s *Socket) SendZeroCopy(data []byte, flags Flag) (*BufferReference, bool, error) {
	if err := s.guard("send"); err != nil {
		return nil, false, err
	}
	ref, ok, err := s.sendZeroCopy(data, flags)
	s.scheduleCheck()
	return ref, ok, err
}

// SendMultipart sends parts as one message.
func (s *Socket) SendMultipart(parts [][]byte) (bool, error) {
	batch := make([]Part, len(parts))
	for i, p := range parts {
		batch[i] = Part{Data: p}
	}
	return s.SendBatch(batch)
}

// SendBatch sends parts in order, adding SNDMORE to all but the last, which
// keeps its own flags. Writability is checked before every frame. A batch
// refused before its first frame returns false, nil; one cut short later
// returns a *PartialSendError.
func (s *Socket) SendBatch(parts []Part) (bool, error) {
	if len(parts) == 0 {
		return false, invalidf("send", "empty batch")
	}
	if err := s.guard("send"); err != nil {
		return false, err
	}
	defer s.scheduleCheck()
	for i, p := range parts {
		flags := p.Flags
		if i < len(parts)-1 {
			flags |= SNDMORE
		}
		ev, err := transport.RetryValue(s.native.Events)
		if err != nil {
			return false, partial(i, len(parts), transportError("events", "", err))
		}
		var ok bool
		if ev.Writable() {
			ok, err = s.send(p.Data, flags)
			if err != nil {
				return false, partial(i, len(parts), err)
			}
		}
		if !ok {
			if i == 0 {
				return false, nil
			}
			return false, partial(i, len(parts), transportError("send", "", syscall.EAGAIN))
		}
	}
	return true, nil
}

func partial(sent, total int, err error) error {
	if sent == 0 {
		return err
	}
	return &PartialSendError{Sent: sent, Total: total, Err: err}
}

func (s *Socket) send(data []byte, flags Flag) (bool, error) {
	if s.zeroCopy {
		_, ok, err := s.sendZeroCopy(data, flags)
		return ok, err
	}
	// the library copies data before Send returns
	err := transport.Retry(func() error {
		return s.native.Send(data, flags|DONTWAIT, nil)
	})
	return s.sent(len(data), err)
}

func (s *Socket) sendZeroCopy(data []byte, flags Flag) (*BufferReference, bool, error) {
	if s.releaser == nil {
		s.releaser = s.loop.NewAsync(s.sweepReleases)
		s.releaser.Unref()
	}
	ref := &BufferReference{data: data, wake: s.releaser}
	s.inflight = append(s.inflight, ref)
	err := transport.Retry(func() error {
		return s.native.Send(data, flags|DONTWAIT, ref.complete)
	})
	ok, err := s.sent(len(data), err)
	if !ok {
		s.inflight = s.inflight[:len(s.inflight)-1]
		return nil, false, err
	}
	// pending completions keep the loop alive
	s.releaser.Ref()
	return ref, true, nil
}

func (s *Socket) sent(n int, err error) (bool, error) {
	if err != nil {
		if api.IsWouldBlock(err) {
			return false, nil
		}
		return false, transportError("send", "", err)
	}
	s.ctx.metrics.sent(n)
	return true, nil
}

// sweepReleases drops the pins the library is done with. Runs on the loop.
func (s *Socket) sweepReleases() {
	kept := s.inflight[:0]
	for _, ref := range s.inflight {
		if !ref.done.Load() {
			kept = append(kept, ref)
			continue
		}
		ref.released = true
		if ref.onRelease != nil {
			ref.onRelease()
		}
	}
	for i := len(kept); i < len(s.inflight); i++ {
		s.inflight[i] = nil
	}
	s.inflight = kept
	if len(kept) == 0 && s.releaser != nil {
		s.releaser.Unref()
	}
}
