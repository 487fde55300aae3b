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
	"github.com/valyala/bytebufferpool"

	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// batch is the frames of one message and the callbacks waiting for it. It is
// sealed once a frame without SNDMORE is appended. Frames are copied into
// pooled buffers on append, so callers may reuse their slices at once.
type batch struct {
	parts  []zmq.Part
	bufs   []*bytebufferpool.ByteBuffer
	cbs    []func(error)
	sealed bool
}

func (b *batch) append(data []byte, flags zmq.Flag, cb func(error)) {
	buf := bytebufferpool.Get()
	_, _ = buf.Write(data)
	b.bufs = append(b.bufs, buf)
	b.parts = append(b.parts, zmq.Part{Data: buf.B, Flags: flags})
	if cb != nil {
		b.cbs = append(b.cbs, cb)
	}
	if flags&zmq.SNDMORE == 0 {
		b.sealed = true
	}
}

// release drops the frame copies. With recycle they go back to the pool;
// that is only safe once the library no longer reads them.
func (b *batch) release(recycle bool) {
	if recycle {
		for _, buf := range b.bufs {
			bytebufferpool.Put(buf)
		}
	}
	b.bufs = nil
	b.parts = nil
}

// fail reports err to every callback. It returns false when there was none.
func (b *batch) fail(err error) bool {
	for _, cb := range b.cbs {
		cb(err)
	}
	return len(b.cbs) > 0
}

func (b *batch) sent() {
	for _, cb := range b.cbs {
		cb(nil)
	}
}

// batchList queues outgoing batches in send order. Only the last batch may
// be unsealed.
type batchList struct {
	batches []*batch
}

func (l *batchList) len() int {
	return len(l.batches)
}

// canSend reports whether the first batch is complete.
func (l *batchList) canSend() bool {
	return len(l.batches) > 0 && l.batches[0].sealed
}

func (l *batchList) append(data []byte, flags zmq.Flag, cb func(error)) {
	n := len(l.batches)
	if n == 0 || l.batches[n-1].sealed {
		l.batches = append(l.batches, &batch{})
		n++
	}
	l.batches[n-1].append(data, flags, cb)
}

// front returns the first batch if it is complete. It stays queued until
// pop, so a batch the socket refuses keeps its place.
func (l *batchList) front() *batch {
	if !l.canSend() {
		return nil
	}
	return l.batches[0]
}

func (l *batchList) pop() {
	l.batches[0] = nil
	l.batches = l.batches[1:]
}

// drain empties the list and returns what was queued.
func (l *batchList) drain() []*batch {
	b := l.batches
	l.batches = nil
	return b
}
