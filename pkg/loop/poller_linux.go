//go:build linux

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

package loop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sys/unix"

	"github.com/srediag/plugin-zmq/internal/logging"
)

const maxEpollEvents = 128

// epollPoller waits on epoll in its own goroutine and posts every readiness
// notification to the loop inbox. Watchers are registered with EPOLLONESHOT.
type epollPoller struct {
	loop     *Loop
	epfd     int
	wakefd   int
	watchers cmap.ConcurrentMap[int, *Watcher]
	closing  atomic.Bool
	done     chan struct{}
}

func newPoller(l *Loop) (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("loop: epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("loop: eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("loop: register wake fd: %w", err)
	}
	p := &epollPoller{
		loop:     l,
		epfd:     epfd,
		wakefd:   wakefd,
		watchers: cmap.NewWithCustomShardingFunction[int, *Watcher](shardFd),
		done:     make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

func shardFd(fd int) uint32 {
	return uint32(fd)
}

func (p *epollPoller) supported() bool {
	return true
}

func (p *epollPoller) arm(w *Watcher, add bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLONESHOT, Fd: int32(w.fd)}
	if add {
		p.watchers.Set(w.fd, w)
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, w.fd, &ev)
		if errors.Is(err, unix.EEXIST) {
			err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, w.fd, &ev)
		}
		if err != nil {
			p.forget(w)
			return fmt.Errorf("loop: watch fd %d: %w", w.fd, err)
		}
		return nil
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, w.fd, &ev); err != nil {
		return fmt.Errorf("loop: re-arm fd %d: %w", w.fd, err)
	}
	return nil
}

func (p *epollPoller) remove(w *Watcher) error {
	p.forget(w)
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
	// The owner may already have closed the fd, which drops it from the set.
	if err == nil || errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		return nil
	}
	return fmt.Errorf("loop: unwatch fd %d: %w", w.fd, err)
}

func (p *epollPoller) forget(w *Watcher) {
	p.watchers.RemoveCb(w.fd, func(_ int, v *Watcher, exists bool) bool {
		return exists && v == w
	})
}

func (p *epollPoller) close() error {
	if !p.closing.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.wake(); err != nil {
		return err
	}
	<-p.done
	err := unix.Close(p.wakefd)
	if cerr := unix.Close(p.epfd); err == nil {
		err = cerr
	}
	return err
}

func (p *epollPoller) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(p.wakefd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("loop: wake poller: %w", err)
	}
	return nil
}

func (p *epollPoller) wait() {
	defer close(p.done)
	events := make([]unix.EpollEvent, maxEpollEvents)
	for {
		n, err := unix.EpollWait(p.epfd, events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			logging.Internal.Errorf("loop: epoll_wait: %v", err)
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wakefd {
				if p.closing.Load() {
					return
				}
				continue
			}
			w, ok := p.watchers.Get(fd)
			if !ok {
				continue
			}
			if err := p.loop.Post(w.fire); err != nil {
				logging.Internal.Debugf("loop: drop readiness for fd=%d: %v", fd, err)
			}
		}
	}
}
