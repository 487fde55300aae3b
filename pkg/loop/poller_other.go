//go:build !linux

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

// stubPoller stands in where epoll is missing. Timers, async handles and work
// keep running, but WatchFD fails, and with it every zmq socket.
type stubPoller struct{}

func newPoller(_ *Loop) (poller, error) {
	return stubPoller{}, nil
}

func (stubPoller) supported() bool              { return false }
func (stubPoller) arm(_ *Watcher, _ bool) error { return ErrUnsupportedPlatform }
func (stubPoller) remove(_ *Watcher) error      { return nil }
func (stubPoller) close() error                 { return nil }
