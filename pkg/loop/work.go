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
	"fmt"

	"github.com/srediag/plugin-zmq/internal/logging"
)

// QueueWork runs work on the pool and then done on the loop. done runs even
// when work panics. Outstanding work keeps the loop alive.
func (l *Loop) QueueWork(work func(), done func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	l.work.Add(1)
	err := l.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Internal.Errorf("loop: work item panic: %v", r)
			}
			if err := l.Post(func() {
				l.work.Add(-1)
				if done != nil {
					done()
				}
			}); err != nil {
				l.work.Add(-1)
				logging.Internal.Warnf("loop: drop work completion: %v", err)
			}
		}()
		work()
	})
	if err != nil {
		l.work.Add(-1)
		return fmt.Errorf("loop: queue work: %w", err)
	}
	return nil
}

// Workers returns the number of pool goroutines currently running work.
func (l *Loop) Workers() int {
	return l.pool.Running()
}
