/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
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
	"errors"
	"fmt"

	queuepkg "github.com/Workiva/go-datastructures/queue"
)

// task is one unit of loop work. A nil task only wakes the loop up.
type task func()

// inbox is the only way into the loop goroutine from the outside.
type inbox struct {
	q *queuepkg.Queue
}

func newInbox(hint int64) *inbox {
	return &inbox{q: queuepkg.New(hint)}
}

func (b *inbox) put(t task) error {
	if err := b.q.Put(t); err != nil {
		if errors.Is(err, queuepkg.ErrDisposed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// take blocks until at least one task is queued or the inbox is disposed.
func (b *inbox) take(n int64) ([]task, error) {
	items, err := b.q.Get(n)
	if err != nil {
		if errors.Is(err, queuepkg.ErrDisposed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	tasks := make([]task, 0, len(items))
	for _, it := range items {
		t, ok := it.(task)
		if !ok {
			return tasks, fmt.Errorf("loop: invalid inbox element type %T", it)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (b *inbox) size() int64 {
	return b.q.Len()
}

func (b *inbox) dispose() {
	b.q.Dispose()
}

func (b *inbox) disposed() bool {
	return b.q.Disposed()
}
