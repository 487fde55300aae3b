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

package api

import (
	"errors"
	"syscall"
)

// Errno is a library error number with its description.
type Errno struct {
	Code int
	Msg  string
}

func (e *Errno) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return syscall.Errno(e.Code).Error()
}

// Is matches another *Errno or a syscall.Errno with the same code.
func (e *Errno) Is(target error) bool {
	switch t := target.(type) {
	case syscall.Errno:
		return int(t) == e.Code
	case *Errno:
		return t.Code == e.Code
	}
	return false
}

// ErrnoOf returns the library errno carried by err, or 0.
func ErrnoOf(err error) int {
	var e *Errno
	if errors.As(err, &e) {
		return e.Code
	}
	var se syscall.Errno
	if errors.As(err, &se) {
		return int(se)
	}
	return 0
}

// IsInterrupted reports EINTR, which callers retry.
func IsInterrupted(err error) bool {
	return err != nil && errors.Is(err, syscall.EINTR)
}

// IsWouldBlock reports EAGAIN, the flow-control signal of non-blocking calls.
func IsWouldBlock(err error) bool {
	return err != nil && errors.Is(err, syscall.EAGAIN)
}
