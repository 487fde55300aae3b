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
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned for any operation other than Close while a bind or unbind runs.
	ErrBusy = errors.New("zmq: socket is busy")
	// ErrClosed is returned for any operation on a closed socket.
	ErrClosed = errors.New("zmq: socket is closed")
	// ErrContextClosed is returned when the owning context is closed.
	ErrContextClosed = errors.New("zmq: context is closed")
	// ErrNotSupported is returned when the library version lacks a feature.
	ErrNotSupported = errors.New("zmq: not supported by this library version")
	// ErrMalformedEvent is reported once when a monitor frame cannot be decoded.
	ErrMalformedEvent = errors.New("zmq: malformed monitor event")
	// ErrSocketsOpen is returned by Context.Close while sockets of the context are open.
	ErrSocketsOpen = errors.New("zmq: context has open sockets")
	// ErrIncompleteMessage is returned when a multipart read stops before its last part.
	ErrIncompleteMessage = errors.New("zmq: incomplete multipart message")
)

// ValidationError is an argument rejected before any native call.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return "zmq: " + e.Op + ": " + e.Reason
}

func invalidf(op, format string, a ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, a...)}
}

// TransportError is a failed native call. Errno is the library error number
// and Err carries its description.
type TransportError struct {
	Op       string
	Endpoint string
	Errno    int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("zmq: %s %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("zmq: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PartialSendError reports a multipart send that failed after Sent of Total
// parts were queued. The library may deliver the queued parts.
type PartialSendError struct {
	Sent  int
	Total int
	Err   error
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("zmq: sent %d of %d parts: %v", e.Sent, e.Total, e.Err)
}

func (e *PartialSendError) Unwrap() error {
	return e.Err
}

func stateError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
