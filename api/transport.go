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

// Package api holds the contracts between the socket binding and the
// messaging library it wraps.
package api

// Transport is the entry point of a wrapped messaging library.
type Transport interface {
	// Version reports the library version the capabilities are derived from.
	Version() (major, minor, patch int)
	NewContext() (NativeContext, error)
}

// NativeContext is a library context. Options use libzmq context codes.
type NativeContext interface {
	NewSocket(t SocketType) (NativeSocket, error)
	GetOption(code int) (int, error)
	SetOption(code int, value int) error
	Term() error
}

// NativeSocket is a library socket. None of its methods block when the
// DONTWAIT flag is given; Bind and Unbind may block while resolving.
//
// Errors carry the library errno, see Errno and the Is helpers.
type NativeSocket interface {
	Bind(endpoint string) error
	Unbind(endpoint string) error
	Connect(endpoint string) error
	Disconnect(endpoint string) error

	// Fd is signalled whenever any socket event may be pending.
	Fd() (int, error)
	Events() (Events, error)
	RcvMore() (bool, error)

	Recv(flags Flag) (Frame, error)
	// Send queues one frame. With a nil release the socket is done with data
	// when Send returns. Otherwise data must stay untouched until release is
	// called, which may happen on any goroutine. release is never called
	// when Send fails.
	Send(data []byte, flags Flag, release func()) error

	GetInt(code int) (int, error)
	SetInt(code int, value int) error
	GetInt64(code int) (int64, error)
	SetInt64(code int, value int64) error
	GetUint64(code int) (uint64, error)
	SetUint64(code int, value uint64) error
	GetBytes(code int) ([]byte, error)
	SetBytes(code int, value []byte) error

	// Monitor publishes socket events on a PAIR endpoint. An empty endpoint
	// stops monitoring.
	Monitor(endpoint string, events int) error
	Close() error
}

// Frame is one received message part. Close releases the library message
// and must be called exactly once. Bytes is Go memory and stays valid after
// Close.
type Frame interface {
	Bytes() []byte
	Close() error
}
