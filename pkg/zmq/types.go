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

import "github.com/srediag/plugin-zmq/api"

// SocketType selects the messaging pattern of a socket.
type SocketType = api.SocketType

const (
	PAIR   = api.PAIR
	PUB    = api.PUB
	SUB    = api.SUB
	REQ    = api.REQ
	REP    = api.REP
	DEALER = api.DEALER
	ROUTER = api.ROUTER
	PULL   = api.PULL
	PUSH   = api.PUSH
	XPUB   = api.XPUB
	XSUB   = api.XSUB
	STREAM = api.STREAM
)

// Flag modifies a single send or receive.
type Flag = api.Flag

const (
	DONTWAIT = api.DONTWAIT
	SNDMORE  = api.SNDMORE
)

// Events is a readiness mask.
type Events = api.Events

const (
	POLLIN  = api.POLLIN
	POLLOUT = api.POLLOUT
	POLLERR = api.POLLERR
)

// State is the lifecycle state of a Socket.
type State int

const (
	StateReady State = iota
	StateBusy
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
