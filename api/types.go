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
	"fmt"
	"strings"
)

// SocketType selects the messaging pattern of a socket. Values follow libzmq.
type SocketType int

const (
	PAIR SocketType = iota
	PUB
	SUB
	REQ
	REP
	DEALER
	ROUTER
	PULL
	PUSH
	XPUB
	XSUB
	STREAM
)

var socketTypeNames = [...]string{
	PAIR:   "pair",
	PUB:    "pub",
	SUB:    "sub",
	REQ:    "req",
	REP:    "rep",
	DEALER: "dealer",
	ROUTER: "router",
	PULL:   "pull",
	PUSH:   "push",
	XPUB:   "xpub",
	XSUB:   "xsub",
	STREAM: "stream",
}

func (t SocketType) String() string {
	if t.Valid() {
		return socketTypeNames[t]
	}
	return fmt.Sprintf("SocketType(%d)", int(t))
}

// Valid reports whether t names a known socket type.
func (t SocketType) Valid() bool {
	return t >= PAIR && t <= STREAM
}

// ParseSocketType accepts "push", "PUSH" and "ZMQ_PUSH". The aliases
// "xrep" and "xreq" map to ROUTER and DEALER.
func ParseSocketType(name string) (SocketType, error) {
	n := strings.ToLower(strings.TrimPrefix(strings.ToUpper(name), "ZMQ_"))
	switch n {
	case "xrep":
		return ROUTER, nil
	case "xreq":
		return DEALER, nil
	}
	for i, s := range socketTypeNames {
		if s == n {
			return SocketType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown socket type %q", name)
}

// Flag modifies a single send or receive.
type Flag int

const (
	DONTWAIT Flag = 1
	SNDMORE  Flag = 2
)

// ParseFlag accepts "ZMQ_SNDMORE", "sndmore", "ZMQ_DONTWAIT" and "dontwait"
// ("noblock" is an alias of dontwait).
func ParseFlag(name string) (Flag, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.ToUpper(name), "ZMQ_")) {
	case "sndmore":
		return SNDMORE, nil
	case "dontwait", "noblock":
		return DONTWAIT, nil
	}
	return 0, fmt.Errorf("unknown send flag %q", name)
}

// Events is the readiness mask reported by a socket.
type Events int

const (
	POLLIN  Events = 1
	POLLOUT Events = 2
	POLLERR Events = 4
)

// Readable reports POLLIN.
func (e Events) Readable() bool { return e&POLLIN != 0 }

// Writable reports POLLOUT.
func (e Events) Writable() bool { return e&POLLOUT != 0 }
