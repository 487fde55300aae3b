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

package adapter

import (
	"fmt"
	"net"
	"strings"
)

// Endpoint is a parsed "transport://address" string.
type Endpoint struct {
	Transport string
	Address   string
}

var transports = map[string]bool{
	"tcp":    true,
	"ipc":    true,
	"inproc": true,
	"pgm":    true,
	"epgm":   true,
	"tipc":   true,
	"vmci":   true,
}

// ParseEndpoint checks that s names a known transport and, for tcp, has a
// port.
func ParseEndpoint(s string) (Endpoint, error) {
	tr, addr, ok := strings.Cut(s, "://")
	if !ok || addr == "" {
		return Endpoint{}, fmt.Errorf("endpoint %q: want transport://address", s)
	}
	if !transports[tr] {
		return Endpoint{}, fmt.Errorf("endpoint %q: unknown transport %q", s, tr)
	}
	if tr == "tcp" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return Endpoint{}, fmt.Errorf("endpoint %q: %w", s, err)
		}
	}
	return Endpoint{Transport: tr, Address: addr}, nil
}

func (e Endpoint) String() string {
	return e.Transport + "://" + e.Address
}

// Connectable turns a bind endpoint into one a peer can connect to: a
// wildcard tcp host becomes the loopback address.
func (e Endpoint) Connectable() Endpoint {
	if e.Transport != "tcp" {
		return e
	}
	host, port, err := net.SplitHostPort(e.Address)
	if err != nil {
		return e
	}
	if host == "*" || host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	} else if host == "::" {
		host = "::1"
	}
	return Endpoint{Transport: "tcp", Address: net.JoinHostPort(host, port)}
}
