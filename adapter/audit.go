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
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/pkg/messenger"
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// EndpointStats counts the connection events seen for one endpoint.
type EndpointStats struct {
	Endpoint    string `yaml:"endpoint"`
	Listening   int    `yaml:"listening,omitempty"`
	Connected   int    `yaml:"connected,omitempty"`
	Accepted    int    `yaml:"accepted,omitempty"`
	Retried     int    `yaml:"retried,omitempty"`
	Disconnects int    `yaml:"disconnects,omitempty"`
	Closed      int    `yaml:"closed,omitempty"`
	Failures    int    `yaml:"failures,omitempty"`
	Last        string `yaml:"last"`
}

// ConnectionAudit keeps per endpoint connection counters fed by socket
// monitors. Record runs on the loop; Snapshot may be called from any
// goroutine.
type ConnectionAudit struct {
	stats cmap.ConcurrentMap[string, EndpointStats]
}

func NewConnectionAudit() *ConnectionAudit {
	return &ConnectionAudit{stats: cmap.New[EndpointStats]()}
}

// Record accounts for one monitor event.
func (a *ConnectionAudit) Record(e zmq.Event) {
	a.stats.Upsert(e.Endpoint, EndpointStats{}, func(exists bool, st, _ EndpointStats) EndpointStats {
		st.Endpoint = e.Endpoint
		st.Last = e.Name()
		switch e.ID {
		case zmq.EventListening:
			st.Listening++
		case zmq.EventConnected:
			st.Connected++
		case zmq.EventAccepted:
			st.Accepted++
		case zmq.EventConnectRetried:
			st.Retried++
		case zmq.EventDisconnected:
			st.Disconnects++
		case zmq.EventClosed:
			st.Closed++
		case zmq.EventBindFailed, zmq.EventAcceptFailed, zmq.EventCloseFailed:
			st.Failures++
		}
		return st
	})
	logging.Internal.Debugf("audit: %s %s value=%d", e.Endpoint, e.Name(), e.Value)
}

// MonitorHandler adapts Record to messenger.Handlers.Monitor.
func (a *ConnectionAudit) MonitorHandler() func(*messenger.Socket, zmq.Event) {
	return func(_ *messenger.Socket, e zmq.Event) { a.Record(e) }
}

// Snapshot returns the counters sorted by endpoint.
func (a *ConnectionAudit) Snapshot() []EndpointStats {
	out := make([]EndpointStats, 0, a.stats.Count())
	for _, st := range a.stats.Items() {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// YAML renders Snapshot.
func (a *ConnectionAudit) YAML() ([]byte, error) {
	return yaml.Marshal(a.Snapshot())
}
