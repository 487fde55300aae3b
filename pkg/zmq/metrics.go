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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "zmq"

// metrics holds the collectors of one context. They always exist; they are
// only exported when a Registerer is configured.
type metrics struct {
	reg        prometheus.Registerer
	collectors []prometheus.Collector

	sentMessages  prometheus.Counter
	sentBytes     prometheus.Counter
	recvMessages  prometheus.Counter
	recvBytes     prometheus.Counter
	binds         *prometheus.CounterVec
	monitorEvents *prometheus.CounterVec
}

func newMetrics(c *Context, reg prometheus.Registerer) (*metrics, error) {
	labels := prometheus.Labels{"context": strconv.FormatUint(c.id, 10)}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	m := &metrics{
		reg:          reg,
		sentMessages: counter("sent_messages_total", "Frames accepted by the library."),
		sentBytes:    counter("sent_bytes_total", "Payload bytes accepted by the library."),
		recvMessages: counter("received_messages_total", "Frames received."),
		recvBytes:    counter("received_bytes_total", "Payload bytes received."),
		binds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "binds_total",
			Help:        "Bind and unbind calls by operation and result.",
			ConstLabels: labels,
		}, []string{"op", "result"}),
		monitorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "monitor_events_total",
			Help:        "Decoded monitor events by name.",
			ConstLabels: labels,
		}, []string{"event"}),
	}
	m.collectors = []prometheus.Collector{
		m.sentMessages, m.sentBytes, m.recvMessages, m.recvBytes, m.binds, m.monitorEvents,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "open_sockets",
			Help:        "Sockets of the context not yet closed.",
			ConstLabels: labels,
		}, func() float64 { return float64(c.sockets.Count()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "loop_pending_tasks",
			Help:        "Tasks queued on the event loop.",
			ConstLabels: labels,
		}, func() float64 { return float64(c.loop.Pending()) }),
	}
	if reg == nil {
		return m, nil
	}
	for i, col := range m.collectors {
		if err := reg.Register(col); err != nil {
			for _, done := range m.collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) sent(n int) {
	m.sentMessages.Inc()
	m.sentBytes.Add(float64(n))
}

func (m *metrics) received(n int) {
	m.recvMessages.Inc()
	m.recvBytes.Add(float64(n))
}

func (m *metrics) bind(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.binds.WithLabelValues(op, result).Inc()
}

func (m *metrics) monitorEvent(name string) {
	m.monitorEvents.WithLabelValues(name).Inc()
}

func (m *metrics) unregister() {
	if m.reg == nil {
		return
	}
	for _, col := range m.collectors {
		m.reg.Unregister(col)
	}
}
