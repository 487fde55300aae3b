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
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/plugin-zmq/api"
	"github.com/srediag/plugin-zmq/pkg/loop"
)

const (
	defaultIOThreads        = 1
	defaultMonitorInterval  = 10 * time.Millisecond
	defaultMonitorMaxEvents = 1
	maxIOThreads            = 1024
)

// Config is used to tune a Context.
type Config struct {
	// IOThreads is the number of library I/O threads.
	IOThreads int

	// Transport is the wrapped library. Nil means libzmq.
	Transport api.Transport

	// Loop runs every callback of the context's sockets. Nil makes the
	// context create one from LoopConfig and close it on Close.
	Loop       *loop.Loop
	LoopConfig *loop.Config

	// ZeroCopy makes Send hand buffers to the library without copying.
	ZeroCopy bool

	// MonitorInterval and MonitorMaxEvents are the Monitor defaults.
	// MonitorMaxEvents 0 drains every pending event per tick.
	MonitorInterval  time.Duration
	MonitorMaxEvents int

	// Registerer receives the context collectors. Nil skips registration.
	Registerer prometheus.Registerer

	// Tracer and Meter default to no-op providers.
	Tracer trace.Tracer
	Meter  metric.Meter
}

// DefaultConfig is used to return a default configuration
func DefaultConfig() *Config {
	return &Config{
		IOThreads:        defaultIOThreads,
		MonitorInterval:  defaultMonitorInterval,
		MonitorMaxEvents: defaultMonitorMaxEvents,
	}
}

// VerifyConfig is used to verify the sanity of configuration
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("zmq: nil config")
	}
	if config.IOThreads <= 0 || config.IOThreads > maxIOThreads {
		return fmt.Errorf("zmq: IOThreads must be in (0, %d], got %d", maxIOThreads, config.IOThreads)
	}
	if config.MonitorInterval <= 0 {
		return fmt.Errorf("zmq: MonitorInterval must be positive, got %v", config.MonitorInterval)
	}
	if config.MonitorMaxEvents < 0 {
		return fmt.Errorf("zmq: MonitorMaxEvents must not be negative, got %d", config.MonitorMaxEvents)
	}
	if config.Loop == nil && config.LoopConfig != nil {
		if err := loop.VerifyConfig(config.LoopConfig); err != nil {
			return err
		}
	}
	return nil
}
