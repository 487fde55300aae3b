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

// Package adapter connects a socket context to HTTP health probes, telemetry
// providers and connection auditing.
package adapter

import (
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/plugin-zmq/api"
)

// HealthConfig tunes NewHealthHandler.
type HealthConfig struct {
	// Name prefixes the check names, "zmq" by default.
	Name string
	// MaxGoroutines fails readiness above this count. Zero disables the check.
	MaxGoroutines int
	// Registerer, when set, also exports every check as a gauge.
	Registerer prometheus.Registerer
}

// NewHealthHandler serves /live and /ready for a component, usually a
// *zmq.Context: liveness follows Live, readiness follows Ready.
func NewHealthHandler(c api.Health, cfg HealthConfig) healthcheck.Handler {
	name := cfg.Name
	if name == "" {
		name = "zmq"
	}
	var h healthcheck.Handler
	if cfg.Registerer != nil {
		h = healthcheck.NewMetricsHandler(cfg.Registerer, name)
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck(name+"-context", c.Live)
	h.AddReadinessCheck(name+"-loop", c.Ready)
	if cfg.MaxGoroutines > 0 {
		h.AddReadinessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(cfg.MaxGoroutines))
	}
	return h
}
