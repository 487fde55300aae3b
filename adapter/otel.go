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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// InstrumentationName names the tracer and meter handed to a context.
const InstrumentationName = "github.com/srediag/plugin-zmq"

// Telemetry points cfg at the given providers. Nil providers mean the
// global ones registered with otel.
func Telemetry(cfg *zmq.Config, tp trace.TracerProvider, mp metric.MeterProvider) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	cfg.Tracer = tp.Tracer(InstrumentationName)
	cfg.Meter = mp.Meter(InstrumentationName)
}
