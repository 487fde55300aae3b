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
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/srediag/plugin-zmq/pkg/zmq"

type telemetry struct {
	tracer       trace.Tracer
	bindDuration metric.Float64Histogram
}

func newTelemetry(cfg *Config) (*telemetry, error) {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	meter := cfg.Meter
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}
	h, err := meter.Float64Histogram("zmq.bind.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time from a bind or unbind request to its completion."))
	if err != nil {
		return nil, err
	}
	return &telemetry{tracer: tracer, bindDuration: h}, nil
}

// span tracks one bind or unbind from request to completion.
type span struct {
	t     *telemetry
	op    string
	attrs []attribute.KeyValue
	span  trace.Span
	start time.Time
}

func (t *telemetry) start(op, endpoint string) *span {
	attrs := []attribute.KeyValue{
		attribute.String("zmq.op", op),
		attribute.String("zmq.endpoint", endpoint),
	}
	_, sp := t.tracer.Start(context.Background(), "zmq."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
	return &span{t: t, op: op, attrs: attrs, span: sp, start: time.Now()}
}

func (s *span) end(err error) {
	result := "ok"
	if err != nil {
		result = "error"
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
	s.t.bindDuration.Record(context.Background(), time.Since(s.start).Seconds(),
		metric.WithAttributes(append(s.attrs, attribute.String("zmq.result", result))...))
}
