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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/plugin-zmq/adapter"
	"github.com/srediag/plugin-zmq/internal/logging"
	"github.com/srediag/plugin-zmq/pkg/messenger"
	"github.com/srediag/plugin-zmq/pkg/zmq"
)

// runner owns the context, the optional HTTP endpoints and the sockets of
// one benchmark.
type runner struct {
	cfg     config
	ctx     *zmq.Context
	reg     *prometheus.Registry
	audit   *adapter.ConnectionAudit
	srv     *http.Server
	addr    net.Addr
	sockets []*messenger.Socket
	out     io.Writer
	err     error
}

func newRunner(cfg config, out io.Writer) (*runner, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	zc := zmq.DefaultConfig()
	zc.IOThreads = cfg.IOThreads
	zc.ZeroCopy = cfg.ZeroCopy
	zc.Registerer = reg
	adapter.Telemetry(zc, nil, nil)
	ctx, err := zmq.NewContext(zc)
	if err != nil {
		return nil, err
	}
	r := &runner{cfg: cfg, ctx: ctx, reg: reg, out: out}
	if cfg.Monitor {
		r.audit = adapter.NewConnectionAudit()
	}
	if cfg.MetricsAddr != "" {
		if err := r.serve(); err != nil {
			_ = ctx.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *runner) serve() error {
	health := adapter.NewHealthHandler(r.ctx, adapter.HealthConfig{
		Name:          "zmqperf",
		MaxGoroutines: r.cfg.MaxGoroutines,
		Registerer:    r.reg,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)

	ln, err := net.Listen("tcp", r.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	r.addr = ln.Addr()
	r.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := r.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Internal.Errorf("zmqperf: metrics server: %v", err)
		}
	}()
	logging.Internal.Infof("zmqperf: serving metrics on %s", r.addr)
	return nil
}

// socket creates a messenger socket, monitored when auditing is on.
func (r *runner) socket(t zmq.SocketType, h messenger.Handlers) (*messenger.Socket, error) {
	if h.Error == nil {
		h.Error = func(_ *messenger.Socket, err error) { r.abort(err) }
	}
	if r.audit != nil {
		h.Monitor = r.audit.MonitorHandler()
	}
	s, err := messenger.New(r.ctx, t, nil, h)
	if err != nil {
		return nil, err
	}
	r.sockets = append(r.sockets, s)
	if r.audit != nil {
		if err := s.Monitor(0, 0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// abort stops the loop with err, keeping the first one.
func (r *runner) abort(err error) {
	if r.err == nil {
		r.err = err
	}
	r.ctx.Loop().Stop()
}

func (r *runner) stop() {
	r.ctx.Loop().Stop()
}

// run drives the loop until stop, abort, the timeout or parent is done.
func (r *runner) run(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, r.cfg.Timeout)
	defer cancel()
	err := r.ctx.Loop().Run(ctx)
	if r.err != nil {
		return r.err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", r.cfg.Timeout)
	}
	return err
}

// close tears everything down. Closing the context waits for queued
// messages to be delivered unless the run failed.
func (r *runner) close(failed bool) error {
	var errs []error
	for _, s := range r.sockets {
		if failed {
			if err := s.SetOption("linger", 0); err != nil {
				logging.Internal.Debugf("zmqperf: linger: %v", err)
			}
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.audit != nil {
		if out, err := r.audit.YAML(); err == nil {
			fmt.Fprintf(r.out, "connections:\n%s", out)
		}
	}
	if err := r.ctx.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
