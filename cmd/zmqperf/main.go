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

// zmqperf measures throughput and latency between two processes.
//
//	zmqperf local-thr  --endpoint tcp://*:5555 --size 100 --count 100000
//	zmqperf remote-thr --endpoint tcp://*:5555 --size 100 --count 100000
//
// local-* binds and reports, remote-* connects and drives the traffic.
// remote-* turns a wildcard host into the loopback address.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/srediag/plugin-zmq/adapter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "zmqperf: %v\n", err)
		os.Exit(1)
	}
}

func commands() []string {
	names := make([]string, 0, len(benches))
	for n := range benches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "usage: zmqperf <%s> [flags]\n", strings.Join(commands(), "|"))
	if fs != nil {
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr, nil)
		return errors.New("missing command")
	}
	name := args[0]
	b, ok := benches[name]
	if !ok {
		usage(stderr, nil)
		return fmt.Errorf("unknown command %q", name)
	}

	cfg := defaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.addFlags(fs)
	configPath := fs.String("config", "", "YAML file with defaults for every flag")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(stdout, fs)
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if *configPath != "" {
		if err := cfg.load(fs, *configPath); err != nil {
			return err
		}
	}
	if err := cfg.verify(); err != nil {
		return err
	}
	if strings.HasPrefix(name, "remote-") {
		ep, _ := adapter.ParseEndpoint(cfg.Endpoint)
		cfg.Endpoint = ep.Connectable().String()
	}

	r, err := newRunner(cfg, stdout)
	if err != nil {
		return err
	}
	rep, err := b(ctx, r)
	if cerr := r.close(err != nil); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return rep.withProcess().write(stdout, cfg.Output)
}
