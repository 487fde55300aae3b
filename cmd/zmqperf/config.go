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
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/srediag/plugin-zmq/adapter"
)

// config holds the settings of one benchmark run. It is filled from
// defaults, then the --config file, then flags given on the command line.
type config struct {
	Endpoint      string        `yaml:"endpoint"`
	Size          int           `yaml:"size"`
	Count         int           `yaml:"count"`
	IOThreads     int           `yaml:"io_threads"`
	ZeroCopy      bool          `yaml:"zero_copy"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	Monitor       bool          `yaml:"monitor"`
	Timeout       time.Duration `yaml:"timeout"`
	Output        string        `yaml:"output"`
	MaxGoroutines int           `yaml:"max_goroutines"`
}

func defaultConfig() config {
	return config{
		Endpoint:  "tcp://127.0.0.1:5555",
		Size:      100,
		Count:     100000,
		IOThreads: 1,
		Timeout:   time.Minute,
		Output:    "text",
	}
}

func (c *config) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Endpoint, "endpoint", "e", c.Endpoint, "endpoint to bind (local-*) or connect (remote-*)")
	fs.IntVarP(&c.Size, "size", "s", c.Size, "message size in bytes")
	fs.IntVarP(&c.Count, "count", "n", c.Count, "message or roundtrip count")
	fs.IntVar(&c.IOThreads, "io-threads", c.IOThreads, "library I/O threads")
	fs.BoolVar(&c.ZeroCopy, "zero-copy", c.ZeroCopy, "send without copying")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve /metrics, /live and /ready on this address")
	fs.BoolVar(&c.Monitor, "monitor", c.Monitor, "audit connection events and print them when done")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "give up after this long")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "report format: text or yaml")
	fs.IntVar(&c.MaxGoroutines, "max-goroutines", c.MaxGoroutines, "fail readiness above this many goroutines, 0 disables")
}

// load reads path over c and then restores the flags set on the command line.
func (c *config) load(fs *pflag.FlagSet, path string) error {
	given := map[string]string{}
	fs.Visit(func(f *pflag.Flag) { given[f.Name] = f.Value.String() })

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	for name, v := range given {
		if err := fs.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *config) verify() error {
	if _, err := adapter.ParseEndpoint(c.Endpoint); err != nil {
		return err
	}
	if c.Size < 0 {
		return fmt.Errorf("size must not be negative")
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	switch c.Output {
	case "text", "yaml":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	return nil
}
