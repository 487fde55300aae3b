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
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"gopkg.in/yaml.v3"

	"github.com/srediag/plugin-zmq/internal/logging"
)

type report struct {
	Mode        string        `yaml:"mode"`
	Size        int           `yaml:"message_size"`
	Count       int           `yaml:"count"`
	Elapsed     time.Duration `yaml:"elapsed"`
	MsgPerSec   float64       `yaml:"msg_per_sec,omitempty"`
	Mbits       float64       `yaml:"mbit_per_sec,omitempty"`
	MeanLatency time.Duration `yaml:"mean_latency,omitempty"`
	CPU         time.Duration `yaml:"cpu"`
	RSS         uint64        `yaml:"rss_bytes"`
}

func throughput(mode string, size, count int, elapsed time.Duration) report {
	r := report{Mode: mode, Size: size, Count: count, Elapsed: elapsed}
	if secs := elapsed.Seconds(); secs > 0 {
		r.MsgPerSec = float64(count) / secs
		r.Mbits = r.MsgPerSec * float64(size) * 8 / 1e6
	}
	return r
}

// latency reports the one-way latency: half the mean roundtrip.
func latency(mode string, size, count int, elapsed time.Duration) report {
	r := report{Mode: mode, Size: size, Count: count, Elapsed: elapsed}
	if count > 0 {
		r.MeanLatency = elapsed / time.Duration(2*count)
	}
	return r
}

// withProcess adds the CPU time and resident size of this process.
func (r report) withProcess() report {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logging.Internal.Warnf("zmqperf: process stats: %v", err)
		return r
	}
	if t, err := p.Times(); err == nil {
		r.CPU = time.Duration((t.User + t.System) * float64(time.Second))
	}
	if m, err := p.MemoryInfo(); err == nil {
		r.RSS = m.RSS
	}
	return r
}

func (r report) write(w io.Writer, format string) error {
	if format == "yaml" {
		return yaml.NewEncoder(w).Encode(r)
	}
	fmt.Fprintf(w, "message size: %d [B]\n", r.Size)
	if r.MeanLatency > 0 {
		fmt.Fprintf(w, "roundtrip count: %d\n", r.Count)
		fmt.Fprintf(w, "mean latency: %.3f [us]\n", float64(r.MeanLatency)/float64(time.Microsecond))
	} else {
		fmt.Fprintf(w, "message count: %d\n", r.Count)
		fmt.Fprintf(w, "mean throughput: %.0f [msg/s]\n", r.MsgPerSec)
		fmt.Fprintf(w, "mean throughput: %.3f [Mbit/s]\n", r.Mbits)
	}
	fmt.Fprintf(w, "overall time: %s\n", r.Elapsed)
	fmt.Fprintf(w, "cpu: %s rss: %d [B]\n", r.CPU, r.RSS)
	return nil
}
