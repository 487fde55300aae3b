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
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigFileUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: ipc:///tmp/perf\nsize: 64\ncount: 10\ntimeout: 3s\nmonitor: true\n"), 0o600))

	cfg := defaultConfig()
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	cfg.addFlags(fs)
	require.NoError(t, fs.Parse([]string{"--count", "99", "-o", "yaml"}))
	require.NoError(t, cfg.load(fs, path))

	assert.Equal(t, "ipc:///tmp/perf", cfg.Endpoint)
	assert.Equal(t, 64, cfg.Size)
	assert.Equal(t, 99, cfg.Count)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.True(t, cfg.Monitor)
	assert.Equal(t, "yaml", cfg.Output)
	assert.NoError(t, cfg.verify())
}

func TestConfigVerify(t *testing.T) {
	for _, tune := range []func(*config){
		func(c *config) { c.Endpoint = "nope" },
		func(c *config) { c.Size = -1 },
		func(c *config) { c.Count = 0 },
		func(c *config) { c.Timeout = 0 },
		func(c *config) { c.Output = "json" },
	} {
		cfg := defaultConfig()
		tune(&cfg)
		assert.Error(t, cfg.verify())
	}
}

func TestReports(t *testing.T) {
	r := throughput("local-thr", 100, 1000, time.Second)
	assert.InDelta(t, 1000, r.MsgPerSec, 0.001)
	assert.InDelta(t, 0.8, r.Mbits, 0.001)

	l := latency("remote-lat", 10, 100, 20*time.Millisecond)
	assert.Equal(t, 100*time.Microsecond, l.MeanLatency)

	var buf bytes.Buffer
	require.NoError(t, r.write(&buf, "text"))
	assert.Contains(t, buf.String(), "mean throughput: 1000 [msg/s]")

	buf.Reset()
	require.NoError(t, l.withProcess().write(&buf, "yaml"))
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "remote-lat", back["mode"])
	assert.NotZero(t, back["rss_bytes"])
}

func TestRunRejectsBadInvocations(t *testing.T) {
	ctx := context.Background()
	var out, errOut bytes.Buffer
	assert.Error(t, run(ctx, nil, &out, &errOut))
	assert.ErrorContains(t, run(ctx, []string{"bogus"}, &out, &errOut), "unknown command")
	assert.ErrorContains(t, run(ctx, []string{"local-thr", "extra"}, &out, &errOut), "unexpected argument")
	assert.NoError(t, run(ctx, []string{"local-lat", "--help"}, &out, &errOut))
	assert.Contains(t, out.String(), "--endpoint")
}

func freePort(t *testing.T) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// pairRun runs a local and a remote command against each other.
func pairRun(t *testing.T, local, remote string, extra ...string) (string, string) {
	endpoint := fmt.Sprintf("tcp://*:%d", freePort(t))
	args := append([]string{"--endpoint", endpoint, "--size", "32", "--count", "200", "--timeout", "10s"}, extra...)
	ctx := context.Background()

	var (
		wg                  sync.WaitGroup
		localOut, remoteOut bytes.Buffer
		localErr, remoteErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		localErr = run(ctx, append([]string{local}, args...), &localOut, &bytes.Buffer{})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		remoteErr = run(ctx, append([]string{remote}, args...), &remoteOut, &bytes.Buffer{})
	}()
	wg.Wait()
	require.NoError(t, localErr)
	require.NoError(t, remoteErr)
	return localOut.String(), remoteOut.String()
}

func TestThroughputPair(t *testing.T) {
	local, remote := pairRun(t, "local-thr", "remote-thr", "--monitor")
	assert.Contains(t, local, "message count: 200")
	assert.Contains(t, local, "connections:")
	assert.Contains(t, remote, "mean throughput")
}

func TestLatencyPair(t *testing.T) {
	local, remote := pairRun(t, "local-lat", "remote-lat", "--zero-copy")
	assert.Contains(t, local, "roundtrip count: 200")
	assert.Contains(t, remote, "mean latency")
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := defaultConfig()
	cfg.MetricsAddr = "127.0.0.1:0"
	r, err := newRunner(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.close(false)) }()

	base := "http://" + r.addr.String()
	resp, err := httpGet(base + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, resp, "zmq_open_sockets")

	resp, err = httpGet(base + "/live")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", resp)
}

func httpGet(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("%s: %s", url, resp.Status)
	}
	return string(body), nil
}
