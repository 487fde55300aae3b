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
	"os"
	"strconv"
	"sync"

	"github.com/srediag/plugin-zmq/internal/logging"
)

// EnvIOThreads sets the I/O thread count of DefaultContext.
const EnvIOThreads = "ZMQ_IO_THREADS"

var defaultContext struct {
	once sync.Once
	ctx  *Context
	err  error
}

// DefaultContext returns the process wide context, created on first use over
// libzmq with its own loop and EnvIOThreads I/O threads. A creation failure
// is returned to every caller. The context is never closed for the caller;
// once someone closes it, later calls return the closed context.
func DefaultContext() (*Context, error) {
	defaultContext.once.Do(func() {
		defaultContext.ctx, defaultContext.err = NewContext(defaultContextConfig(os.Getenv(EnvIOThreads)))
	})
	return defaultContext.ctx, defaultContext.err
}

// defaultContextConfig falls back to one I/O thread when threads is not a
// usable count.
func defaultContextConfig(threads string) *Config {
	cfg := DefaultConfig()
	if threads == "" {
		return cfg
	}
	n, err := strconv.Atoi(threads)
	if err != nil || n < 1 || n > maxIOThreads {
		logging.Internal.Errorf("zmq: invalid %s %q, using %d I/O thread", EnvIOThreads, threads, defaultIOThreads)
		return cfg
	}
	cfg.IOThreads = n
	return cfg
}
