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

package loop

import (
	"fmt"
)

const (
	defaultWorkerPoolSize = 4
	defaultInboxHint      = 1024
	defaultBatchSize      = 64
	maxWorkerPoolSize     = 1024
)

// Config is used to tune a Loop.
type Config struct {
	// WorkerPoolSize bounds the goroutines that run QueueWork items.
	WorkerPoolSize int

	// InboxHint is the initial capacity of the task inbox. The inbox grows past it.
	InboxHint int64

	// BatchSize is the maximum number of tasks taken from the inbox per iteration.
	BatchSize int
}

// DefaultConfig is used to return a default configuration
func DefaultConfig() *Config {
	return &Config{
		WorkerPoolSize: defaultWorkerPoolSize,
		InboxHint:      defaultInboxHint,
		BatchSize:      defaultBatchSize,
	}
}

// VerifyConfig is used to verify the sanity of configuration
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("loop: nil config")
	}
	if config.WorkerPoolSize <= 0 || config.WorkerPoolSize > maxWorkerPoolSize {
		return fmt.Errorf("loop: WorkerPoolSize must be in (0, %d], got %d", maxWorkerPoolSize, config.WorkerPoolSize)
	}
	if config.InboxHint <= 0 {
		return fmt.Errorf("loop: InboxHint must be positive, got %d", config.InboxHint)
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("loop: BatchSize must be positive, got %d", config.BatchSize)
	}
	return nil
}
