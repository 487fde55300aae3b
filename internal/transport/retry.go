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

package transport

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/plugin-zmq/api"
)

// Retry calls op again for as long as it fails with EINTR. Any other error,
// including EAGAIN, is returned as is.
func Retry(op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil || api.IsInterrupted(err) {
			return err
		}
		return backoff.Permanent(err)
	}, &backoff.ZeroBackOff{})
}

// RetryValue is Retry for calls that also return a value.
func RetryValue[T any](op func() (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		v, err := op()
		if err == nil || api.IsInterrupted(err) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}, &backoff.ZeroBackOff{})
}
