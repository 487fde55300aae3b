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

// Package security validates CURVE key material.
package security

import (
	"fmt"
	"strings"
)

// Z85 is the alphabet of ZeroMQ's Base85 encoding.
const Z85 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

const (
	// KeySize is the size of a raw CURVE key.
	KeySize = 32
	// KeyTextSize is the size of a Z85 encoded CURVE key.
	KeyTextSize = 40
)

// CheckCurveKey accepts a raw 32 byte key or its 40 character Z85 text.
func CheckCurveKey(name string, key []byte) error {
	switch len(key) {
	case KeySize:
		return nil
	case KeyTextSize:
		for i, c := range key {
			if strings.IndexByte(Z85, c) < 0 {
				return fmt.Errorf("%s: invalid Z85 character %q at %d", name, c, i)
			}
		}
		return nil
	}
	return fmt.Errorf("%s: want %d raw bytes or %d Z85 characters, got %d bytes", name, KeySize, KeyTextSize, len(key))
}
