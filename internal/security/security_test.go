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

package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCurveKey(t *testing.T) {
	assert.NoError(t, CheckCurveKey("k", make([]byte, KeySize)))
	assert.NoError(t, CheckCurveKey("k", []byte(Z85[:KeyTextSize])))

	err := CheckCurveKey("k", []byte(strings.Repeat("a", 39)+"~"))
	assert.ErrorContains(t, err, "invalid Z85 character")
	assert.ErrorContains(t, CheckCurveKey("k", nil), "got 0 bytes")
	assert.Len(t, Z85, 85)
}
