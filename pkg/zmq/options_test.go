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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-zmq/api"
)

func TestOptionByName(t *testing.T) {
	for name, want := range map[string]Option{
		"ZMQ_LINGER":      OptLinger,
		"linger":          OptLinger,
		"zmq_sndhwm":      OptSndhwm,
		"routing_id":      OptIdentity,
		"ZMQ_ROUTING_ID":  OptIdentity,
		"_fd":             OptFd,
		"_ioevents":       OptEvents,
		"_receivemore":    OptRcvmore,
		"_subscribe":      OptSubscribe,
		"CURVE_SERVERKEY": OptCurveServerkey,
	} {
		got, err := OptionByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := OptionByName("ZMQ_")
	assert.Error(t, err)
}

func TestOptionTableMatchesLibraryCodes(t *testing.T) {
	assert.Len(t, optionTable, 44)
	assert.Equal(t, "ZMQ_TCP_KEEPALIVE_IDLE", OptTCPKeepaliveIdle.String())
	assert.Equal(t, "Option(3)", Option(3).String())
	assert.Equal(t, KindUint64, OptAffinity.Kind())
	assert.Equal(t, KindUint32, OptEvents.Kind())
	assert.Equal(t, KindInt64, OptMaxmsgsize.Kind())
	assert.Equal(t, KindBinary, OptZapDomain.Kind())
	assert.Equal(t, "binary", KindBinary.String())
	for o, spec := range optionTable {
		assert.NotZero(t, spec.access, o.String())
		back, err := OptionByName(spec.name)
		require.NoError(t, err)
		assert.Equal(t, o, back)
	}
}

func TestLookupOption(t *testing.T) {
	caps := api.DetectCapabilities(4, 3, 4)
	_, err := lookupOption("get", OptRcvmore, readable, caps)
	assert.NoError(t, err)
	_, err = lookupOption("set", OptRcvmore, writable, caps)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "read-only")
	_, err = lookupOption("get", OptConflate, readable, caps)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "write-only")

	_, err = lookupOption("set", OptConflate, writable, api.DetectCapabilities(3, 2, 5))
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestCoerce(t *testing.T) {
	ok := []struct {
		kind Kind
		in   interface{}
		out  interface{}
	}{
		{KindInt, 5, 5},
		{KindInt, int32(-2), -2},
		{KindInt, int64(9), 9},
		{KindInt, true, 1},
		{KindInt, false, 0},
		{KindUint32, uint32(7), 7},
		{KindUint32, 7, 7},
		{KindInt64, 7, int64(7)},
		{KindInt64, int64(-1), int64(-1)},
		{KindUint64, 7, uint64(7)},
		{KindUint64, uint(7), uint64(7)},
		{KindUint64, uint64(1 << 40), uint64(1 << 40)},
		{KindBinary, "abc", []byte("abc")},
		{KindBinary, []byte{1}, []byte{1}},
	}
	for _, tc := range ok {
		got, err := coerce("set", OptLinger, tc.kind, tc.in)
		require.NoError(t, err, "%s %T", tc.kind, tc.in)
		assert.Equal(t, tc.out, got)
	}

	bad := []struct {
		kind Kind
		in   interface{}
	}{
		{KindInt, "1"},
		{KindInt, 1.5},
		{KindUint32, -1},
		{KindInt64, uint64(1)},
		{KindUint64, -1},
		{KindBinary, 5},
		{KindBinary, nil},
	}
	for _, tc := range bad {
		_, err := coerce("set", OptLinger, tc.kind, tc.in)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "%s %T", tc.kind, tc.in)
	}
}
