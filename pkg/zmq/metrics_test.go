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
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestMetricsCountersWithoutRegistry(t *testing.T) {
	c := &Context{id: 7}
	m, err := newMetrics(c, nil)
	require.NoError(t, err)

	m.sent(3)
	m.sent(4)
	m.received(10)
	m.bind("bind", nil)
	m.bind("bind", errors.New("boom"))
	m.bind("unbind", nil)
	m.monitorEvent("connected")

	assert.Equal(t, 2.0, counterValue(t, m.sentMessages))
	assert.Equal(t, 7.0, counterValue(t, m.sentBytes))
	assert.Equal(t, 1.0, counterValue(t, m.recvMessages))
	assert.Equal(t, 10.0, counterValue(t, m.recvBytes))
	assert.Equal(t, 1.0, counterValue(t, m.binds.WithLabelValues("bind", "ok")))
	assert.Equal(t, 1.0, counterValue(t, m.binds.WithLabelValues("bind", "error")))
	assert.Equal(t, 1.0, counterValue(t, m.binds.WithLabelValues("unbind", "ok")))
	assert.Equal(t, 1.0, counterValue(t, m.monitorEvents.WithLabelValues("connected")))

	w := &dto.Metric{}
	require.NoError(t, m.sentMessages.Write(w))
	require.Len(t, w.GetLabel(), 1)
	assert.Equal(t, "context", w.GetLabel()[0].GetName())
	assert.Equal(t, "7", w.GetLabel()[0].GetValue())

	m.unregister()
}

func TestMetricsRegisterConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := &Context{id: 1}
	first, err := newMetrics(c, reg)
	require.NoError(t, err)
	_, err = newMetrics(c, reg)
	require.Error(t, err)

	first.unregister()
	again, err := newMetrics(c, reg)
	require.NoError(t, err)
	again.unregister()
}
