package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwsl/ftx/ft8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	dm := NewDecodeMetrics()
	messages := []ft8.DecodedMessage{
		{Type: ft8.MessageTypeStandard, SNR: -10},
		{Type: ft8.MessageTypeStandard, SNR: 3},
		{Type: ft8.MessageTypeFreeText, SNR: 0},
	}

	dm.RecordRun(ft8.ProtocolFT8, 42, messages, 250*time.Millisecond, nil)
	dm.RecordRun(ft8.ProtocolFT8, 10, nil, time.Second, errors.New("cancelled"))

	assert.Equal(t, 2.0, testutil.ToFloat64(dm.decodesTotal.WithLabelValues("FT8", "STANDARD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(dm.decodesTotal.WithLabelValues("FT8", "FREE_TEXT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(dm.runsTotal.WithLabelValues("FT8", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(dm.runsTotal.WithLabelValues("FT8", "error")))
	assert.Greater(t, testutil.ToFloat64(dm.lastDecodeTime.WithLabelValues("FT8")), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(dm.snr))
	assert.Equal(t, 1, testutil.CollectAndCount(dm.candidates))

	// Nil metrics are a no-op
	var none *DecodeMetrics
	none.RecordRun(ft8.ProtocolFT4, 1, messages, time.Second, nil)
}

func TestPushMetrics(t *testing.T) {
	var (
		method, path string
		user, pass   string
		hasAuth      bool
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		user, pass, hasAuth = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dm := NewDecodeMetrics()
	dm.RecordRun(ft8.ProtocolFT8, 5, []ft8.DecodedMessage{{Type: ft8.MessageTypeStandard}}, time.Second, nil)

	err := dm.Push(PushgatewayConfig{URL: server.URL, Instance: "rx1", Token: "secret"}, StationConfig{Callsign: "W1ABC"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Contains(t, path, "/metrics/job/ftx")
	assert.Contains(t, path, "/instance/rx1")
	assert.Contains(t, path, "/callsign/W1ABC")
	assert.True(t, hasAuth)
	assert.Equal(t, "rx1", user)
	assert.Equal(t, "secret", pass)
}

func TestPushMetricsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dm := NewDecodeMetrics()
	dm.RecordRun(ft8.ProtocolFT8, 1, nil, time.Second, nil)
	assert.ErrorContains(t, dm.Push(PushgatewayConfig{URL: server.URL}, StationConfig{}), "failed to push")

	var none *DecodeMetrics
	assert.Error(t, none.Push(PushgatewayConfig{URL: server.URL}, StationConfig{}))
}
