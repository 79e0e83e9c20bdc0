package main

import (
	"fmt"
	"time"

	"github.com/cwsl/ftx/ft8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DecodeMetrics holds the Prometheus collectors for decode runs
type DecodeMetrics struct {
	registry *prometheus.Registry

	decodesTotal   *prometheus.CounterVec   // Decoded messages (mode, type labels)
	runsTotal      *prometheus.CounterVec   // Decode runs (mode, result labels)
	candidates     *prometheus.HistogramVec // Candidates found per run
	snr            *prometheus.HistogramVec // SNR of decoded messages
	execTime       *prometheus.HistogramVec // Decode run duration in seconds
	lastDecodeTime *prometheus.GaugeVec     // Unix timestamp of the last run
}

// NewDecodeMetrics registers the collectors on a private registry
func NewDecodeMetrics() *DecodeMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &DecodeMetrics{
		registry: reg,
		decodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftx_decodes_total",
				Help: "Total number of decoded messages",
			},
			[]string{"mode", "type"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftx_decode_runs_total",
				Help: "Total number of decode runs",
			},
			[]string{"mode", "result"},
		),
		candidates: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ftx_candidates",
				Help:    "Sync candidates found per decode run",
				Buckets: []float64{0, 10, 20, 40, 80, 120, 160, 200},
			},
			[]string{"mode"},
		),
		snr: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ftx_snr_db",
				Help:    "SNR of decoded messages in dB (2500 Hz reference)",
				Buckets: prometheus.LinearBuckets(-30, 5, 16),
			},
			[]string{"mode"},
		),
		execTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ftx_decode_seconds",
				Help:    "Decode run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"mode"},
		),
		lastDecodeTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ftx_last_decode_timestamp_seconds",
				Help: "Unix timestamp of the last decode run",
			},
			[]string{"mode"},
		),
	}
}

// RecordRun updates the metrics for one decode run
func (dm *DecodeMetrics) RecordRun(mode ft8.Protocol, candidates int, messages []ft8.DecodedMessage, elapsed time.Duration, err error) {
	if dm == nil {
		return
	}
	label := mode.String()

	result := "ok"
	if err != nil {
		result = "error"
	}
	dm.runsTotal.WithLabelValues(label, result).Inc()
	dm.candidates.WithLabelValues(label).Observe(float64(candidates))
	dm.execTime.WithLabelValues(label).Observe(elapsed.Seconds())
	dm.lastDecodeTime.WithLabelValues(label).Set(float64(time.Now().Unix()))

	for _, msg := range messages {
		dm.decodesTotal.WithLabelValues(label, msg.Type.String()).Inc()
		dm.snr.WithLabelValues(label).Observe(msg.SNR)
	}
}

// Push sends the collected metrics to the Pushgateway
func (dm *DecodeMetrics) Push(pgConfig PushgatewayConfig, station StationConfig) error {
	if dm == nil {
		return fmt.Errorf("prometheus metrics not initialized")
	}

	jobName := pgConfig.Job
	if jobName == "" {
		jobName = "ftx"
	}

	pusher := push.New(pgConfig.URL, jobName).Gatherer(dm.registry)
	if pgConfig.Instance != "" {
		pusher = pusher.Grouping("instance", pgConfig.Instance)
		if pgConfig.Token != "" {
			pusher = pusher.BasicAuth(pgConfig.Instance, pgConfig.Token)
		}
	}
	if station.Callsign != "" {
		pusher = pusher.Grouping("callsign", station.Callsign)
	}
	if station.Locator != "" {
		pusher = pusher.Grouping("locator", station.Locator)
	}

	if err := pusher.Push(); err != nil {
		return fmt.Errorf("failed to push to gateway: %w", err)
	}
	appLogger.WithPrefix("metrics").Debug("Pushed metrics", "url", pgConfig.URL, "job", jobName)
	return nil
}
