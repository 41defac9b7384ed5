// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package. An import is a short batch job, so metrics are pushed
// once at the end instead of being scraped.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/japaniel/vocabimport/pkg/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	recordCounter *prometheus.CounterVec
	batchCounter  *prometheus.CounterVec
	batchDuration *prometheus.SummaryVec
	sourceCounter *prometheus.CounterVec
}

// NewBackend constructs a Prometheus Pushgateway backend.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "vocabimport"
	}

	reg := prometheus.NewRegistry()

	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Records per table and outcome (accepted, failed, skipped).",
		},
		[]string{"table", "kind"},
	)
	batchCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Batches submitted per table and outcome (ok, partial, fatal).",
		},
		[]string{"table", "status"},
	)
	batchDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.BatchDurationSeconds,
			Help:       "Time to load one batch including any per-record fallback.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"table", "status"},
	)
	sourceCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.SourceResolutionTotal,
			Help: "Source registry lookup-or-create calls.",
		},
		[]string{"result"},
	)

	for _, c := range []prometheus.Collector{recordCounter, batchCounter, batchDuration, sourceCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		recordCounter: recordCounter,
		batchCounter:  batchCounter,
		batchDuration: batchDuration,
		sourceCounter: sourceCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.RecordsTotal:
		b.recordCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
	case metrics.BatchesTotal:
		b.batchCounter.WithLabelValues(labels["table"], labels["status"]).Add(delta)
	case metrics.SourceResolutionTotal:
		b.sourceCounter.WithLabelValues(labels["result"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.BatchDurationSeconds {
		return
	}
	b.batchDuration.WithLabelValues(labels["table"], labels["status"]).Observe(value)
}

// Gatherer exposes the registry, mainly for tests.
func (b *Backend) Gatherer() prometheus.Gatherer { return b.reg }

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
