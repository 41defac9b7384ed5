package prompush

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/vocabimport/pkg/metrics"
)

func TestNewBackend(t *testing.T) {
	_, err := NewBackend("job", "")
	assert.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "vocabimport", b.jobName)
}

func TestBackendRecordsKnownMetrics(t *testing.T) {
	b, err := NewBackend("vocabimport", "http://pushgateway:9091")
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"table": "dictionary", "kind": "accepted"})
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"table": "dictionary", "status": "ok"})
	b.IncCounter(metrics.SourceResolutionTotal, 1, metrics.Labels{"result": "success"})
	b.IncCounter("unknown_total", 1, nil)
	b.ObserveHistogram(metrics.BatchDurationSeconds, 0.25, metrics.Labels{"table": "dictionary", "status": "ok"})
	b.ObserveHistogram("unknown_seconds", 1, nil)

	assert.Equal(t, 5.0, testutil.ToFloat64(b.recordCounter.WithLabelValues("dictionary", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.batchCounter.WithLabelValues("dictionary", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.sourceCounter.With(prometheus.Labels{"result": "success"})))

	n, err := testutil.GatherAndCount(b.Gatherer(), metrics.BatchDurationSeconds)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFlushPushesToGateway(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("vocabimport", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"table": "words_unified", "kind": "failed"})

	require.NoError(t, b.Flush())
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/vocabimport", gotPath)
}
