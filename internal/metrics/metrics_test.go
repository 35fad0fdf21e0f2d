package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RawIngested("ra", "created")
	m.RawIngested("ra", "created")
	m.LinkCreated("event")
	m.Merged("venue")
	m.Transition("PUBLISHED")
	m.SourceFailed("dice")
	m.SyncProgress(42)
	m.SyncFinished("succeeded", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rawsIngested.WithLabelValues("ra", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linksCreated.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.merges.WithLabelValues("venue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("PUBLISHED")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.syncPercent))
	assert.Equal(t, 1, testutil.CollectAndCount(m.syncDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RawIngested("ra", "created")
		m.MergeConflict("venue")
		m.SyncFinished("failed", time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.CanonicalCreated("artist")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lineup_canonicals_created_total{entity="artist"} 1`)
}
