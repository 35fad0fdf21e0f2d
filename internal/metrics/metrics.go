// Package metrics holds the Prometheus collectors of the sync pipeline.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lineup"

// Metrics is the set of pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	rawsIngested      *prometheus.CounterVec
	canonicalsCreated *prometheus.CounterVec
	linksCreated      *prometheus.CounterVec
	duplicateLinks    *prometheus.CounterVec
	diffsFlagged      *prometheus.CounterVec
	changesApplied    *prometheus.CounterVec
	merges            *prometheus.CounterVec
	mergeConflicts    *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	sourceFailures    *prometheus.CounterVec
	syncJobs          *prometheus.CounterVec
	syncDuration      prometheus.Histogram
	syncPercent       prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rawsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raws_ingested_total",
			Help:      "Observations stored by source and outcome",
		}, []string{"source", "outcome"}),
		canonicalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canonicals_created_total",
			Help:      "Canonical records created",
		}, []string{"entity"}),
		linksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Raw to canonical links created",
		}, []string{"entity"}),
		duplicateLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_links_total",
			Help:      "Link attempts on an already linked raw record",
		}, []string{"entity"}),
		diffsFlagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diffs_flagged_total",
			Help:      "Re-scrape changes held back for review",
		}, []string{"entity"}),
		changesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_applied_total",
			Help:      "Reviewed changes applied to canonical records",
		}, []string{"entity"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Duplicate canonical records merged",
		}, []string{"entity"}),
		mergeConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_conflicts_total",
			Help:      "Merges rolled back",
		}, []string{"entity"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Event lifecycle transitions by target state",
		}, []string{"to"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed scrapes by source",
		}, []string{"source"}),
		syncJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_jobs_total",
			Help:      "Finished sync jobs by status",
		}, []string{"status"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of finished sync jobs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		syncPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_percent_complete",
			Help:      "Progress of the running sync job",
		}),
	}
	m.registry.MustRegister(
		m.rawsIngested, m.canonicalsCreated, m.linksCreated, m.duplicateLinks,
		m.diffsFlagged, m.changesApplied, m.merges, m.mergeConflicts,
		m.transitions, m.sourceFailures, m.syncJobs, m.syncDuration, m.syncPercent,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RawIngested counts a stored observation.
func (m *Metrics) RawIngested(source, outcome string) {
	if m != nil {
		m.rawsIngested.WithLabelValues(source, outcome).Inc()
	}
}

// CanonicalCreated counts a new canonical record.
func (m *Metrics) CanonicalCreated(entity string) {
	if m != nil {
		m.canonicalsCreated.WithLabelValues(entity).Inc()
	}
}

// LinkCreated counts a new link.
func (m *Metrics) LinkCreated(entity string) {
	if m != nil {
		m.linksCreated.WithLabelValues(entity).Inc()
	}
}

// DuplicateLink counts a rejected second link.
func (m *Metrics) DuplicateLink(entity string) {
	if m != nil {
		m.duplicateLinks.WithLabelValues(entity).Inc()
	}
}

// DiffFlagged counts a change held back for review.
func (m *Metrics) DiffFlagged(entity string) {
	if m != nil {
		m.diffsFlagged.WithLabelValues(entity).Inc()
	}
}

// ChangesApplied counts an explicit apply.
func (m *Metrics) ChangesApplied(entity string) {
	if m != nil {
		m.changesApplied.WithLabelValues(entity).Inc()
	}
}

// Merged counts a completed merge.
func (m *Metrics) Merged(entity string) {
	if m != nil {
		m.merges.WithLabelValues(entity).Inc()
	}
}

// MergeConflict counts a rolled back merge.
func (m *Metrics) MergeConflict(entity string) {
	if m != nil {
		m.mergeConflicts.WithLabelValues(entity).Inc()
	}
}

// Transition counts a lifecycle transition.
func (m *Metrics) Transition(to string) {
	if m != nil {
		m.transitions.WithLabelValues(to).Inc()
	}
}

// SourceFailed counts a failed scrape.
func (m *Metrics) SourceFailed(source string) {
	if m != nil {
		m.sourceFailures.WithLabelValues(source).Inc()
	}
}

// SyncProgress sets the running job's percent complete.
func (m *Metrics) SyncProgress(percent float64) {
	if m != nil {
		m.syncPercent.Set(percent)
	}
}

// SyncFinished records a finished job.
func (m *Metrics) SyncFinished(status string, took time.Duration) {
	if m != nil {
		m.syncJobs.WithLabelValues(status).Inc()
		m.syncDuration.Observe(took.Seconds())
	}
}
