package dedupe

import (
	"context"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/pkg/constants"
)

// MergeFunc is called after each committed merge.
type MergeFunc func(ctx context.Context, m Merge)

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithMatcher sets the matcher that scores candidate pairs.
func WithMatcher(m *matcher.Matcher) Option {
	return func(d *Deduplicator) {
		if m != nil {
			d.matcher = m
		}
	}
}

// WithMetrics records merge counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Deduplicator) {
		d.metrics = m
	}
}

// WithMaxPasses caps the passes Run makes per entity type.
func WithMaxPasses(n int) Option {
	return func(d *Deduplicator) {
		if n > 0 {
			d.maxPasses = n
		}
	}
}

// WithOnMerge registers fn to observe merges.
func WithOnMerge(fn MergeFunc) Option {
	return func(d *Deduplicator) {
		if fn != nil {
			d.onMerge = append(d.onMerge, fn)
		}
	}
}

func defaults() *Deduplicator {
	return &Deduplicator{
		matcher:   matcher.New(),
		maxPasses: constants.MaxDedupePasses,
	}
}
