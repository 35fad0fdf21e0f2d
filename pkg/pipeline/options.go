package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/pkg/dedupe"
	"github.com/agentstation/lineup/pkg/enhancer"
	"github.com/agentstation/lineup/pkg/normalize"
)

// SnapshotFunc observes a job snapshot.
type SnapshotFunc func(ctx context.Context, s jobs.Snapshot)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker sets the lease backend. The default keeps leases in the database.
func WithLocker(l jobs.Locker) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithMatcher sets the matcher used by the match, enrich and dedupe phases.
func WithMatcher(m *matcher.Matcher) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.matcher = m
		}
	}
}

// WithNormalizer sets the normalizer used by the enrich phase.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.norm = n
		}
	}
}

// WithMetrics records sync metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithResurfaceDismissed re-opens dismissed diffs when their source changes again.
func WithResurfaceDismissed(enabled bool) Option {
	return func(o *Orchestrator) {
		o.resurface = enabled
	}
}

// WithEnhancers replaces the enrich phase's enhancers.
func WithEnhancers(enhancers ...enhancer.Enhancer) Option {
	return func(o *Orchestrator) {
		o.enhancers = enhancers
	}
}

// WithCityDelay sets the pause between cities.
func WithCityDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.cityDelay = d
		}
	}
}

// WithLease sets the lease TTL and how often a running job renews it.
func WithLease(ttl, heartbeat time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.leaseTTL = ttl
		}
		if heartbeat > 0 {
			o.heartbeat = heartbeat
		}
	}
}

// WithSleep replaces the inter-city pause.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithHolder names this instance in job rows.
func WithHolder(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.holder = name
		}
	}
}

// WithOnProgress registers fn to observe progress updates.
func WithOnProgress(fn SnapshotFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onProgress = append(o.onProgress, fn)
		}
	}
}

// WithOnFinished registers fn to observe finished jobs.
func WithOnFinished(fn SnapshotFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onFinished = append(o.onFinished, fn)
		}
	}
}

// WithOnMerge registers fn to observe merges made by the dedupe phase.
func WithOnMerge(fn dedupe.MergeFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.onMerge = append(o.onMerge, fn)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "lineup"
	}
	return name
}
