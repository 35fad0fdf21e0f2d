package reconciler

import (
	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/pkg/errors"
)

// options configures a reconciler.
type options struct {
	matcher   *matcher.Matcher
	metrics   *metrics.Metrics
	resurface bool
}

func defaultOptions() *options {
	return &options{
		matcher: matcher.New(),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithMatcher sets the matcher used for candidate scoring and reference
// resolution.
func WithMatcher(m *matcher.Matcher) Option {
	return func(o *options) error {
		if m == nil {
			return &errors.ValidationError{
				Field:   "matcher",
				Message: "cannot be nil",
			}
		}
		if err := m.Thresholds().Validate(); err != nil {
			return err
		}
		o.matcher = m
		return nil
	}
}

// WithMetrics records link, create and diff counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithResurfaceDismissed puts dismissed raw records back into the review
// queue when a re-scrape flags a new change.
func WithResurfaceDismissed(enabled bool) Option {
	return func(o *options) error {
		o.resurface = enabled
		return nil
	}
}
