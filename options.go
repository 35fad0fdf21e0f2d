package lineup

import (
	"time"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sources"
	"github.com/agentstation/lineup/pkg/types"
)

// options holds the client configuration.
type options struct {
	// matching
	locale     string
	thresholds matcher.Thresholds
	resurface  bool

	// sync
	connectors []sources.Connector
	locker     jobs.Locker
	holder     string
	cityDelay  time.Duration
	leaseTTL   time.Duration
	heartbeat  time.Duration

	// lifecycle
	location    *time.Location
	sweepStates []types.EventState

	// auto sweep
	autoSweepEnabled  bool
	autoSweepInterval time.Duration

	metrics *metrics.Metrics
}

// Option is a function that configures a Client.
type Option func(*options) error

// defaults returns options with default values.
func defaults() *options {
	return &options{
		locale:            constants.DefaultLocale,
		thresholds:        matcher.DefaultThresholds(),
		cityDelay:         constants.DefaultCityDelay,
		leaseTTL:          constants.DefaultLeaseTTL,
		heartbeat:         constants.DefaultHeartbeat,
		location:          time.UTC,
		autoSweepInterval: constants.DefaultSweepInterval,
	}
}

// apply applies the given options in order and stops at the first error.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithLocale selects the normalization rules.
func WithLocale(locale string) Option {
	return func(o *options) error {
		o.locale = locale
		return nil
	}
}

// WithThresholds overrides the matcher's link and dedupe thresholds.
func WithThresholds(t matcher.Thresholds) Option {
	return func(o *options) error {
		if err := t.Validate(); err != nil {
			return err
		}
		o.thresholds = t
		return nil
	}
}

// WithResurfaceDismissed makes a new incoming change re-open a diff the
// curator dismissed before.
func WithResurfaceDismissed(enabled bool) Option {
	return func(o *options) error {
		o.resurface = enabled
		return nil
	}
}

// WithConnectors registers source connectors for sync runs.
func WithConnectors(connectors ...sources.Connector) Option {
	return func(o *options) error {
		o.connectors = append(o.connectors, connectors...)
		return nil
	}
}

// WithLocker replaces the database lease used for sync exclusivity.
func WithLocker(l jobs.Locker) Option {
	return func(o *options) error {
		if l == nil {
			return &errors.ConfigError{Component: "locker", Message: "locker is nil"}
		}
		o.locker = l
		return nil
	}
}

// WithHolder names this instance in job records.
func WithHolder(name string) Option {
	return func(o *options) error {
		o.holder = name
		return nil
	}
}

// WithCityDelay sets the pause between cities.
func WithCityDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{Field: "cityDelay", Value: d, Message: "delay must not be negative"}
		}
		o.cityDelay = d
		return nil
	}
}

// WithLease sets the sync lease TTL and its renewal interval.
func WithLease(ttl, heartbeat time.Duration) Option {
	return func(o *options) error {
		if ttl <= 0 || heartbeat <= 0 || heartbeat >= ttl {
			return &errors.ValidationError{
				Field:   "lease",
				Value:   ttl,
				Message: "heartbeat must be positive and shorter than the TTL",
			}
		}
		o.leaseTTL = ttl
		o.heartbeat = heartbeat
		return nil
	}
}

// WithLocation sets the zone event dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) error {
		if loc == nil {
			return &errors.ConfigError{Component: "location", Message: "location is nil"}
		}
		o.location = loc
		return nil
	}
}

// WithSweepStates overrides which event states the expiry sweep rejects.
func WithSweepStates(states ...types.EventState) Option {
	return func(o *options) error {
		for _, s := range states {
			if !s.IsValid() {
				return errors.NewValidationError("state", s, "unknown event state")
			}
		}
		o.sweepStates = states
		return nil
	}
}

// WithAutoSweep starts the expiry sweep loop when the client is created.
func WithAutoSweep(enabled bool) Option {
	return func(o *options) error {
		o.autoSweepEnabled = enabled
		return nil
	}
}

// WithAutoSweepInterval configures how often the expiry sweep runs.
func WithAutoSweepInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.autoSweepInterval = interval
		return nil
	}
}

// WithMetrics records operations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
