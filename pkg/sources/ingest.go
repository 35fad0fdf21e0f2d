package sources

import (
	"context"
	"time"

	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/sync"
)

// Ingester stores what connectors emit as raw records.
type Ingester struct {
	store   *store.Store
	metrics *metrics.Metrics
	timeout time.Duration
}

// IngestOption configures an Ingester.
type IngestOption func(*Ingester)

// WithMetrics records ingest counters on m.
func WithMetrics(m *metrics.Metrics) IngestOption {
	return func(in *Ingester) {
		in.metrics = m
	}
}

// WithTimeout bounds one scrape. Zero disables the bound.
func WithTimeout(d time.Duration) IngestOption {
	return func(in *Ingester) {
		in.timeout = d
	}
}

// NewIngester creates an ingester writing to s.
func NewIngester(s *store.Store, opts ...IngestOption) *Ingester {
	in := &Ingester{store: s, timeout: constants.SourceTimeout}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest scrapes city from c and upserts every valid observation.
//
// A scrape failure is returned as a *errors.SourceUnavailableError with the
// partial result; observations stored before the failure are kept. Invalid
// observations are counted and skipped. Storage failures are returned as is.
func (in *Ingester) Ingest(ctx context.Context, c Connector, city string) (sync.SourceResult, error) {
	source := c.ID()
	result := sync.SourceResult{City: city, Source: string(source)}
	ctx = logging.WithSource(logging.WithCity(ctx, city), string(source))
	logger := logging.FromContext(ctx)

	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	var storeErr error
	emit := func(o Observation) error {
		result.Observed++
		if err := o.Validate(); err != nil {
			result.Invalid++
			in.metrics.RawIngested(string(source), "invalid")
			logger.Debug().Err(err).Str("source_id", o.SourceID).Msg("Skipping invalid observation")
			return nil
		}
		fields := o.Fields()
		if fields.City == "" {
			fields.City = city
		}
		_, outcome, err := in.store.UpsertRaw(ctx, store.RawInput{
			EntityType: o.EntityType,
			Source:     source,
			SourceID:   o.SourceID,
			City:       city,
			Fields:     fields,
		})
		if err != nil {
			storeErr = err
			return err
		}
		switch outcome {
		case store.RawCreated:
			result.Created++
			in.metrics.RawIngested(string(source), "created")
		case store.RawUpdated:
			result.Updated++
			in.metrics.RawIngested(string(source), "updated")
		default:
			result.Unchanged++
			in.metrics.RawIngested(string(source), "unchanged")
		}
		return nil
	}

	err := c.Scrape(ctx, city, emit)
	if storeErr != nil {
		return result, storeErr
	}
	if err != nil {
		result.Error = err.Error()
		in.metrics.SourceFailed(string(source))
		logger.Warn().Err(err).Int("observed", result.Observed).Msg("Source unavailable")
		return result, &errors.SourceUnavailableError{City: city, Source: string(source), Err: err}
	}

	logger.Info().
		Int("observed", result.Observed).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("invalid", result.Invalid).
		Msg("Ingested source")
	return result, nil
}
