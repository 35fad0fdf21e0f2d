// Package reconciler runs the match phase: every pending raw record is
// either linked to an existing canonical record, turned into a new one, or
// folded into the record it is already linked to.
//
// Each raw record is reconciled in its own transaction, so a failure on one
// record leaves the work done for the others committed.
package reconciler

import (
	"context"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/linker"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/provenance"
	"github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// Reconciler matches raw records to canonical records.
type Reconciler interface {
	// Raw reconciles one raw record.
	Raw(ctx context.Context, rawID uint) (*Result, error)
	// All reconciles every pending raw record of kind, oldest first.
	All(ctx context.Context, kind types.EntityType) (*sync.MatchStats, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	store     *store.Store
	matcher   *matcher.Matcher
	metrics   *metrics.Metrics
	resurface bool
}

// New creates a Reconciler over s.
func New(s *store.Store, opts ...Option) (Reconciler, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		store:     s,
		matcher:   o.matcher,
		metrics:   o.metrics,
		resurface: o.resurface,
	}, nil
}

// Outcome says what reconciling a raw record did.
type Outcome int

// Reconcile outcomes.
const (
	// Unchanged means the raw record was linked and already folded.
	Unchanged Outcome = iota
	// Created means a new canonical record was made from the raw record.
	Created
	// Linked means the raw record was linked to an existing canonical record.
	Linked
	// Folded means a re-scrape was folded into the linked canonical record.
	Folded
	// Duplicate means a concurrent run linked the raw record first.
	Duplicate
)

// String returns a string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Created:
		return "created"
	case Linked:
		return "linked"
	case Folded:
		return "folded"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Result describes one reconciled raw record.
type Result struct {
	Outcome     Outcome       `json:"outcome"`
	RawID       uint          `json:"raw_id"`
	CanonicalID uint          `json:"canonical_id"`
	Confidence  float64       `json:"confidence,omitempty"`
	Applied     []types.Field `json:"applied,omitempty"`
	Flagged     []types.Field `json:"flagged,omitempty"`
	Lineup      int           `json:"lineup,omitempty"`
}

// unifier returns a Unifier bound to tx.
func (r *reconciler) unifier(tx *store.Store) *provenance.Unifier {
	return provenance.New(tx,
		provenance.WithResolver(Resolver(r.matcher)),
		provenance.WithMetrics(r.metrics),
		provenance.WithResurfaceDismissed(r.resurface),
	)
}

// Raw implements Reconciler.
func (r *reconciler) Raw(ctx context.Context, rawID uint) (*Result, error) {
	res := &Result{RawID: rawID}
	err := r.store.Tx(ctx, func(tx *store.Store) error {
		raw, err := tx.LockRaw(ctx, rawID)
		if err != nil {
			return err
		}

		link, err := tx.LinkForRaw(ctx, raw.ID)
		switch {
		case err == nil:
			res.CanonicalID = link.CanonicalID
			if !raw.Pending() {
				return nil
			}
			return r.fold(ctx, tx, raw, res)
		case errors.IsNotFound(err):
			return r.match(ctx, tx, raw, res)
		default:
			return err
		}
	})
	if err != nil {
		if errors.IsDuplicateLink(err) {
			res.Outcome = Duplicate
			return res, nil
		}
		return nil, err
	}
	return res, nil
}

// fold applies a re-scrape of a linked raw record.
func (r *reconciler) fold(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, res *Result) error {
	folded, err := r.unifier(tx).Fold(ctx, raw)
	if err != nil {
		return err
	}
	res.Outcome = Folded
	res.Applied, res.Flagged = folded.Applied, folded.Flagged
	if raw.EntityType == types.EntityEvent {
		res.Lineup, err = r.lineup(ctx, tx, raw, res.CanonicalID)
	}
	return err
}

// match links an unlinked raw record to its best candidate or creates a new
// canonical record from it.
func (r *reconciler) match(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, res *Result) error {
	label := raw.Data().Name
	if label == "" {
		return errors.NewValidationError("name", label, "raw record has no label")
	}

	candidates, err := tx.Candidates(ctx, raw.EntityType, scope(raw))
	if err != nil {
		return err
	}
	u := r.unifier(tx)
	l := linker.New(tx, linker.WithMetrics(r.metrics))

	var c catalogs.Canonical
	if best, ok := r.matcher.Best(ctx, raw.EntityType, label, candidates); ok {
		c = best.Canonical
		if _, err := l.Link(ctx, raw, c, best.Score, false); err != nil {
			return err
		}
		if res.Applied, err = u.Fill(ctx, c, raw); err != nil {
			return err
		}
		res.Outcome, res.Confidence = Linked, best.Score
	} else {
		if c, err = catalogs.New(raw.EntityType); err != nil {
			return err
		}
		if e, ok := c.(*catalogs.Event); ok {
			e.State = types.StateScrapedDraft
		}
		if err := u.Seed(ctx, c, raw); err != nil {
			return err
		}
		if err := tx.CreateCanonical(ctx, c); err != nil {
			return err
		}
		if _, err := l.Link(ctx, raw, c, 1, true); err != nil {
			return err
		}
		if err := u.MarkSynced(ctx, raw); err != nil {
			return err
		}
		res.Outcome, res.Confidence = Created, 1
		r.metrics.CanonicalCreated(string(raw.EntityType))
	}
	res.CanonicalID = c.Key()

	logging.FromContext(ctx).Debug().
		Uint("raw_id", raw.ID).
		Str("canonical", catalogs.Ref(c)).
		Str("outcome", res.Outcome.String()).
		Float64("confidence", res.Confidence).
		Msg("Reconciled raw record")

	if raw.EntityType == types.EntityEvent {
		res.Lineup, err = r.lineup(ctx, tx, raw, c.Key())
	}
	return err
}

// All implements Reconciler. Records that fail validation or disappear
// mid-run are counted and skipped; storage faults stop the run.
func (r *reconciler) All(ctx context.Context, kind types.EntityType) (*sync.MatchStats, error) {
	logger := logging.FromContext(ctx).With().Str("entity", string(kind)).Logger()

	ids, err := r.store.PendingRawIDs(ctx, kind)
	if err != nil {
		return nil, err
	}

	stats := &sync.MatchStats{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		res, err := r.Raw(ctx, id)
		if err != nil {
			if errors.IsValidationError(err) || errors.IsNotFound(err) {
				stats.Failed++
				logger.Warn().Err(err).Uint("raw_id", id).Msg("Skipping raw record")
				continue
			}
			return stats, err
		}

		switch res.Outcome {
		case Created:
			stats.Created++
		case Linked:
			stats.Linked++
		case Folded:
			stats.Folded++
		case Duplicate:
			stats.DuplicateLinks++
		}
		if len(res.Flagged) > 0 {
			stats.Flagged++
		}
	}

	logger.Info().
		Int("processed", stats.Processed).
		Int("created", stats.Created).
		Int("linked", stats.Linked).
		Int("folded", stats.Folded).
		Int("flagged", stats.Flagged).
		Msg("Matched raw records")
	return stats, nil
}
