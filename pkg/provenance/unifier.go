package provenance

import (
	"context"

	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/differ"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/types"
)

// Resolver turns an observed raw value into its canonical form. It returns
// "" when the value cannot be resolved, which leaves the field alone.
type Resolver interface {
	Resolve(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, f types.Field, observed string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, f types.Field, observed string) (string, error)

// Resolve implements Resolver.
func (fn ResolverFunc) Resolve(ctx context.Context, tx *store.Store, raw *catalogs.RawRecord, f types.Field, observed string) (string, error) {
	return fn(ctx, tx, raw, f, observed)
}

// identity passes values through, except event venue names which need a
// lookup against the canonical venues.
var identity = ResolverFunc(func(_ context.Context, _ *store.Store, raw *catalogs.RawRecord, f types.Field, observed string) (string, error) {
	if raw.EntityType == types.EntityEvent && f == types.FieldVenue {
		return "", nil
	}
	return observed, nil
})

// Unifier merges raw records into canonical records.
type Unifier struct {
	store     *store.Store
	resolver  Resolver
	differ    *differ.Differ
	metrics   *metrics.Metrics
	resurface bool
}

// Option configures a Unifier.
type Option func(*Unifier)

// WithResolver sets the value resolver.
func WithResolver(r Resolver) Option {
	return func(u *Unifier) {
		if r != nil {
			u.resolver = r
		}
	}
}

// WithMetrics records diff and apply counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Unifier) {
		u.metrics = m
	}
}

// WithResurfaceDismissed puts a dismissed raw record back into the review
// queue when a later re-scrape flags a new change on it.
func WithResurfaceDismissed(enabled bool) Option {
	return func(u *Unifier) {
		u.resurface = enabled
	}
}

// New returns a Unifier over s.
func New(s *store.Store, opts ...Option) *Unifier {
	u := &Unifier{store: s, resolver: identity, differ: differ.New()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// FoldResult reports what a fold did with each changed field.
type FoldResult struct {
	Applied []types.Field `json:"applied,omitempty"`
	Flagged []types.Field `json:"flagged,omitempty"`
}

// Seed copies every non-empty field of a new canonical record's primary raw
// record into c and tags the fields with the raw's source. c is not saved.
func (u *Unifier) Seed(ctx context.Context, c catalogs.Canonical, raw *catalogs.RawRecord) error {
	data := raw.Data()
	for _, f := range types.FieldsOf(c.Kind()) {
		v, err := u.resolver.Resolve(ctx, u.store, raw, f, data.Get(f))
		if err != nil {
			return err
		}
		if v == "" {
			continue
		}
		if err := c.SetValue(f, v); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("field", string(f)).Uint("raw_id", raw.ID).Msg("Skipping invalid field")
			continue
		}
		c.SetOwner(f, raw.Source)
	}
	return nil
}

// Fill copies the raw record's values into the empty fields of the canonical
// record it was just linked to, tags them with the raw's source and marks
// the raw folded. Populated fields are never touched.
func (u *Unifier) Fill(ctx context.Context, c catalogs.Canonical, raw *catalogs.RawRecord) ([]types.Field, error) {
	var filled []types.Field
	err := u.store.Tx(ctx, func(tx *store.Store) error {
		data := raw.Data()
		for _, f := range types.FieldsOf(c.Kind()) {
			if c.Value(f) != "" {
				continue
			}
			v, err := u.resolver.Resolve(ctx, tx, raw, f, data.Get(f))
			if err != nil {
				return err
			}
			if v == "" {
				continue
			}
			if err := c.SetValue(f, v); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Str("field", string(f)).Uint("raw_id", raw.ID).Msg("Skipping invalid field")
				continue
			}
			c.SetOwner(f, raw.Source)
			filled = append(filled, f)
		}
		if len(filled) > 0 {
			if err := tx.SaveCanonical(ctx, c); err != nil {
				return err
			}
		}
		raw.MarkSynced()
		return tx.SaveRaw(ctx, raw)
	})
	return filled, err
}

// MarkSynced records the raw record's current version as folded.
func (u *Unifier) MarkSynced(ctx context.Context, raw *catalogs.RawRecord) error {
	raw.MarkSynced()
	return u.store.SaveRaw(ctx, raw)
}

// Fold applies a re-scraped raw record to its linked canonical record. Each
// field that changed since the last fold is compared with the current
// canonical value: curated fields get a diff entry on the raw record, other
// fields take the new value and the raw's source tag. A field the source
// stopped reporting is left alone.
func (u *Unifier) Fold(ctx context.Context, raw *catalogs.RawRecord) (*FoldResult, error) {
	res := &FoldResult{}
	err := u.store.Tx(ctx, func(tx *store.Store) error {
		link, err := tx.LinkForRaw(ctx, raw.ID)
		if err != nil {
			return err
		}
		c, err := tx.LockCanonical(ctx, link.EntityType, link.CanonicalID)
		if err != nil {
			return err
		}

		diff := raw.Changes()
		for _, ch := range u.differ.Raw(raw).Changes {
			if ch.New == "" {
				continue
			}
			v, err := u.resolver.Resolve(ctx, tx, raw, ch.Field, ch.New)
			if err != nil {
				return err
			}
			if v == "" {
				continue
			}
			current := c.Value(ch.Field)
			if current == v {
				delete(diff, ch.Field)
				continue
			}
			if c.Owner(ch.Field).IsCurated() {
				diff[ch.Field] = catalogs.Change{Old: current, New: v}
				res.Flagged = append(res.Flagged, ch.Field)
				continue
			}
			if err := c.SetValue(ch.Field, v); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Str("field", string(ch.Field)).Uint("raw_id", raw.ID).Msg("Skipping invalid field")
				continue
			}
			c.SetOwner(ch.Field, raw.Source)
			res.Applied = append(res.Applied, ch.Field)
		}

		raw.SetChanges(diff)
		if len(res.Flagged) > 0 && raw.Dismissed && u.resurface {
			raw.Dismissed = false
		}
		if len(diff) == 0 {
			raw.Dismissed = false
		}
		raw.MarkSynced()
		if err := tx.SaveRaw(ctx, raw); err != nil {
			return err
		}

		if err := refreshPending(ctx, tx, c, raw); err != nil {
			return err
		}
		return tx.SaveCanonical(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	for range res.Flagged {
		u.metrics.DiffFlagged(string(raw.EntityType))
	}
	if len(res.Flagged) > 0 {
		logging.FromContext(ctx).Info().
			Uint("raw_id", raw.ID).
			Str("source", string(raw.Source)).
			Interface("fields", res.Flagged).
			Msg("Flagged changes to curated fields")
	}
	return res, nil
}

// refreshPending recomputes the canonical record's pending-review flag from
// raw and every other linked raw record.
func refreshPending(ctx context.Context, tx *store.Store, c catalogs.Canonical, raw *catalogs.RawRecord) error {
	others, err := tx.AnyPendingChanges(ctx, c.Kind(), c.Key(), raw.ID)
	if err != nil {
		return err
	}
	c.SetPending(others || (raw.HasChanges && !raw.Dismissed))
	return nil
}

// errNoChanges reports an apply on a raw record without flagged changes.
func errNoChanges(rawID uint) error {
	return errors.NewValidationError("raw_id", rawID, "no pending changes")
}
