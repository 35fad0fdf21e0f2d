// Package dedupe merges canonical records of the same type that describe
// the same entity.
//
// Candidate pairs are formed within a scope: venues of the same city,
// events of the same date and venue, any two artists. A pair whose score
// reaches the dedupe threshold is merged in one transaction: the record
// with the higher completeness is kept (ties keep the lower id), it
// inherits the loser's values for its empty fields, every link and foreign
// reference moves to it and the loser is deleted. Passes repeat until one
// merges nothing, so a second run over the same data is a no-op.
package dedupe

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/linker"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// Deduplicator finds and merges duplicate canonical records.
type Deduplicator struct {
	store     *store.Store
	matcher   *matcher.Matcher
	metrics   *metrics.Metrics
	maxPasses int
	onMerge   []MergeFunc
}

// New returns a Deduplicator over s.
func New(s *store.Store, opts ...Option) *Deduplicator {
	d := defaults()
	d.store = s
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Merge describes one committed merge.
type Merge struct {
	Entity     types.EntityType `json:"entity"`
	KeeperID   uint             `json:"keeper_id"`
	LoserID    uint             `json:"loser_id"`
	Score      float64          `json:"score"`
	Filled     []types.Field    `json:"filled,omitempty"`
	Links      int64            `json:"links"`
	References int64            `json:"references"`
}

// RunAll deduplicates every given entity type, all types when none are
// given. Types run concurrently within a round; merges within one type are
// serialized. A venue or artist merge can turn events into duplicates, so
// rounds repeat until one merges nothing or the pass limit is reached.
func (d *Deduplicator) RunAll(ctx context.Context, kinds ...types.EntityType) (map[types.EntityType]*sync.DedupeStats, error) {
	if len(kinds) == 0 {
		kinds = types.EntityTypes()
	}
	stats := make(map[types.EntityType]*sync.DedupeStats, len(kinds))
	for _, kind := range kinds {
		stats[kind] = &sync.DedupeStats{}
	}

	for round := 1; round <= d.maxPasses; round++ {
		rounds := make(map[types.EntityType]*sync.DedupeStats, len(kinds))
		g, gctx := errgroup.WithContext(ctx)
		for _, kind := range kinds {
			out := &sync.DedupeStats{}
			rounds[kind] = out
			g.Go(func() error {
				s, err := d.Run(gctx, kind)
				if s != nil {
					*out = *s
				}
				return err
			})
		}
		err := g.Wait()

		merged := 0
		for kind, s := range rounds {
			stats[kind].Add(*s)
			merged += s.Merged
		}
		if err != nil {
			return stats, err
		}
		if merged == 0 || len(kinds) == 1 {
			break
		}
		logging.FromContext(ctx).Debug().Int("round", round).Int("merged", merged).Msg("Dedupe round merged records, repeating")
	}
	return stats, nil
}

// Run deduplicates kind until a pass merges nothing or the pass limit is
// reached.
func (d *Deduplicator) Run(ctx context.Context, kind types.EntityType) (*sync.DedupeStats, error) {
	if !kind.IsValid() {
		return nil, errors.NewValidationError("entity_type", kind, "unknown entity type")
	}
	logger := logging.FromContext(ctx).With().Str("entity", string(kind)).Logger()

	stats := &sync.DedupeStats{}
	for stats.Passes < d.maxPasses {
		stats.Passes++
		merges, conflicts, err := d.Pass(ctx, kind)
		stats.Merged += len(merges)
		for _, c := range conflicts {
			stats.Conflicts++
			stats.Errors = append(stats.Errors, c.Error())
		}
		if err != nil {
			return stats, err
		}
		if len(merges) == 0 {
			break
		}
	}

	logger.Info().
		Int("passes", stats.Passes).
		Int("merged", stats.Merged).
		Int("conflicts", stats.Conflicts).
		Msg("Deduplicated records")
	return stats, nil
}

// Pass makes one sweep over the records of kind. Pairs whose merge fails
// are returned as conflicts and skipped.
func (d *Deduplicator) Pass(ctx context.Context, kind types.EntityType) ([]Merge, []*errors.MergeConflictError, error) {
	records, err := d.store.Candidates(ctx, kind, store.Scope{})
	if err != nil {
		return nil, nil, err
	}

	var (
		merges    []Merge
		conflicts []*errors.MergeConflictError
		gone      = make(map[uint]bool)
	)
	for _, group := range d.buckets(records) {
		for i, a := range group {
			for _, b := range group[i+1:] {
				if gone[a.Key()] {
					break
				}
				if gone[b.Key()] {
					continue
				}
				score, ok := d.matcher.Duplicate(a, b)
				if !ok {
					continue
				}
				if err := ctx.Err(); err != nil {
					return merges, conflicts, err
				}

				m, err := d.MergePair(ctx, kind, a.Key(), b.Key())
				if err != nil {
					var conflict *errors.MergeConflictError
					if !errors.As(err, &conflict) {
						return merges, conflicts, err
					}
					conflicts = append(conflicts, conflict)
					continue
				}
				m.Score = score
				merges = append(merges, *m)
				gone[m.LoserID] = true
				d.notify(ctx, *m)
			}
		}
	}
	return merges, conflicts, nil
}

// buckets groups records that can be duplicates of each other, keeping
// creation order inside each group.
func (d *Deduplicator) buckets(records []catalogs.Canonical) [][]catalogs.Canonical {
	norm := d.matcher.Normalizer()
	index := make(map[string]int)
	var groups [][]catalogs.Canonical
	for _, c := range records {
		var key string
		switch c.Kind() {
		case types.EntityVenue:
			key = norm.Compact(c.Scope())
		case types.EntityEvent:
			key = c.Value(types.FieldDate) + "|" + c.Value(types.FieldVenue)
			if c.Value(types.FieldVenue) == "" {
				key += "|" + norm.Compact(c.Scope())
			}
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// MergePair merges two records of kind in one transaction. A failure rolls
// the merge back. Records that vanished or no longer fit together are
// reported as a *errors.MergeConflictError; storage faults are returned
// as they are.
func (d *Deduplicator) MergePair(ctx context.Context, kind types.EntityType, a, b uint) (*Merge, error) {
	if a == b {
		return nil, errors.NewValidationError("id", b, "cannot merge a record into itself")
	}
	if b < a {
		a, b = b, a
	}

	var m *Merge
	err := d.store.Tx(ctx, func(tx *store.Store) error {
		first, err := tx.LockCanonical(ctx, kind, a)
		if err != nil {
			return err
		}
		second, err := tx.LockCanonical(ctx, kind, b)
		if err != nil {
			return err
		}
		keeper, loser := Keeper(first, second)
		m, err = merge(ctx, tx, keeper, loser)
		return err
	})
	if err != nil && !conflicting(err) {
		return nil, err
	}
	if err != nil {
		keeperID, loserID := a, b
		if m != nil {
			keeperID, loserID = m.KeeperID, m.LoserID
		}
		d.metrics.MergeConflict(string(kind))
		logging.FromContext(ctx).Warn().
			Err(err).
			Str("entity", string(kind)).
			Uint("keeper_id", keeperID).
			Uint("loser_id", loserID).
			Msg("Merge rolled back")
		return nil, &errors.MergeConflictError{Entity: string(kind), KeeperID: keeperID, LoserID: loserID, Err: err}
	}

	d.metrics.Merged(string(kind))
	logging.FromContext(ctx).Info().
		Str("entity", string(kind)).
		Uint("keeper_id", m.KeeperID).
		Uint("loser_id", m.LoserID).
		Int64("links", m.Links).
		Int64("references", m.References).
		Interface("filled", m.Filled).
		Msg("Merged duplicate records")
	return m, nil
}

// conflicting reports whether err means the pair cannot be merged as it
// stands, as opposed to a storage fault.
func conflicting(err error) bool {
	return errors.IsNotFound(err) ||
		errors.IsValidationError(err) ||
		errors.IsDuplicateLink(err) ||
		errors.IsAlreadyExists(err)
}

// Keeper picks the record to keep: the more complete one, then the lower
// id.
func Keeper(a, b catalogs.Canonical) (keeper, loser catalogs.Canonical) {
	ca, cb := a.Completeness(), b.Completeness()
	switch {
	case ca > cb:
		return a, b
	case cb > ca:
		return b, a
	case b.Key() < a.Key():
		return b, a
	}
	return a, b
}

// merge moves loser into keeper inside tx.
func merge(ctx context.Context, tx *store.Store, keeper, loser catalogs.Canonical) (*Merge, error) {
	kind := keeper.Kind()
	m := &Merge{Entity: kind, KeeperID: keeper.Key(), LoserID: loser.Key()}

	for _, f := range types.FieldsOf(kind) {
		v := loser.Value(f)
		if v == "" || keeper.Value(f) != "" {
			continue
		}
		if err := keeper.SetValue(f, v); err != nil {
			return m, errors.WrapValidation(string(f), v, err)
		}
		owner := loser.Owner(f)
		if owner == "" {
			owner = types.Merged
		}
		keeper.SetOwner(f, owner)
		m.Filled = append(m.Filled, f)
	}

	var err error
	if m.Links, err = linker.New(tx).Repoint(ctx, kind, loser.Key(), keeper.Key()); err != nil {
		return m, err
	}

	switch kind {
	case types.EntityVenue:
		m.References, err = tx.RepointEventVenues(ctx, loser.Key(), keeper.Key())
	case types.EntityArtist:
		err = tx.RepointEventArtists(ctx, loser.Key(), keeper.Key())
	case types.EntityEvent:
		err = tx.RepointEventLineup(ctx, loser.Key(), keeper.Key())
	}
	if err != nil {
		return m, err
	}

	pending, err := tx.AnyPendingChanges(ctx, kind, keeper.Key(), 0)
	if err != nil {
		return m, err
	}
	keeper.SetPending(pending)
	if err := tx.SaveCanonical(ctx, keeper); err != nil {
		return m, err
	}
	return m, tx.DeleteCanonical(ctx, kind, loser.Key())
}

func (d *Deduplicator) notify(ctx context.Context, m Merge) {
	for _, fn := range d.onMerge {
		fn(ctx, m)
	}
}

// String returns a short description of the merge.
func (m Merge) String() string {
	return string(m.Entity) + " " + strconv.FormatUint(uint64(m.LoserID), 10) + " -> " + strconv.FormatUint(uint64(m.KeeperID), 10)
}
