// Package enhancer fills gaps in canonical records from data the catalog
// already holds. Enhancers only propose values for empty fields; the
// pipeline writes them with the enrichment provenance tag and never
// overwrites a populated field.
package enhancer

import (
	"context"
	"sort"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// Enhancer proposes values for the empty fields of canonical records.
type Enhancer interface {
	// Name returns the enhancer name
	Name() string

	// Priority returns the priority of this enhancer (higher = applied first)
	Priority() int

	// CanEnhance checks if this enhancer can enhance a specific record
	CanEnhance(c catalogs.Canonical) bool

	// Enhance returns proposed values keyed by field. tx is the store of the
	// transaction the record is enhanced in.
	Enhance(ctx context.Context, tx *store.Store, c catalogs.Canonical) (map[types.Field]string, error)
}

// Pipeline manages a chain of enhancers
type Pipeline struct {
	store     *store.Store
	enhancers []Enhancer
}

// NewPipeline creates a new enhancer pipeline over s
func NewPipeline(s *store.Store, enhancers ...Enhancer) *Pipeline {
	sorted := make([]Enhancer, len(enhancers))
	copy(sorted, enhancers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Pipeline{store: s, enhancers: sorted}
}

// Enhancers returns the enhancers in the order they run.
func (p *Pipeline) Enhancers() []Enhancer {
	return p.enhancers
}

// Enhance applies all enhancers to c in memory and returns the fields that
// were filled. Later enhancers see the values of earlier ones. A failing
// enhancer is logged and skipped.
func (p *Pipeline) Enhance(ctx context.Context, tx *store.Store, c catalogs.Canonical) []types.Field {
	logger := logging.FromContext(ctx)

	var filled []types.Field
	for _, e := range p.enhancers {
		if !e.CanEnhance(c) {
			continue
		}
		proposed, err := e.Enhance(ctx, tx, c)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("enhancer", e.Name()).
				Str("canonical", catalogs.Ref(c)).
				Msg("Enhancer failed for record")
			continue
		}
		for _, f := range types.FieldsOf(c.Kind()) {
			v, ok := proposed[f]
			if !ok || v == "" || c.Value(f) != "" {
				continue
			}
			if err := c.SetValue(f, v); err != nil {
				logger.Warn().Err(err).Str("enhancer", e.Name()).Str("field", string(f)).Msg("Discarding enhanced value")
				continue
			}
			c.SetOwner(f, types.Enrichment)
			filled = append(filled, f)
		}
	}
	return filled
}

// Run enhances every canonical record of kind, each in its own
// transaction.
func (p *Pipeline) Run(ctx context.Context, kind types.EntityType) (*sync.EnrichStats, error) {
	ids, err := p.store.CanonicalIDs(ctx, kind)
	if err != nil {
		return nil, err
	}

	stats := &sync.EnrichStats{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Examined++

		var filled []types.Field
		err := p.store.Tx(ctx, func(tx *store.Store) error {
			c, err := tx.LockCanonical(ctx, kind, id)
			if err != nil {
				return err
			}
			if filled = p.Enhance(ctx, tx, c); len(filled) == 0 {
				return nil
			}
			return tx.SaveCanonical(ctx, c)
		})
		switch {
		case errors.IsNotFound(err):
			// merged away by a concurrent dedupe
			continue
		case err != nil:
			return stats, err
		}
		if len(filled) > 0 {
			stats.Enriched++
			logging.FromContext(ctx).Debug().
				Str("entity", string(kind)).
				Uint("id", id).
				Interface("fields", filled).
				Msg("Enriched record")
		}
	}
	return stats, nil
}
