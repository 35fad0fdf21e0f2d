// Package linker persists raw to canonical associations.
//
// A raw record links to at most one canonical record, enforced by a unique
// index on the raw id, so linking is safe under concurrent ingestion: the
// losing attempt gets a DuplicateLinkError instead of a second row. Every
// canonical record with links has exactly one primary link.
package linker

import (
	"context"
	"strconv"

	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/types"
)

// Linker creates, moves and removes links.
type Linker struct {
	store   *store.Store
	metrics *metrics.Metrics
}

// Option configures a Linker.
type Option func(*Linker)

// WithMetrics records link counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Linker) {
		l.metrics = m
	}
}

// New returns a Linker over s. Pass a transaction-bound store to make
// linking part of a larger unit of work.
func New(s *store.Store, opts ...Option) *Linker {
	l := &Linker{store: s}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Link associates raw with c. A raw record that already has a link is
// rejected with a *errors.DuplicateLinkError naming the existing canonical
// record, and nothing is written. The first link of a canonical record is
// always primary; a later primary link demotes the previous one.
func (l *Linker) Link(ctx context.Context, raw *catalogs.RawRecord, c catalogs.Canonical, confidence float64, primary bool) (*catalogs.Link, error) {
	if raw.EntityType != c.Kind() {
		return nil, errors.NewValidationError("entity_type", raw.EntityType, "raw and canonical record differ in type")
	}

	var link *catalogs.Link
	err := l.store.Tx(ctx, func(tx *store.Store) error {
		existing, err := tx.LinkForRaw(ctx, raw.ID)
		if err == nil {
			return &errors.DuplicateLinkError{RawID: raw.ID, CanonicalID: existing.CanonicalID}
		}
		if !errors.IsNotFound(err) {
			return err
		}

		links, err := tx.LinksFor(ctx, c.Kind(), c.Key())
		if err != nil {
			return err
		}
		hasPrimary := len(links) > 0 && links[0].IsPrimary

		link = &catalogs.Link{
			RawID:       raw.ID,
			EntityType:  raw.EntityType,
			CanonicalID: c.Key(),
			Source:      raw.Source,
			Confidence:  confidence,
			IsPrimary:   primary || !hasPrimary,
		}
		created, err := tx.InsertLink(ctx, link)
		if err != nil {
			return err
		}
		if !created {
			// a concurrent link won the unique index
			winner, err := tx.LinkForRaw(ctx, raw.ID)
			if err != nil {
				return err
			}
			return &errors.DuplicateLinkError{RawID: raw.ID, CanonicalID: winner.CanonicalID}
		}
		if link.IsPrimary && hasPrimary {
			return tx.SetPrimary(ctx, c.Kind(), c.Key(), link.ID)
		}
		return nil
	})
	if err != nil {
		if errors.IsDuplicateLink(err) {
			l.metrics.DuplicateLink(string(raw.EntityType))
		}
		return nil, err
	}

	l.metrics.LinkCreated(string(raw.EntityType))
	logging.FromContext(ctx).Debug().
		Uint("raw_id", raw.ID).
		Str("canonical", catalogs.Ref(c)).
		Float64("confidence", confidence).
		Bool("primary", link.IsPrimary).
		Msg("Linked raw record")
	return link, nil
}

// Promote makes linkID the primary link of its canonical record.
func (l *Linker) Promote(ctx context.Context, kind types.EntityType, canonicalID, linkID uint) error {
	return l.store.Tx(ctx, func(tx *store.Store) error {
		links, err := tx.LinksFor(ctx, kind, canonicalID)
		if err != nil {
			return err
		}
		for _, link := range links {
			if link.ID == linkID {
				return tx.SetPrimary(ctx, kind, canonicalID, linkID)
			}
		}
		return errors.NewNotFoundError("link", strconv.FormatUint(uint64(linkID), 10))
	})
}

// Repoint moves every link of from onto to, keeping to's primary link if it
// has one. It returns how many links moved.
func (l *Linker) Repoint(ctx context.Context, kind types.EntityType, from, to uint) (int64, error) {
	var moved int64
	err := l.store.Tx(ctx, func(tx *store.Store) error {
		var err error
		moved, err = tx.RepointLinks(ctx, kind, from, to)
		if err != nil {
			return err
		}
		return ensurePrimary(ctx, tx, kind, to)
	})
	return moved, err
}

// Unlink removes the link of a raw record. When the link was primary the
// oldest remaining link of the canonical record is promoted.
func (l *Linker) Unlink(ctx context.Context, rawID uint) (*catalogs.Link, error) {
	var removed *catalogs.Link
	err := l.store.Tx(ctx, func(tx *store.Store) error {
		var err error
		removed, err = tx.DeleteLink(ctx, rawID)
		if err != nil {
			return err
		}
		if removed.IsPrimary {
			return ensurePrimary(ctx, tx, removed.EntityType, removed.CanonicalID)
		}
		return nil
	})
	return removed, err
}

// ManualLink links the raw record a source reported under sourceID to a
// canonical record, at full confidence. The raw record must exist and must
// not be linked yet.
func (l *Linker) ManualLink(ctx context.Context, kind types.EntityType, canonicalID uint, source types.SourceTag, sourceID string) (*catalogs.RawRecord, *catalogs.Link, error) {
	if source.IsReserved() {
		return nil, nil, errors.NewValidationError("source", source, "reserved source tag")
	}
	var (
		raw  *catalogs.RawRecord
		link *catalogs.Link
	)
	err := l.store.Tx(ctx, func(tx *store.Store) error {
		c, err := tx.GetCanonical(ctx, kind, canonicalID)
		if err != nil {
			return err
		}
		raw, err = tx.FindRawBySource(ctx, kind, source, sourceID)
		if err != nil {
			return err
		}
		link, err = New(tx, WithMetrics(l.metrics)).Link(ctx, raw, c, constants.CuratedLinkConfidence, false)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return raw, link, nil
}

// ensurePrimary promotes the oldest link of a canonical record when none of
// its links is primary.
func ensurePrimary(ctx context.Context, tx *store.Store, kind types.EntityType, canonicalID uint) error {
	links, err := tx.LinksFor(ctx, kind, canonicalID)
	if err != nil || len(links) == 0 || links[0].IsPrimary {
		return err
	}
	oldest := links[0]
	for _, link := range links[1:] {
		if link.ID < oldest.ID {
			oldest = link
		}
	}
	return tx.SetPrimary(ctx, kind, canonicalID, oldest.ID)
}
