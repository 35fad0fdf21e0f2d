package provenance

import (
	"context"
	"strconv"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/linker"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/types"
)

// CreateCurated inserts c, prepared by the caller, with the curator's
// values. Every given field is tagged curated and a synthetic curated raw
// record becomes the primary link.
func (u *Unifier) CreateCurated(ctx context.Context, c catalogs.Canonical, values map[types.Field]string) error {
	if c.Key() != 0 {
		return errors.NewValidationError("id", c.Key(), "record already exists")
	}
	return u.store.Tx(ctx, func(tx *store.Store) error {
		if err := setCurated(c, values); err != nil {
			return err
		}
		if err := tx.CreateCanonical(ctx, c); err != nil {
			return err
		}
		return u.syncCuratedRaw(ctx, tx, c)
	})
}

// Edit applies a curator's values to an existing canonical record. Edited
// fields are tagged curated so later re-scrapes only flag differences.
func (u *Unifier) Edit(ctx context.Context, kind types.EntityType, id uint, values map[types.Field]string) (catalogs.Canonical, error) {
	var c catalogs.Canonical
	err := u.store.Tx(ctx, func(tx *store.Store) error {
		var err error
		c, err = tx.LockCanonical(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := setCurated(c, values); err != nil {
			return err
		}
		if err := tx.SaveCanonical(ctx, c); err != nil {
			return err
		}
		return u.syncCuratedRaw(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().Str("canonical", catalogs.Ref(c)).Int("fields", len(values)).Msg("Curated edit")
	return c, nil
}

// setCurated writes values into c in field order and tags them curated.
func setCurated(c catalogs.Canonical, values map[types.Field]string) error {
	if len(values) == 0 {
		return errors.NewValidationError("fields", nil, "no fields given")
	}
	for f := range values {
		if !types.HasField(c.Kind(), f) {
			return errors.NewValidationError(string(f), values[f], "not a "+string(c.Kind())+" field")
		}
	}
	for _, f := range types.FieldsOf(c.Kind()) {
		v, ok := values[f]
		if !ok {
			continue
		}
		if err := c.SetValue(f, v); err != nil {
			return errors.WrapValidation(string(f), v, err)
		}
		c.SetOwner(f, types.Curated)
	}
	if c.Label() == "" {
		field := types.FieldName
		if c.Kind() == types.EntityEvent {
			field = types.FieldTitle
		}
		return errors.NewValidationError(string(field), "", "required")
	}
	return nil
}

// syncCuratedRaw upserts the synthetic raw record carrying the curated
// values of c and links it.
func (u *Unifier) syncCuratedRaw(ctx context.Context, tx *store.Store, c catalogs.Canonical) error {
	var payload catalogs.Fields
	for f, owner := range catalogs.Owners(c) {
		if owner.IsCurated() {
			payload.Set(f, c.Value(f))
		}
	}
	// raw payloads carry venue names, not references
	if c.Kind() == types.EntityEvent && payload.Venue != "" {
		payload.Venue = ""
		if id, err := strconv.ParseUint(c.Value(types.FieldVenue), 10, 64); err == nil {
			venue, err := tx.GetCanonical(ctx, types.EntityVenue, uint(id))
			if err != nil {
				return err
			}
			payload.Venue = venue.Label()
		}
	}
	raw, _, err := tx.UpsertRaw(ctx, store.RawInput{
		EntityType: c.Kind(),
		Source:     types.Curated,
		SourceID:   catalogs.Ref(c),
		City:       c.Scope(),
		Fields:     payload,
	})
	if err != nil {
		return err
	}
	raw.MarkSynced()
	if err := tx.SaveRaw(ctx, raw); err != nil {
		return err
	}

	_, err = linker.New(tx, linker.WithMetrics(u.metrics)).Link(ctx, raw, c, constants.CuratedLinkConfidence, false)
	if errors.IsDuplicateLink(err) {
		return nil
	}
	return err
}
