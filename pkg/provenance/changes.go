package provenance

import (
	"context"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/differ"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/types"
)

// ApplyChanges writes flagged changes of a raw record into its canonical
// record and tags the fields with the raw's source, overriding curated
// ownership. With no fields every flagged change is applied. Applied fields
// leave the raw's diff; the canonical record stays pending review while any
// linked raw record still has undismissed changes.
func (u *Unifier) ApplyChanges(ctx context.Context, rawID uint, fields ...types.Field) ([]types.Field, error) {
	var (
		applied []types.Field
		kind    types.EntityType
	)
	err := u.store.Tx(ctx, func(tx *store.Store) error {
		raw, err := tx.LockRaw(ctx, rawID)
		if err != nil {
			return err
		}
		kind = raw.EntityType
		diff := raw.Changes()
		if len(diff) == 0 {
			return errNoChanges(rawID)
		}
		if len(fields) == 0 {
			fields = diff.Fields(raw.EntityType)
		}
		for _, f := range fields {
			if _, ok := diff[f]; !ok {
				return errors.NewValidationError(string(f), nil, "no pending change for field")
			}
		}

		link, err := tx.LinkForRaw(ctx, raw.ID)
		if err != nil {
			return err
		}
		c, err := tx.LockCanonical(ctx, link.EntityType, link.CanonicalID)
		if err != nil {
			return err
		}

		for _, f := range fields {
			if err := c.SetValue(f, diff[f].New); err != nil {
				return errors.WrapValidation(string(f), diff[f].New, err)
			}
			c.SetOwner(f, raw.Source)
			delete(diff, f)
			applied = append(applied, f)
		}

		raw.SetChanges(diff)
		if len(diff) == 0 {
			raw.Dismissed = false
		}
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

	u.metrics.ChangesApplied(string(kind))
	logging.FromContext(ctx).Info().Uint("raw_id", rawID).Interface("fields", applied).Msg("Applied changes")
	return applied, nil
}

// DismissChanges hides a raw record's diff from the review queue. The diff
// and has_changes stay as they are.
func (u *Unifier) DismissChanges(ctx context.Context, rawID uint) error {
	return u.store.Tx(ctx, func(tx *store.Store) error {
		raw, err := tx.LockRaw(ctx, rawID)
		if err != nil {
			return err
		}
		if !raw.HasChanges {
			return errNoChanges(rawID)
		}
		if raw.Dismissed {
			return nil
		}
		raw.Dismissed = true
		if err := tx.SaveRaw(ctx, raw); err != nil {
			return err
		}

		link, err := tx.LinkForRaw(ctx, raw.ID)
		if errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		c, err := tx.LockCanonical(ctx, link.EntityType, link.CanonicalID)
		if err != nil {
			return err
		}
		if err := refreshPending(ctx, tx, c, raw); err != nil {
			return err
		}
		return tx.SaveCanonical(ctx, c)
	})
}

// PendingChanges returns the flagged changes of a raw record in field
// order.
func PendingChanges(raw *catalogs.RawRecord) *differ.Changeset {
	diff := raw.Changes()
	cs := &differ.Changeset{Entity: raw.EntityType, ID: raw.ID}
	for _, f := range diff.Fields(raw.EntityType) {
		cs.Changes = append(cs.Changes, differ.FieldChange{
			Field:  f,
			Old:    diff[f].Old,
			New:    diff[f].New,
			Type:   changeType(diff[f]),
			Source: raw.Source,
		})
	}
	return cs
}

func changeType(c catalogs.Change) differ.ChangeType {
	if c.Old == "" {
		return differ.ChangeTypeAdd
	}
	return differ.ChangeTypeUpdate
}
