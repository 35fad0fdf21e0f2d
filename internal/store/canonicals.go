package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/agentstation/lineup/pkg/catalogs"
	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Scope narrows candidate canonical records. Zero fields are ignored.
type Scope struct {
	City    string
	Date    string
	VenueID *uint
	// NoVenue restricts events to those without a venue reference.
	NoVenue bool
}

func model(kind types.EntityType) (any, error) {
	c, err := catalogs.New(kind)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func labelColumn(kind types.EntityType) string {
	if kind == types.EntityEvent {
		return "title"
	}
	return "name"
}

// GetCanonical returns a canonical record by id.
func (s *Store) GetCanonical(ctx context.Context, kind types.EntityType, id uint) (catalogs.Canonical, error) {
	return s.loadCanonical(s.conn(ctx), kind, id)
}

// LockCanonical returns a canonical record row-locked for the transaction.
func (s *Store) LockCanonical(ctx context.Context, kind types.EntityType, id uint) (catalogs.Canonical, error) {
	return s.loadCanonical(s.forUpdate(s.conn(ctx)), kind, id)
}

func (s *Store) loadCanonical(db *gorm.DB, kind types.EntityType, id uint) (catalogs.Canonical, error) {
	c, err := catalogs.New(kind)
	if err != nil {
		return nil, err
	}
	err = db.First(c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError(string(kind), strconv.FormatUint(uint64(id), 10))
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCanonical inserts c and assigns its id.
func (s *Store) CreateCanonical(ctx context.Context, c catalogs.Canonical) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		return pkgerrors.WrapResource("create", string(c.Kind()), "", err)
	}
	return nil
}

// SaveCanonical writes every column of c.
func (s *Store) SaveCanonical(ctx context.Context, c catalogs.Canonical) error {
	if err := s.conn(ctx).Save(c).Error; err != nil {
		return pkgerrors.WrapResource("update", string(c.Kind()), strconv.FormatUint(uint64(c.Key()), 10), err)
	}
	return nil
}

// DeleteCanonical removes a canonical record, its links and, for events,
// its line-up. Raw records stay and become unlinked. Transition history is
// append-only and is kept.
func (s *Store) DeleteCanonical(ctx context.Context, kind types.EntityType, id uint) error {
	m, err := model(kind)
	if err != nil {
		return err
	}
	return s.Tx(ctx, func(tx *Store) error {
		db := tx.conn(ctx)
		if err := db.Where("entity_type = ? AND canonical_id = ?", kind, id).Delete(&catalogs.Link{}).Error; err != nil {
			return err
		}
		switch kind {
		case types.EntityEvent:
			if err := db.Where("event_id = ?", id).Delete(&catalogs.EventArtist{}).Error; err != nil {
				return err
			}
		case types.EntityVenue:
			if err := db.Model(&catalogs.Event{}).Where("venue_id = ?", id).Update("venue_id", nil).Error; err != nil {
				return err
			}
		case types.EntityArtist:
			if err := db.Where("artist_id = ?", id).Delete(&catalogs.EventArtist{}).Error; err != nil {
				return err
			}
		}
		res := db.Delete(m, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.NewNotFoundError(string(kind), strconv.FormatUint(uint64(id), 10))
		}
		return nil
	})
}

// Candidates returns the canonical records of kind within scope, oldest
// first.
func (s *Store) Candidates(ctx context.Context, kind types.EntityType, scope Scope) ([]catalogs.Canonical, error) {
	db := s.conn(ctx)
	if scope.City != "" && kind != types.EntityArtist {
		db = db.Where("LOWER(city) = ?", strings.ToLower(scope.City))
	}
	if kind == types.EntityEvent {
		if scope.Date != "" {
			db = db.Where("date = ?", scope.Date)
		}
		if scope.VenueID != nil {
			db = db.Where("venue_id = ?", *scope.VenueID)
		} else if scope.NoVenue {
			db = db.Where("venue_id IS NULL")
		}
	}
	return s.findCanonicals(db.Order("created_at, id"), kind)
}

func (s *Store) findCanonicals(db *gorm.DB, kind types.EntityType) ([]catalogs.Canonical, error) {
	var out []catalogs.Canonical
	switch kind {
	case types.EntityEvent:
		var rows []*catalogs.Event
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	case types.EntityVenue:
		var rows []*catalogs.Venue
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	case types.EntityArtist:
		var rows []*catalogs.Artist
		if err := db.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r)
		}
	default:
		return nil, pkgerrors.NewValidationError("entity_type", kind, "unknown entity type")
	}
	return out, nil
}

// CanonicalQuery filters ListCanonicals.
type CanonicalQuery struct {
	EntityType    types.EntityType
	City          string
	Search        string
	State         types.EventState
	Date          string
	PendingReview *bool
	Page
}

// ListCanonicals returns the matching canonical records and the total count.
func (s *Store) ListCanonicals(ctx context.Context, q CanonicalQuery) ([]catalogs.Canonical, int64, error) {
	m, err := model(q.EntityType)
	if err != nil {
		return nil, 0, err
	}
	db := s.conn(ctx).Model(m)
	if q.City != "" && q.EntityType != types.EntityArtist {
		db = db.Where("LOWER(city) = ?", strings.ToLower(q.City))
	}
	if q.Search != "" {
		db = db.Where("LOWER("+labelColumn(q.EntityType)+`) LIKE ? ESCAPE '\'`, likePattern(q.Search))
	}
	if q.EntityType == types.EntityEvent {
		if q.State != "" {
			db = db.Where("state = ?", q.State)
		}
		if q.Date != "" {
			db = db.Where("date = ?", q.Date)
		}
	}
	if q.PendingReview != nil {
		db = db.Where("pending_review = ?", *q.PendingReview)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out, err := s.findCanonicals(q.Page.apply(db.Order("id")), q.EntityType)
	return out, total, err
}

// CountCanonicals returns how many canonical records of kind exist.
func (s *Store) CountCanonicals(ctx context.Context, kind types.EntityType) (int64, error) {
	m, err := model(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.conn(ctx).Model(m).Count(&n).Error
	return n, err
}

// CanonicalIDs returns every id of kind in ascending order.
func (s *Store) CanonicalIDs(ctx context.Context, kind types.EntityType) ([]uint, error) {
	m, err := model(kind)
	if err != nil {
		return nil, err
	}
	var ids []uint
	err = s.conn(ctx).Model(m).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// EventsInStates returns events in one of states dated on or before date.
func (s *Store) EventsInStates(ctx context.Context, states []types.EventState, onOrBefore string) ([]catalogs.Event, error) {
	var out []catalogs.Event
	err := s.conn(ctx).
		Where("state IN ?", states).
		Where("date <> '' AND date <= ?", onOrBefore).
		Order("date, id").
		Find(&out).Error
	return out, err
}
