package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentstation/lineup/pkg/catalogs"
	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// UpsertOutcome reports what UpsertRaw did.
type UpsertOutcome int

// Upsert outcomes.
const (
	RawUnchanged UpsertOutcome = iota
	RawCreated
	RawUpdated
)

// RawInput is one observation to store.
type RawInput struct {
	EntityType types.EntityType
	Source     types.SourceTag
	SourceID   string
	City       string
	Fields     catalogs.Fields
}

// ContentHash returns the SHA-256 of the payload's JSON encoding.
func ContentHash(f catalogs.Fields) string {
	b, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// UpsertRaw stores an observation keyed by (entity type, source, source id).
// An identical payload is a no-op; a changed payload overwrites the fields
// and bumps the version.
func (s *Store) UpsertRaw(ctx context.Context, in RawInput) (*catalogs.RawRecord, UpsertOutcome, error) {
	hash := ContentHash(in.Fields)

	existing, err := s.FindRawBySource(ctx, in.EntityType, in.Source, in.SourceID)
	if err != nil && !pkgerrors.IsNotFound(err) {
		return nil, RawUnchanged, err
	}

	if existing == nil {
		raw := &catalogs.RawRecord{
			EntityType:  in.EntityType,
			Source:      in.Source,
			SourceID:    in.SourceID,
			City:        in.City,
			ContentHash: hash,
			Version:     1,
		}
		raw.SetData(in.Fields)
		res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(raw)
		if res.Error != nil {
			return nil, RawUnchanged, pkgerrors.WrapResource("create", "raw_record", in.SourceID, res.Error)
		}
		if res.RowsAffected == 1 {
			return raw, RawCreated, nil
		}
		// lost a race with a concurrent insert
		existing, err = s.FindRawBySource(ctx, in.EntityType, in.Source, in.SourceID)
		if err != nil {
			return nil, RawUnchanged, err
		}
	}

	if existing.ContentHash == hash {
		return existing, RawUnchanged, nil
	}
	existing.SetData(in.Fields)
	existing.City = in.City
	existing.ContentHash = hash
	existing.Version++
	if err := s.conn(ctx).Save(existing).Error; err != nil {
		return nil, RawUnchanged, pkgerrors.WrapResource("update", "raw_record", strconv.FormatUint(uint64(existing.ID), 10), err)
	}
	return existing, RawUpdated, nil
}

// GetRaw returns a raw record by id.
func (s *Store) GetRaw(ctx context.Context, id uint) (*catalogs.RawRecord, error) {
	var raw catalogs.RawRecord
	err := s.conn(ctx).First(&raw, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("raw_record", strconv.FormatUint(uint64(id), 10))
	}
	return &raw, err
}

// LockRaw returns a raw record by id, row-locked for the transaction.
func (s *Store) LockRaw(ctx context.Context, id uint) (*catalogs.RawRecord, error) {
	var raw catalogs.RawRecord
	err := s.forUpdate(s.conn(ctx)).First(&raw, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("raw_record", strconv.FormatUint(uint64(id), 10))
	}
	return &raw, err
}

// FindRawBySource returns the raw record a source reported under sourceID.
func (s *Store) FindRawBySource(ctx context.Context, kind types.EntityType, source types.SourceTag, sourceID string) (*catalogs.RawRecord, error) {
	var raw catalogs.RawRecord
	err := s.conn(ctx).
		Where("entity_type = ? AND source = ? AND source_id = ?", kind, source, sourceID).
		First(&raw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("raw_record", string(source)+"/"+sourceID)
	}
	return &raw, err
}

// SaveRaw writes every column of raw.
func (s *Store) SaveRaw(ctx context.Context, raw *catalogs.RawRecord) error {
	return s.conn(ctx).Save(raw).Error
}

// CreateRaw inserts raw as is.
func (s *Store) CreateRaw(ctx context.Context, raw *catalogs.RawRecord) error {
	return s.conn(ctx).Create(raw).Error
}

// PendingRawIDs returns the ids of raws of kind that are unlinked or have
// an unfolded version, oldest first.
func (s *Store) PendingRawIDs(ctx context.Context, kind types.EntityType) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&catalogs.RawRecord{}).
		Where("entity_type = ?", kind).
		Where("source <> ?", types.Curated).
		Where("(version > synced_version OR id NOT IN (?))", s.db.Model(&catalogs.Link{}).Select("raw_id")).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// RawsForCanonical returns every raw linked to a canonical record.
func (s *Store) RawsForCanonical(ctx context.Context, kind types.EntityType, canonicalID uint) ([]catalogs.RawRecord, error) {
	var raws []catalogs.RawRecord
	err := s.conn(ctx).
		Where("id IN (?)", s.db.Model(&catalogs.Link{}).
			Select("raw_id").
			Where("entity_type = ? AND canonical_id = ?", kind, canonicalID)).
		Order("id").
		Find(&raws).Error
	return raws, err
}

// AnyPendingChanges reports whether a canonical record has linked raws with
// undismissed flagged changes, ignoring exceptRaw.
func (s *Store) AnyPendingChanges(ctx context.Context, kind types.EntityType, canonicalID, exceptRaw uint) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&catalogs.RawRecord{}).
		Where("id IN (?)", s.db.Model(&catalogs.Link{}).
			Select("raw_id").
			Where("entity_type = ? AND canonical_id = ?", kind, canonicalID)).
		Where("id <> ? AND has_changes = ? AND dismissed = ?", exceptRaw, true, false).
		Count(&n).Error
	return n > 0, err
}

// PurgeRaw deletes a raw record and its link.
func (s *Store) PurgeRaw(ctx context.Context, id uint) error {
	return s.Tx(ctx, func(tx *Store) error {
		if err := tx.conn(ctx).Where("raw_id = ?", id).Delete(&catalogs.Link{}).Error; err != nil {
			return err
		}
		res := tx.conn(ctx).Delete(&catalogs.RawRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.NewNotFoundError("raw_record", strconv.FormatUint(uint64(id), 10))
		}
		return nil
	})
}

// RawQuery filters ListRaws.
type RawQuery struct {
	EntityType       types.EntityType
	Source           types.SourceTag
	City             string
	Linked           *bool // nil for both
	HasChanges       *bool
	IncludeDismissed bool // only consulted with HasChanges
	Search           string
	Page
}

// ListRaws returns the matching raw records and the total count.
func (s *Store) ListRaws(ctx context.Context, q RawQuery) ([]catalogs.RawRecord, int64, error) {
	db := s.conn(ctx).Model(&catalogs.RawRecord{})
	if q.EntityType != "" {
		db = db.Where("entity_type = ?", q.EntityType)
	}
	if q.Source != "" {
		db = db.Where("source = ?", q.Source)
	}
	if q.City != "" {
		db = db.Where("LOWER(city) = ?", strings.ToLower(q.City))
	}
	if q.Linked != nil {
		links := s.db.Model(&catalogs.Link{}).Select("raw_id")
		if *q.Linked {
			db = db.Where("id IN (?)", links)
		} else {
			db = db.Where("id NOT IN (?)", links)
		}
	}
	if q.HasChanges != nil {
		db = db.Where("has_changes = ?", *q.HasChanges)
		if *q.HasChanges && !q.IncludeDismissed {
			db = db.Where("dismissed = ?", false)
		}
	}
	if q.Search != "" {
		db = db.Where(`LOWER(label) LIKE ? ESCAPE '\'`, likePattern(q.Search))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var raws []catalogs.RawRecord
	err := q.Page.apply(db.Order("id")).Find(&raws).Error
	return raws, total, err
}
