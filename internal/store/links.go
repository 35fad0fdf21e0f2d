package store

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agentstation/lineup/pkg/catalogs"
	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
	"github.com/agentstation/utc"
)

// InsertLink inserts link unless its raw id is already linked. It reports
// whether a row was written.
func (s *Store) InsertLink(ctx context.Context, link *catalogs.Link) (bool, error) {
	if link.LastSyncedAt.IsZero() {
		link.LastSyncedAt = utc.Now().Time
	}
	res := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "raw_id"}}, DoNothing: true}).
		Create(link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LinkForRaw returns the link of a raw record.
func (s *Store) LinkForRaw(ctx context.Context, rawID uint) (*catalogs.Link, error) {
	var link catalogs.Link
	err := s.conn(ctx).Where("raw_id = ?", rawID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("link", "raw:"+strconv.FormatUint(uint64(rawID), 10))
	}
	return &link, err
}

// LinksFor returns every link of a canonical record, primary first.
func (s *Store) LinksFor(ctx context.Context, kind types.EntityType, canonicalID uint) ([]catalogs.Link, error) {
	var links []catalogs.Link
	err := s.conn(ctx).
		Where("entity_type = ? AND canonical_id = ?", kind, canonicalID).
		Order("is_primary DESC, id").
		Find(&links).Error
	return links, err
}

// SetPrimary makes linkID the only primary link of its canonical record.
func (s *Store) SetPrimary(ctx context.Context, kind types.EntityType, canonicalID, linkID uint) error {
	db := s.conn(ctx)
	if err := db.Model(&catalogs.Link{}).
		Where("entity_type = ? AND canonical_id = ? AND id <> ? AND is_primary = ?", kind, canonicalID, linkID, true).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	return db.Model(&catalogs.Link{}).Where("id = ?", linkID).Update("is_primary", true).Error
}

// TouchLink records a sync of the link.
func (s *Store) TouchLink(ctx context.Context, linkID uint) error {
	return s.conn(ctx).Model(&catalogs.Link{}).Where("id = ?", linkID).Update("last_synced_at", utc.Now().Time).Error
}

// RepointLinks moves every link of from onto to. Moved links are demoted
// when to already has a primary link.
func (s *Store) RepointLinks(ctx context.Context, kind types.EntityType, from, to uint) (int64, error) {
	db := s.conn(ctx)
	var primaries int64
	if err := db.Model(&catalogs.Link{}).
		Where("entity_type = ? AND canonical_id = ? AND is_primary = ?", kind, to, true).
		Count(&primaries).Error; err != nil {
		return 0, err
	}
	updates := map[string]any{"canonical_id": to}
	if primaries > 0 {
		updates["is_primary"] = false
	}
	res := db.Model(&catalogs.Link{}).
		Where("entity_type = ? AND canonical_id = ?", kind, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// DeleteLink removes the link of a raw record.
func (s *Store) DeleteLink(ctx context.Context, rawID uint) (*catalogs.Link, error) {
	link, err := s.LinkForRaw(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if err := s.conn(ctx).Delete(&catalogs.Link{}, link.ID).Error; err != nil {
		return nil, err
	}
	return link, nil
}
