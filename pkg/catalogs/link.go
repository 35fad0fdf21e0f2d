package catalogs

import (
	"time"

	"github.com/agentstation/lineup/pkg/types"
)

// Link associates a raw record with the canonical record it describes.
// RawID is unique: a raw record is never linked twice.
type Link struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RawID        uint             `gorm:"not null;uniqueIndex:ux_links_raw" json:"raw_id"`
	EntityType   types.EntityType `gorm:"size:16;not null;index:ix_links_canonical,priority:1" json:"entity_type"`
	CanonicalID  uint             `gorm:"not null;index:ix_links_canonical,priority:2" json:"canonical_id"`
	Source       types.SourceTag  `gorm:"size:64;not null" json:"source"`
	Confidence   float64          `gorm:"not null" json:"confidence"`
	IsPrimary    bool             `gorm:"not null;default:false" json:"is_primary"`
	LastSyncedAt time.Time        `json:"last_synced_at"`
	CreatedAt    time.Time        `json:"created_at"`
}

// TableName implements gorm's tabler.
func (Link) TableName() string { return "links" }
