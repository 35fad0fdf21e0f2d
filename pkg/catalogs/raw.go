package catalogs

import (
	"time"

	"gorm.io/datatypes"

	"github.com/agentstation/lineup/pkg/types"
)

// RawRecord is one ingested observation of an entity from one source.
//
// Fields are overwritten only by a re-scrape, which bumps Version. The
// match phase folds every raw whose Version is ahead of SyncedVersion into
// its canonical record, comparing against Synced, the payload as of the
// last fold.
type RawRecord struct {
	ID            uint                       `gorm:"primaryKey" json:"id"`
	EntityType    types.EntityType           `gorm:"size:16;not null;uniqueIndex:ux_raw_source_native,priority:1" json:"entity_type"`
	Source        types.SourceTag            `gorm:"size:64;not null;uniqueIndex:ux_raw_source_native,priority:2" json:"source"`
	SourceID      string                     `gorm:"size:255;not null;uniqueIndex:ux_raw_source_native,priority:3" json:"source_id"`
	City          string                     `gorm:"size:128;index" json:"city,omitempty"`
	Label         string                     `gorm:"size:512" json:"label"`
	Fields        datatypes.JSONType[Fields] `json:"fields"`
	ContentHash   string                     `gorm:"size:64" json:"content_hash"`
	Version       int                        `gorm:"not null;default:1" json:"version"`
	SyncedVersion int                        `gorm:"not null;default:0" json:"synced_version"`
	Synced        datatypes.JSONType[Fields] `json:"-"`
	HasChanges    bool                       `gorm:"not null;default:false;index" json:"has_changes"`
	Diff          datatypes.JSONType[Diff]   `json:"diff,omitempty"`
	Dismissed     bool                       `gorm:"not null;default:false" json:"dismissed"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (RawRecord) TableName() string { return "raw_records" }

// Data returns the decoded field payload.
func (r *RawRecord) Data() Fields {
	return r.Fields.Data()
}

// SetData replaces the field payload and the denormalized label.
func (r *RawRecord) SetData(f Fields) {
	r.Fields = datatypes.NewJSONType(f)
	r.Label = f.Name
}

// Changes returns a copy of the pending diff, never nil.
func (r *RawRecord) Changes() Diff {
	out := Diff{}
	for f, c := range r.Diff.Data() {
		out[f] = c
	}
	return out
}

// SetChanges stores d and keeps HasChanges in step with it.
func (r *RawRecord) SetChanges(d Diff) {
	if len(d) == 0 {
		r.Diff = datatypes.NewJSONType(Diff(nil))
		r.HasChanges = false
		return
	}
	r.Diff = datatypes.NewJSONType(d)
	r.HasChanges = true
}

// MarkSynced records the current payload as folded.
func (r *RawRecord) MarkSynced() {
	r.Synced = datatypes.NewJSONType(r.Fields.Data())
	r.SyncedVersion = r.Version
}

// ChangedFields returns kind's tracked fields whose value differs between
// the last folded payload and the current one. The event venue is compared
// by observed venue name.
func (r *RawRecord) ChangedFields() []types.Field {
	prev, cur := r.Synced.Data(), r.Fields.Data()
	var out []types.Field
	for _, f := range types.FieldsOf(r.EntityType) {
		if prev.Get(f) != cur.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

// Pending reports whether the raw's Version has not been folded yet.
func (r *RawRecord) Pending() bool {
	return r.Version > r.SyncedVersion
}

// IsCurated reports whether the raw is the synthetic curator record.
func (r *RawRecord) IsCurated() bool {
	return r.Source == types.Curated
}

// Change is one flagged field difference.
type Change struct {
	Old string `json:"old"` // canonical value when flagged
	New string `json:"new"` // value observed at the source
}

// Diff maps fields to their flagged change.
type Diff map[types.Field]Change

// Fields returns the diff's fields in the entity's field order.
func (d Diff) Fields(kind types.EntityType) []types.Field {
	var out []types.Field
	for _, f := range types.FieldsOf(kind) {
		if _, ok := d[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
