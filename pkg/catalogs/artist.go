package catalogs

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/agentstation/lineup/pkg/types"
)

// Artist is a canonical artist. Artists are not scoped to a city.
type Artist struct {
	ID            uint                                 `gorm:"primaryKey" json:"id"`
	Name          string                               `gorm:"size:512;not null" json:"name"`
	Description   string                               `gorm:"type:text" json:"description,omitempty"`
	Country       string                               `gorm:"size:128" json:"country,omitempty"`
	Website       string                               `gorm:"size:1024" json:"website,omitempty"`
	ImageURL      string                               `gorm:"size:1024" json:"image_url,omitempty"`
	PendingReview bool                                 `gorm:"not null;default:false;index" json:"pending_review"`
	Provenance    datatypes.JSONType[ArtistProvenance] `json:"provenance"`
	CreatedAt     time.Time                            `json:"created_at"`
	UpdatedAt     time.Time                            `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (Artist) TableName() string { return "artists" }

// Kind implements Canonical.
func (*Artist) Kind() types.EntityType { return types.EntityArtist }

// Key implements Canonical.
func (a *Artist) Key() uint { return a.ID }

// Label implements Canonical.
func (a *Artist) Label() string { return a.Name }

// Scope implements Canonical.
func (*Artist) Scope() string { return "" }

// Created implements Canonical.
func (a *Artist) Created() time.Time { return a.CreatedAt }

// Pending implements Canonical.
func (a *Artist) Pending() bool { return a.PendingReview }

// SetPending implements Canonical.
func (a *Artist) SetPending(v bool) { a.PendingReview = v }

// Value implements Canonical.
func (a *Artist) Value(f types.Field) string {
	switch f {
	case types.FieldName:
		return a.Name
	case types.FieldDescription:
		return a.Description
	case types.FieldCountry:
		return a.Country
	case types.FieldWebsite:
		return a.Website
	case types.FieldImageURL:
		return a.ImageURL
	}
	return ""
}

// SetValue implements Canonical.
func (a *Artist) SetValue(f types.Field, v string) error {
	v = strings.TrimSpace(v)
	switch f {
	case types.FieldName:
		a.Name = v
	case types.FieldDescription:
		a.Description = v
	case types.FieldCountry:
		a.Country = v
	case types.FieldWebsite:
		a.Website = v
	case types.FieldImageURL:
		a.ImageURL = v
	default:
		return unknownField(types.EntityArtist, f)
	}
	return nil
}

// Owner implements Canonical.
func (a *Artist) Owner(f types.Field) types.SourceTag {
	p := a.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		return *slot
	}
	return ""
}

// SetOwner implements Canonical.
func (a *Artist) SetOwner(f types.Field, tag types.SourceTag) {
	p := a.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		*slot = tag
		a.Provenance = datatypes.NewJSONType(p)
	}
}

// Completeness implements Canonical.
func (a *Artist) Completeness() int {
	return countSet(a.Description, a.ImageURL, a.Website, a.Country)
}
