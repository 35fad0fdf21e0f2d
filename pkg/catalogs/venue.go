package catalogs

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Venue is a canonical venue.
type Venue struct {
	ID            uint                                `gorm:"primaryKey" json:"id"`
	Name          string                              `gorm:"size:512;not null" json:"name"`
	Description   string                              `gorm:"type:text" json:"description,omitempty"`
	Address       string                              `gorm:"size:512" json:"address,omitempty"`
	City          string                              `gorm:"size:128;index" json:"city,omitempty"`
	Country       string                              `gorm:"size:128" json:"country,omitempty"`
	PostalCode    string                              `gorm:"size:16" json:"postal_code,omitempty"`
	Latitude      *float64                            `json:"latitude,omitempty"`
	Longitude     *float64                            `json:"longitude,omitempty"`
	Website       string                              `gorm:"size:1024" json:"website,omitempty"`
	ImageURL      string                              `gorm:"size:1024" json:"image_url,omitempty"`
	PendingReview bool                                `gorm:"not null;default:false;index" json:"pending_review"`
	Provenance    datatypes.JSONType[VenueProvenance] `json:"provenance"`
	CreatedAt     time.Time                           `json:"created_at"`
	UpdatedAt     time.Time                           `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (Venue) TableName() string { return "venues" }

// Kind implements Canonical.
func (*Venue) Kind() types.EntityType { return types.EntityVenue }

// Key implements Canonical.
func (v *Venue) Key() uint { return v.ID }

// Label implements Canonical.
func (v *Venue) Label() string { return v.Name }

// Scope implements Canonical.
func (v *Venue) Scope() string { return v.City }

// Created implements Canonical.
func (v *Venue) Created() time.Time { return v.CreatedAt }

// Pending implements Canonical.
func (v *Venue) Pending() bool { return v.PendingReview }

// SetPending implements Canonical.
func (v *Venue) SetPending(p bool) { v.PendingReview = p }

// Value implements Canonical.
func (v *Venue) Value(f types.Field) string {
	switch f {
	case types.FieldName:
		return v.Name
	case types.FieldDescription:
		return v.Description
	case types.FieldAddress:
		return v.Address
	case types.FieldCity:
		return v.City
	case types.FieldCountry:
		return v.Country
	case types.FieldPostalCode:
		return v.PostalCode
	case types.FieldCoordinates:
		return FormatCoordinates(v.Latitude, v.Longitude)
	case types.FieldWebsite:
		return v.Website
	case types.FieldImageURL:
		return v.ImageURL
	}
	return ""
}

// SetValue implements Canonical.
func (v *Venue) SetValue(f types.Field, s string) error {
	s = strings.TrimSpace(s)
	switch f {
	case types.FieldName:
		v.Name = s
	case types.FieldDescription:
		v.Description = s
	case types.FieldAddress:
		v.Address = s
	case types.FieldCity:
		v.City = s
	case types.FieldCountry:
		v.Country = s
	case types.FieldPostalCode:
		v.PostalCode = s
	case types.FieldCoordinates:
		lat, lng, err := ParseCoordinates(s)
		if err != nil {
			return errors.NewValidationError(string(f), s, "expected lat,lng")
		}
		v.Latitude, v.Longitude = lat, lng
	case types.FieldWebsite:
		v.Website = s
	case types.FieldImageURL:
		v.ImageURL = s
	default:
		return unknownField(types.EntityVenue, f)
	}
	return nil
}

// Owner implements Canonical.
func (v *Venue) Owner(f types.Field) types.SourceTag {
	p := v.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		return *slot
	}
	return ""
}

// SetOwner implements Canonical.
func (v *Venue) SetOwner(f types.Field, tag types.SourceTag) {
	p := v.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		*slot = tag
		v.Provenance = datatypes.NewJSONType(p)
	}
}

// Completeness implements Canonical.
func (v *Venue) Completeness() int {
	return countSet(v.Value(types.FieldCoordinates), v.Address, v.PostalCode, v.Website, v.ImageURL)
}
