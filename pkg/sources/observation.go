package sources

import (
	"strings"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Observation is one record as a source lists it.
type Observation struct {
	EntityType  types.EntityType `json:"entity_type" yaml:"entity_type"`
	Source      types.SourceTag  `json:"source,omitempty" yaml:"source,omitempty"`
	SourceID    string           `json:"source_id" yaml:"source_id"`
	Name        string           `json:"name" yaml:"name"`
	Date        string           `json:"date,omitempty" yaml:"date,omitempty"`
	StartTime   string           `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	Venue       string           `json:"venue,omitempty" yaml:"venue,omitempty"`
	Address     string           `json:"address,omitempty" yaml:"address,omitempty"`
	City        string           `json:"city,omitempty" yaml:"city,omitempty"`
	Country     string           `json:"country,omitempty" yaml:"country,omitempty"`
	PostalCode  string           `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	Latitude    *float64         `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Website     string           `json:"website,omitempty" yaml:"website,omitempty"`
	TicketURL   string           `json:"ticket_url,omitempty" yaml:"ticket_url,omitempty"`
	Images      []string         `json:"images,omitempty" yaml:"images,omitempty"`
	Artists     []string         `json:"artists,omitempty" yaml:"artists,omitempty"`
}

// Validate checks the observation can be stored as a raw record.
func (o Observation) Validate() error {
	if !o.EntityType.IsValid() {
		return errors.NewValidationError("entity_type", o.EntityType, "unknown entity type")
	}
	if strings.TrimSpace(o.SourceID) == "" {
		return errors.NewValidationError("source_id", o.SourceID, "cannot be empty")
	}
	if strings.TrimSpace(o.Name) == "" {
		return errors.NewValidationError("name", o.Name, "cannot be empty")
	}
	if (o.Latitude == nil) != (o.Longitude == nil) {
		return errors.NewValidationError("coordinates", o.Latitude, "latitude and longitude go together")
	}
	if o.EntityType == types.EntityEvent {
		if err := catalogs.ValidateDate(o.Date); err != nil {
			return err
		}
		return catalogs.ValidateTime(o.StartTime)
	}
	return nil
}

// Fields projects the observation onto the raw payload of its entity type.
// Only the first image is kept.
func (o Observation) Fields() catalogs.Fields {
	f := catalogs.Fields{
		Name:        strings.TrimSpace(o.Name),
		Description: strings.TrimSpace(o.Description),
		Date:        o.Date,
		StartTime:   o.StartTime,
		Venue:       strings.TrimSpace(o.Venue),
		Address:     strings.TrimSpace(o.Address),
		City:        strings.TrimSpace(o.City),
		Country:     strings.TrimSpace(o.Country),
		PostalCode:  strings.TrimSpace(o.PostalCode),
		Latitude:    o.Latitude,
		Longitude:   o.Longitude,
		Website:     strings.TrimSpace(o.Website),
		TicketURL:   strings.TrimSpace(o.TicketURL),
	}
	for _, img := range o.Images {
		if img = strings.TrimSpace(img); img != "" {
			f.ImageURL = img
			break
		}
	}
	for _, a := range o.Artists {
		if a = strings.TrimSpace(a); a != "" {
			f.Artists = append(f.Artists, a)
		}
	}
	return project(o.EntityType, f)
}

// project clears what kind does not track. Events keep the observed venue
// name and line-up for resolution during matching.
func project(kind types.EntityType, f catalogs.Fields) catalogs.Fields {
	switch kind {
	case types.EntityEvent:
		f.Address, f.Country, f.PostalCode, f.Website = "", "", "", ""
		f.Latitude, f.Longitude = nil, nil
	case types.EntityVenue:
		f.Date, f.StartTime, f.Venue, f.TicketURL = "", "", "", ""
		f.Artists = nil
	case types.EntityArtist:
		f = catalogs.Fields{
			Name:        f.Name,
			Description: f.Description,
			Country:     f.Country,
			Website:     f.Website,
			ImageURL:    f.ImageURL,
		}
	}
	return f
}
