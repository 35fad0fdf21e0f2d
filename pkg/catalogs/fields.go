package catalogs

import (
	"strconv"
	"strings"

	"github.com/agentstation/lineup/pkg/types"
)

// Fields is the field payload of a raw record as observed at a source.
type Fields struct {
	Name        string   `json:"name,omitempty"` // title for events
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date,omitempty"`       // YYYY-MM-DD
	StartTime   string   `json:"start_time,omitempty"` // HH:MM
	Venue       string   `json:"venue,omitempty"`      // venue name, events only
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	PostalCode  string   `json:"postal_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Website     string   `json:"website,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	TicketURL   string   `json:"ticket_url,omitempty"`
	Artists     []string `json:"artists,omitempty"`
}

// Get returns the string form of a field. For events FieldVenue is the
// venue name as observed, not a canonical reference.
func (f Fields) Get(field types.Field) string {
	switch field {
	case types.FieldName, types.FieldTitle:
		return f.Name
	case types.FieldDescription:
		return f.Description
	case types.FieldDate:
		return f.Date
	case types.FieldStartTime:
		return f.StartTime
	case types.FieldVenue:
		return f.Venue
	case types.FieldAddress:
		return f.Address
	case types.FieldCity:
		return f.City
	case types.FieldCountry:
		return f.Country
	case types.FieldPostalCode:
		return f.PostalCode
	case types.FieldCoordinates:
		return FormatCoordinates(f.Latitude, f.Longitude)
	case types.FieldWebsite:
		return f.Website
	case types.FieldImageURL:
		return f.ImageURL
	case types.FieldTicketURL:
		return f.TicketURL
	}
	return ""
}

// Set stores the string form of a field. Coordinates that do not parse
// clear both halves.
func (f *Fields) Set(field types.Field, v string) {
	switch field {
	case types.FieldName, types.FieldTitle:
		f.Name = v
	case types.FieldDescription:
		f.Description = v
	case types.FieldDate:
		f.Date = v
	case types.FieldStartTime:
		f.StartTime = v
	case types.FieldVenue:
		f.Venue = v
	case types.FieldAddress:
		f.Address = v
	case types.FieldCity:
		f.City = v
	case types.FieldCountry:
		f.Country = v
	case types.FieldPostalCode:
		f.PostalCode = v
	case types.FieldCoordinates:
		f.Latitude, f.Longitude, _ = ParseCoordinates(v)
	case types.FieldWebsite:
		f.Website = v
	case types.FieldImageURL:
		f.ImageURL = v
	case types.FieldTicketURL:
		f.TicketURL = v
	}
}

// Snapshot returns the tracked values of c as a field payload.
func Snapshot(c Canonical) Fields {
	var f Fields
	for _, field := range types.FieldsOf(c.Kind()) {
		f.Set(field, c.Value(field))
	}
	return f
}

// Project returns the values of kind's tracked fields, keyed by field.
// The event venue reference is omitted; it must be resolved against the
// canonical venues first.
func (f Fields) Project(kind types.EntityType) map[types.Field]string {
	out := make(map[types.Field]string)
	for _, field := range types.FieldsOf(kind) {
		if kind == types.EntityEvent && field == types.FieldVenue {
			continue
		}
		out[field] = f.Get(field)
	}
	return out
}

// FormatCoordinates renders a coordinate pair as "lat,lng", or "" when
// either half is missing.
func FormatCoordinates(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return ""
	}
	return strconv.FormatFloat(*lat, 'f', -1, 64) + "," + strconv.FormatFloat(*lng, 'f', -1, 64)
}

// ParseCoordinates parses "lat,lng". The empty string clears both halves.
func ParseCoordinates(s string) (lat, lng *float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return nil, nil, strconv.ErrSyntax
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return nil, nil, err
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return nil, nil, err
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, nil, strconv.ErrRange
	}
	return &la, &lo, nil
}
