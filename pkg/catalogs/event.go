package catalogs

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Event is a canonical event.
type Event struct {
	ID            uint                                `gorm:"primaryKey" json:"id"`
	Title         string                              `gorm:"size:512;not null" json:"title"`
	Description   string                              `gorm:"type:text" json:"description,omitempty"`
	Date          string                              `gorm:"size:10;index" json:"date,omitempty"`
	StartTime     string                              `gorm:"size:5" json:"start_time,omitempty"`
	VenueID       *uint                               `gorm:"index" json:"venue_id,omitempty"`
	City          string                              `gorm:"size:128;index" json:"city,omitempty"`
	ImageURL      string                              `gorm:"size:1024" json:"image_url,omitempty"`
	TicketURL     string                              `gorm:"size:1024" json:"ticket_url,omitempty"`
	State         types.EventState                    `gorm:"size:32;not null;index" json:"state"`
	PendingReview bool                                `gorm:"not null;default:false;index" json:"pending_review"`
	Provenance    datatypes.JSONType[EventProvenance] `json:"provenance"`
	CreatedAt     time.Time                           `json:"created_at"`
	UpdatedAt     time.Time                           `json:"updated_at"`
}

// TableName implements gorm's tabler.
func (Event) TableName() string { return "events" }

// Kind implements Canonical.
func (*Event) Kind() types.EntityType { return types.EntityEvent }

// Key implements Canonical.
func (e *Event) Key() uint { return e.ID }

// Label implements Canonical.
func (e *Event) Label() string { return e.Title }

// Scope implements Canonical.
func (e *Event) Scope() string { return e.City }

// Created implements Canonical.
func (e *Event) Created() time.Time { return e.CreatedAt }

// Pending implements Canonical.
func (e *Event) Pending() bool { return e.PendingReview }

// SetPending implements Canonical.
func (e *Event) SetPending(v bool) { e.PendingReview = v }

// Value implements Canonical.
func (e *Event) Value(f types.Field) string {
	switch f {
	case types.FieldTitle, types.FieldName:
		return e.Title
	case types.FieldDescription:
		return e.Description
	case types.FieldDate:
		return e.Date
	case types.FieldStartTime:
		return e.StartTime
	case types.FieldVenue:
		if e.VenueID == nil {
			return ""
		}
		return strconv.FormatUint(uint64(*e.VenueID), 10)
	case types.FieldCity:
		return e.City
	case types.FieldImageURL:
		return e.ImageURL
	case types.FieldTicketURL:
		return e.TicketURL
	}
	return ""
}

// SetValue implements Canonical.
func (e *Event) SetValue(f types.Field, v string) error {
	v = strings.TrimSpace(v)
	switch f {
	case types.FieldTitle, types.FieldName:
		e.Title = v
	case types.FieldDescription:
		e.Description = v
	case types.FieldDate:
		if err := ValidateDate(v); err != nil {
			return err
		}
		e.Date = v
	case types.FieldStartTime:
		if err := ValidateTime(v); err != nil {
			return err
		}
		e.StartTime = v
	case types.FieldVenue:
		if v == "" {
			e.VenueID = nil
			return nil
		}
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return errors.NewValidationError(string(f), v, "not a venue id")
		}
		venueID := uint(id)
		e.VenueID = &venueID
	case types.FieldCity:
		e.City = v
	case types.FieldImageURL:
		e.ImageURL = v
	case types.FieldTicketURL:
		e.TicketURL = v
	default:
		return unknownField(types.EntityEvent, f)
	}
	return nil
}

// Owner implements Canonical.
func (e *Event) Owner(f types.Field) types.SourceTag {
	p := e.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		return *slot
	}
	return ""
}

// SetOwner implements Canonical.
func (e *Event) SetOwner(f types.Field, tag types.SourceTag) {
	p := e.Provenance.Data()
	if slot := p.slot(f); slot != nil {
		*slot = tag
		e.Provenance = datatypes.NewJSONType(p)
	}
}

// Completeness implements Canonical.
func (e *Event) Completeness() int {
	return countSet(e.Value(types.FieldVenue), e.StartTime, e.Description, e.ImageURL, e.TicketURL)
}

// StartsAt returns when the event begins in loc. Events without a start
// time are treated as lasting until the end of their day.
func (e *Event) StartsAt(loc *time.Location) (time.Time, bool) {
	day, err := time.ParseInLocation(constants.DateFormat, e.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	if e.StartTime == "" {
		return day.AddDate(0, 0, 1), true
	}
	clock, err := time.Parse(constants.TimeFormat, e.StartTime)
	if err != nil {
		return day.AddDate(0, 0, 1), true
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), true
}

// EventArtist places an artist on an event's line-up.
type EventArtist struct {
	EventID  uint            `gorm:"primaryKey" json:"event_id"`
	ArtistID uint            `gorm:"primaryKey;index" json:"artist_id"`
	Source   types.SourceTag `gorm:"size:64" json:"source"`
}

// TableName implements gorm's tabler.
func (EventArtist) TableName() string { return "event_artists" }

// ValidateDate accepts "" or a YYYY-MM-DD date.
func ValidateDate(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(constants.DateFormat, v); err != nil {
		return errors.NewValidationError(string(types.FieldDate), v, "expected YYYY-MM-DD")
	}
	return nil
}

// ValidateTime accepts "" or an HH:MM time.
func ValidateTime(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(constants.TimeFormat, v); err != nil {
		return errors.NewValidationError(string(types.FieldStartTime), v, "expected HH:MM")
	}
	return nil
}
