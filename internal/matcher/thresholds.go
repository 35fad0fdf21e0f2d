package matcher

import (
	"fmt"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Thresholds are the minimum scores for a match, per entity type and mode.
// Deduplication is never looser than linking for venues and artists.
type Thresholds struct {
	VenueLink    float64 `json:"venue_link" yaml:"venue_link" mapstructure:"venue_link"`
	VenueDedupe  float64 `json:"venue_dedupe" yaml:"venue_dedupe" mapstructure:"venue_dedupe"`
	ArtistLink   float64 `json:"artist_link" yaml:"artist_link" mapstructure:"artist_link"`
	ArtistDedupe float64 `json:"artist_dedupe" yaml:"artist_dedupe" mapstructure:"artist_dedupe"`
	EventLink    float64 `json:"event_link" yaml:"event_link" mapstructure:"event_link"`
	EventDedupe  float64 `json:"event_dedupe" yaml:"event_dedupe" mapstructure:"event_dedupe"`
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VenueLink:    constants.VenueLinkThreshold,
		VenueDedupe:  constants.VenueDedupeThreshold,
		ArtistLink:   constants.ArtistLinkThreshold,
		ArtistDedupe: constants.ArtistDedupeThreshold,
		EventLink:    constants.EventLinkThreshold,
		EventDedupe:  constants.EventDedupeThreshold,
	}
}

// For returns the threshold of kind in mode. Unknown kinds get 1.
func (t Thresholds) For(kind types.EntityType, mode Mode) float64 {
	switch kind {
	case types.EntityVenue:
		if mode == Dedupe {
			return t.VenueDedupe
		}
		return t.VenueLink
	case types.EntityArtist:
		if mode == Dedupe {
			return t.ArtistDedupe
		}
		return t.ArtistLink
	case types.EntityEvent:
		if mode == Dedupe {
			return t.EventDedupe
		}
		return t.EventLink
	}
	return 1
}

// Validate checks every threshold lies in (0, 1] and that dedupe is at least
// as strict as linking for venues and artists.
func (t Thresholds) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"venue_link", t.VenueLink},
		{"venue_dedupe", t.VenueDedupe},
		{"artist_link", t.ArtistLink},
		{"artist_dedupe", t.ArtistDedupe},
		{"event_link", t.EventLink},
		{"event_dedupe", t.EventDedupe},
	}
	for _, n := range named {
		if n.value <= 0 || n.value > 1 {
			return errors.NewValidationError(n.name, n.value, "threshold must be in (0, 1]")
		}
	}
	if t.VenueDedupe < t.VenueLink {
		return errors.NewValidationError("venue_dedupe", t.VenueDedupe, fmt.Sprintf("looser than venue_link %.2f", t.VenueLink))
	}
	if t.ArtistDedupe < t.ArtistLink {
		return errors.NewValidationError("artist_dedupe", t.ArtistDedupe, fmt.Sprintf("looser than artist_link %.2f", t.ArtistLink))
	}
	return nil
}
