package types

import (
	"fmt"
	"strings"
)

// EntityType identifies the kind of real-world entity a record describes.
type EntityType string

const (
	// EntityEvent is a dated happening at a venue (a concert, a club night).
	EntityEvent EntityType = "event"

	// EntityVenue is a physical place events happen at.
	EntityVenue EntityType = "venue"

	// EntityArtist is a performer appearing on event line-ups.
	EntityArtist EntityType = "artist"
)

// EntityTypes returns every entity type in processing order.
func EntityTypes() []EntityType {
	return []EntityType{EntityVenue, EntityArtist, EntityEvent}
}

// String returns the string representation of an entity type.
func (t EntityType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the defined entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityEvent, EntityVenue, EntityArtist:
		return true
	}
	return false
}

// ParseEntityType parses a user-supplied entity type. Plurals are accepted.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}
