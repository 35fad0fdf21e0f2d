package catalogs

import (
	"fmt"
	"time"

	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Canonical is the behaviour shared by Event, Venue and Artist.
type Canonical interface {
	// Kind returns the entity type.
	Kind() types.EntityType
	// Key returns the primary key.
	Key() uint
	// Label returns the primary label used for matching (title or name).
	Label() string
	// Scope returns the city the record is scoped to, "" for artists.
	Scope() string
	// Created returns the creation time used for tie-breaking.
	Created() time.Time

	// Value returns the string form of a tracked field.
	Value(f types.Field) string
	// SetValue parses and stores a tracked field.
	SetValue(f types.Field, v string) error
	// Owner returns the provenance tag of a field.
	Owner(f types.Field) types.SourceTag
	// SetOwner records the provenance tag of a field.
	SetOwner(f types.Field, tag types.SourceTag)

	// Completeness counts populated important fields.
	Completeness() int
	// Pending reports whether linked raws carry unreviewed changes.
	Pending() bool
	// SetPending records whether linked raws carry unreviewed changes.
	SetPending(bool)
}

// New returns an empty canonical record of kind.
func New(kind types.EntityType) (Canonical, error) {
	switch kind {
	case types.EntityEvent:
		return &Event{}, nil
	case types.EntityVenue:
		return &Venue{}, nil
	case types.EntityArtist:
		return &Artist{}, nil
	}
	return nil, errors.NewValidationError("entity_type", kind, "unknown entity type")
}

// Ref renders a canonical reference such as "venue:12".
func Ref(c Canonical) string {
	return fmt.Sprintf("%s:%d", c.Kind(), c.Key())
}

// Values returns every tracked field value of c.
func Values(c Canonical) map[types.Field]string {
	out := make(map[types.Field]string)
	for _, f := range types.FieldsOf(c.Kind()) {
		out[f] = c.Value(f)
	}
	return out
}

// Owners returns the provenance tag of every tracked field that has one.
func Owners(c Canonical) map[types.Field]types.SourceTag {
	out := make(map[types.Field]types.SourceTag)
	for _, f := range types.FieldsOf(c.Kind()) {
		if tag := c.Owner(f); tag != "" {
			out[f] = tag
		}
	}
	return out
}

// countSet counts the non-empty values.
func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

func unknownField(kind types.EntityType, f types.Field) error {
	return errors.NewValidationError(string(f), nil, fmt.Sprintf("not a %s field", kind))
}
