package types

// Field names a canonical attribute that carries its own provenance.
type Field string

// Fields shared by more than one entity type.
const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldImageURL    Field = "image_url"
	FieldWebsite     Field = "website"
	FieldCity        Field = "city"
	FieldCountry     Field = "country"
)

// Event fields.
const (
	FieldTitle     Field = "title"
	FieldDate      Field = "date"
	FieldStartTime Field = "start_time"
	FieldVenue     Field = "venue"
	FieldTicketURL Field = "ticket_url"
)

// Venue fields.
const (
	FieldAddress     Field = "address"
	FieldPostalCode  Field = "postal_code"
	FieldCoordinates Field = "coordinates"
)

// String returns the string representation of a field.
func (f Field) String() string {
	return string(f)
}

// EventFields lists the provenance-tracked fields of an event.
func EventFields() []Field {
	return []Field{FieldTitle, FieldDescription, FieldDate, FieldStartTime, FieldVenue, FieldCity, FieldImageURL, FieldTicketURL}
}

// VenueFields lists the provenance-tracked fields of a venue.
func VenueFields() []Field {
	return []Field{FieldName, FieldDescription, FieldAddress, FieldCity, FieldCountry, FieldPostalCode, FieldCoordinates, FieldWebsite, FieldImageURL}
}

// ArtistFields lists the provenance-tracked fields of an artist.
func ArtistFields() []Field {
	return []Field{FieldName, FieldDescription, FieldCountry, FieldWebsite, FieldImageURL}
}

// FieldsOf returns the provenance-tracked fields of an entity type.
func FieldsOf(t EntityType) []Field {
	switch t {
	case EntityEvent:
		return EventFields()
	case EntityVenue:
		return VenueFields()
	case EntityArtist:
		return ArtistFields()
	}
	return nil
}

// HasField reports whether f is tracked for entity type t.
func HasField(t EntityType, f Field) bool {
	for _, candidate := range FieldsOf(t) {
		if candidate == f {
			return true
		}
	}
	return false
}
