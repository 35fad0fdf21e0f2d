package catalogs

import "github.com/agentstation/lineup/pkg/types"

// EventProvenance holds the owning source of each event field.
type EventProvenance struct {
	Title       types.SourceTag `json:"title,omitempty"`
	Description types.SourceTag `json:"description,omitempty"`
	Date        types.SourceTag `json:"date,omitempty"`
	StartTime   types.SourceTag `json:"start_time,omitempty"`
	Venue       types.SourceTag `json:"venue,omitempty"`
	City        types.SourceTag `json:"city,omitempty"`
	ImageURL    types.SourceTag `json:"image_url,omitempty"`
	TicketURL   types.SourceTag `json:"ticket_url,omitempty"`
}

func (p *EventProvenance) slot(f types.Field) *types.SourceTag {
	switch f {
	case types.FieldTitle, types.FieldName:
		return &p.Title
	case types.FieldDescription:
		return &p.Description
	case types.FieldDate:
		return &p.Date
	case types.FieldStartTime:
		return &p.StartTime
	case types.FieldVenue:
		return &p.Venue
	case types.FieldCity:
		return &p.City
	case types.FieldImageURL:
		return &p.ImageURL
	case types.FieldTicketURL:
		return &p.TicketURL
	}
	return nil
}

// VenueProvenance holds the owning source of each venue field.
type VenueProvenance struct {
	Name        types.SourceTag `json:"name,omitempty"`
	Description types.SourceTag `json:"description,omitempty"`
	Address     types.SourceTag `json:"address,omitempty"`
	City        types.SourceTag `json:"city,omitempty"`
	Country     types.SourceTag `json:"country,omitempty"`
	PostalCode  types.SourceTag `json:"postal_code,omitempty"`
	Coordinates types.SourceTag `json:"coordinates,omitempty"`
	Website     types.SourceTag `json:"website,omitempty"`
	ImageURL    types.SourceTag `json:"image_url,omitempty"`
}

func (p *VenueProvenance) slot(f types.Field) *types.SourceTag {
	switch f {
	case types.FieldName:
		return &p.Name
	case types.FieldDescription:
		return &p.Description
	case types.FieldAddress:
		return &p.Address
	case types.FieldCity:
		return &p.City
	case types.FieldCountry:
		return &p.Country
	case types.FieldPostalCode:
		return &p.PostalCode
	case types.FieldCoordinates:
		return &p.Coordinates
	case types.FieldWebsite:
		return &p.Website
	case types.FieldImageURL:
		return &p.ImageURL
	}
	return nil
}

// ArtistProvenance holds the owning source of each artist field.
type ArtistProvenance struct {
	Name        types.SourceTag `json:"name,omitempty"`
	Description types.SourceTag `json:"description,omitempty"`
	Country     types.SourceTag `json:"country,omitempty"`
	Website     types.SourceTag `json:"website,omitempty"`
	ImageURL    types.SourceTag `json:"image_url,omitempty"`
}

func (p *ArtistProvenance) slot(f types.Field) *types.SourceTag {
	switch f {
	case types.FieldName:
		return &p.Name
	case types.FieldDescription:
		return &p.Description
	case types.FieldCountry:
		return &p.Country
	case types.FieldWebsite:
		return &p.Website
	case types.FieldImageURL:
		return &p.ImageURL
	}
	return nil
}
