package enhancer

import (
	"context"
	"strconv"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/reconciler"
	"github.com/agentstation/lineup/pkg/types"
)

// Default enhancer priorities.
const (
	VenueAddressPriority = 100
	EventVenuePriority   = 100
	EventCityPriority    = 50
)

// Defaults returns the built-in enhancers.
func Defaults(m *matcher.Matcher, n *normalize.Normalizer) []Enhancer {
	return []Enhancer{
		NewVenueAddressEnhancer(n, VenueAddressPriority),
		NewEventVenueEnhancer(m, EventVenuePriority),
		NewEventCityEnhancer(EventCityPriority),
	}
}

// VenueAddressEnhancer derives a venue's postal code from its address.
type VenueAddressEnhancer struct {
	norm     *normalize.Normalizer
	priority int
}

// NewVenueAddressEnhancer creates a new venue address enhancer
func NewVenueAddressEnhancer(n *normalize.Normalizer, priority int) *VenueAddressEnhancer {
	if n == nil {
		n = normalize.New()
	}
	return &VenueAddressEnhancer{norm: n, priority: priority}
}

// Name returns the enhancer name
func (e *VenueAddressEnhancer) Name() string { return "venue-address" }

// Priority returns the priority
func (e *VenueAddressEnhancer) Priority() int { return e.priority }

// CanEnhance checks if this enhancer can enhance a record
func (e *VenueAddressEnhancer) CanEnhance(c catalogs.Canonical) bool {
	return c.Kind() == types.EntityVenue &&
		c.Value(types.FieldPostalCode) == "" &&
		c.Value(types.FieldAddress) != ""
}

// Enhance extracts the postal code.
func (e *VenueAddressEnhancer) Enhance(_ context.Context, _ *store.Store, c catalogs.Canonical) (map[types.Field]string, error) {
	addr := e.norm.Address(c.Value(types.FieldAddress), normalize.Hints{
		City:    c.Value(types.FieldCity),
		Country: c.Value(types.FieldCountry),
	})
	if addr.PostalCode == "" {
		return nil, nil
	}
	return map[types.Field]string{types.FieldPostalCode: addr.PostalCode}, nil
}

// EventVenueEnhancer resolves a missing venue reference from the venue
// names the linked raw records report, primary first. It picks up venues
// that were created after the event was matched.
type EventVenueEnhancer struct {
	matcher  *matcher.Matcher
	priority int
}

// NewEventVenueEnhancer creates a new event venue enhancer
func NewEventVenueEnhancer(m *matcher.Matcher, priority int) *EventVenueEnhancer {
	if m == nil {
		m = matcher.New()
	}
	return &EventVenueEnhancer{matcher: m, priority: priority}
}

// Name returns the enhancer name
func (e *EventVenueEnhancer) Name() string { return "event-venue" }

// Priority returns the priority
func (e *EventVenueEnhancer) Priority() int { return e.priority }

// CanEnhance checks if this enhancer can enhance a record
func (e *EventVenueEnhancer) CanEnhance(c catalogs.Canonical) bool {
	return c.Kind() == types.EntityEvent && c.Value(types.FieldVenue) == ""
}

// Enhance resolves the venue.
func (e *EventVenueEnhancer) Enhance(ctx context.Context, tx *store.Store, c catalogs.Canonical) (map[types.Field]string, error) {
	links, err := tx.LinksFor(ctx, types.EntityEvent, c.Key())
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		raw, err := tx.GetRaw(ctx, link.RawID)
		if err != nil {
			return nil, err
		}
		name := raw.Data().Venue
		if name == "" {
			continue
		}
		city := c.Scope()
		if city == "" {
			city = reconciler.CityOf(raw)
		}
		venue, ok, err := reconciler.ResolveVenue(ctx, tx, e.matcher, city, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return map[types.Field]string{
				types.FieldVenue: strconv.FormatUint(uint64(venue.Key()), 10),
			}, nil
		}
	}
	return nil, nil
}

// EventCityEnhancer copies the city of an event's venue onto the event.
type EventCityEnhancer struct {
	priority int
}

// NewEventCityEnhancer creates a new event city enhancer
func NewEventCityEnhancer(priority int) *EventCityEnhancer {
	return &EventCityEnhancer{priority: priority}
}

// Name returns the enhancer name
func (e *EventCityEnhancer) Name() string { return "event-city" }

// Priority returns the priority
func (e *EventCityEnhancer) Priority() int { return e.priority }

// CanEnhance checks if this enhancer can enhance a record
func (e *EventCityEnhancer) CanEnhance(c catalogs.Canonical) bool {
	return c.Kind() == types.EntityEvent &&
		c.Value(types.FieldCity) == "" &&
		c.Value(types.FieldVenue) != ""
}

// Enhance looks up the venue.
func (e *EventCityEnhancer) Enhance(ctx context.Context, tx *store.Store, c catalogs.Canonical) (map[types.Field]string, error) {
	id, err := strconv.ParseUint(c.Value(types.FieldVenue), 10, 64)
	if err != nil {
		return nil, err
	}
	venue, err := tx.GetCanonical(ctx, types.EntityVenue, uint(id))
	if err != nil {
		return nil, err
	}
	return map[types.Field]string{types.FieldCity: venue.Scope()}, nil
}
