package enhancer_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/enhancer"
	"github.com/agentstation/lineup/pkg/types"
)

// testEnhancer is a configurable Enhancer.
type testEnhancer struct {
	name     string
	priority int
	values   map[types.Field]string
	err      error
	calls    *[]string
}

func (e *testEnhancer) Name() string                       { return e.name }
func (e *testEnhancer) Priority() int                      { return e.priority }
func (e *testEnhancer) CanEnhance(catalogs.Canonical) bool { return true }
func (e *testEnhancer) Enhance(context.Context, *store.Store, catalogs.Canonical) (map[types.Field]string, error) {
	*e.calls = append(*e.calls, e.name)
	return e.values, e.err
}

func TestPipeline(t *testing.T) {
	var calls []string
	p := enhancer.NewPipeline(nil,
		&testEnhancer{name: "low", priority: 1, calls: &calls, values: map[types.Field]string{
			types.FieldWebsite: "https://low.example",
		}},
		&testEnhancer{name: "broken", priority: 50, calls: &calls, err: fmt.Errorf("upstream down")},
		&testEnhancer{name: "high", priority: 100, calls: &calls, values: map[types.Field]string{
			types.FieldName:    "Overwritten",
			types.FieldWebsite: "https://high.example",
			types.FieldCountry: "",
		}},
	)

	artist := &catalogs.Artist{Name: "Ellen Allien"}
	artist.SetOwner(types.FieldName, "ra")
	filled := p.Enhance(context.Background(), nil, artist)

	assert.Equal(t, []string{"high", "broken", "low"}, calls)
	assert.Equal(t, []types.Field{types.FieldWebsite}, filled)
	assert.Equal(t, "Ellen Allien", artist.Name, "populated fields are never overwritten")
	assert.Equal(t, "https://high.example", artist.Website)
	assert.Equal(t, types.Enrichment, artist.Owner(types.FieldWebsite))
	assert.Equal(t, types.SourceTag("ra"), artist.Owner(types.FieldName))
	assert.Len(t, p.Enhancers(), 3)
}

func TestVenueAddressEnhancer(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	venue := testutil.Venue(t, s, &catalogs.Venue{Name: "Tresor", City: "Berlin", Address: "Köpenicker Str. 70, 10179 Berlin"})
	bare := testutil.Venue(t, s, &catalogs.Venue{Name: "Kater Blau", City: "Berlin", Address: "Holzmarktstraße 25"})

	p := enhancer.NewPipeline(s, enhancer.NewVenueAddressEnhancer(nil, enhancer.VenueAddressPriority))
	stats, err := p.Run(ctx, types.EntityVenue)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Examined)
	assert.Equal(t, 1, stats.Enriched)

	got, err := s.GetCanonical(ctx, types.EntityVenue, venue.ID)
	require.NoError(t, err)
	assert.Equal(t, "10179", got.Value(types.FieldPostalCode))
	assert.Equal(t, types.Enrichment, got.Owner(types.FieldPostalCode))

	got, err = s.GetCanonical(ctx, types.EntityVenue, bare.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Value(types.FieldPostalCode))
}

func TestEventVenueAndCity(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	event := testutil.Event(t, s, &catalogs.Event{Title: "Klubnacht", Date: "2026-05-02"})
	raw := testutil.Raw(t, s, types.EntityEvent, "ra", "e1", "Berlin", catalogs.Fields{Name: "Klubnacht", Venue: "TRESOR"})
	testutil.Link(t, s, raw, event.ID, true)
	// the venue shows up after the event was matched
	tresor := testutil.Venue(t, s, &catalogs.Venue{Name: "Tresor", City: "Berlin"})

	p := enhancer.NewPipeline(s, enhancer.Defaults(nil, nil)...)
	stats, err := p.Run(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Enriched)

	c, err := s.GetCanonical(ctx, types.EntityEvent, event.ID)
	require.NoError(t, err)
	got := c.(*catalogs.Event)
	require.NotNil(t, got.VenueID)
	assert.Equal(t, tresor.ID, *got.VenueID)
	assert.Equal(t, "Berlin", got.City)
	assert.Equal(t, types.Enrichment, got.Owner(types.FieldVenue))
	assert.Equal(t, types.Enrichment, got.Owner(types.FieldCity))

	stats, err = p.Run(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Zero(t, stats.Enriched, "nothing left to fill")
}
