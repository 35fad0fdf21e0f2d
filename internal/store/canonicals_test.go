package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/internal/utils/ptr"
	"github.com/agentstation/lineup/pkg/catalogs"
	pkgerrors "github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

func TestCandidatesScope(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	berghain := testutil.Venue(t, s, &catalogs.Venue{Name: "Berghain", City: "Berlin"})
	testutil.Venue(t, s, &catalogs.Venue{Name: "Rex Club", City: "Paris"})

	e1 := testutil.Event(t, s, &catalogs.Event{Title: "A", City: "Berlin", Date: "2026-05-01", VenueID: &berghain.ID})
	e2 := testutil.Event(t, s, &catalogs.Event{Title: "B", City: "Berlin", Date: "2026-05-01"})
	testutil.Event(t, s, &catalogs.Event{Title: "C", City: "Berlin", Date: "2026-05-02", VenueID: &berghain.ID})

	venues, err := s.Candidates(ctx, types.EntityVenue, store.Scope{City: "BERLIN"})
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, berghain.ID, venues[0].Key())

	atVenue, err := s.Candidates(ctx, types.EntityEvent, store.Scope{City: "Berlin", Date: "2026-05-01", VenueID: &berghain.ID})
	require.NoError(t, err)
	require.Len(t, atVenue, 1)
	assert.Equal(t, e1.ID, atVenue[0].Key())

	noVenue, err := s.Candidates(ctx, types.EntityEvent, store.Scope{City: "Berlin", Date: "2026-05-01", NoVenue: true})
	require.NoError(t, err)
	require.Len(t, noVenue, 1)
	assert.Equal(t, e2.ID, noVenue[0].Key())

	sameDay, err := s.Candidates(ctx, types.EntityEvent, store.Scope{Date: "2026-05-01"})
	require.NoError(t, err)
	assert.Len(t, sameDay, 2)
}

func TestCandidatesOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	late := testutil.Artist(t, s, &catalogs.Artist{Name: "Late", CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	early := testutil.Artist(t, s, &catalogs.Artist{Name: "Early", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})

	got, err := s.Candidates(ctx, types.EntityArtist, store.Scope{City: "ignored"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].Key())
	assert.Equal(t, late.ID, got[1].Key())
}

func TestDeleteCanonicalVenue(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	venue := testutil.Venue(t, s, &catalogs.Venue{Name: "Watergate", City: "Berlin"})
	raw := testutil.Raw(t, s, types.EntityVenue, "ra", "v1", "Berlin", catalogs.Fields{Name: "Watergate"})
	testutil.Link(t, s, raw, venue.ID, true)
	event := testutil.Event(t, s, &catalogs.Event{Title: "Night", City: "Berlin", VenueID: &venue.ID})

	require.NoError(t, s.DeleteCanonical(ctx, types.EntityVenue, venue.ID))

	_, err := s.GetCanonical(ctx, types.EntityVenue, venue.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = s.LinkForRaw(ctx, raw.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = s.GetRaw(ctx, raw.ID)
	assert.NoError(t, err, "raw records outlive their canonical record")

	got, err := s.GetCanonical(ctx, types.EntityEvent, event.ID)
	require.NoError(t, err)
	assert.Nil(t, got.(*catalogs.Event).VenueID)

	assert.True(t, pkgerrors.IsNotFound(s.DeleteCanonical(ctx, types.EntityVenue, venue.ID)))
}

func TestListCanonicals(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	testutil.Event(t, s, &catalogs.Event{Title: "Nina Kraviz", City: "Berlin", Date: "2026-05-01"})
	testutil.Event(t, s, &catalogs.Event{Title: "Ben Klock", City: "Berlin", Date: "2026-05-02", State: types.StatePublished})
	testutil.Event(t, s, &catalogs.Event{Title: "Laurent Garnier", City: "Paris", Date: "2026-05-01", PendingReview: true})

	tests := []struct {
		name  string
		query store.CanonicalQuery
		want  int64
	}{
		{"all", store.CanonicalQuery{EntityType: types.EntityEvent}, 3},
		{"city", store.CanonicalQuery{EntityType: types.EntityEvent, City: "berlin"}, 2},
		{"state", store.CanonicalQuery{EntityType: types.EntityEvent, State: types.StatePublished}, 1},
		{"date", store.CanonicalQuery{EntityType: types.EntityEvent, Date: "2026-05-01"}, 2},
		{"search", store.CanonicalQuery{EntityType: types.EntityEvent, Search: "kraviz"}, 1},
		{"pending review", store.CanonicalQuery{EntityType: types.EntityEvent, PendingReview: ptr.To(true)}, 1},
		{"venues", store.CanonicalQuery{EntityType: types.EntityVenue}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := s.ListCanonicals(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	_, _, err := s.ListCanonicals(ctx, store.CanonicalQuery{EntityType: "festival"})
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestEventsInStates(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)

	past := testutil.Event(t, s, &catalogs.Event{Title: "Past", Date: "2026-01-01"})
	testutil.Event(t, s, &catalogs.Event{Title: "Future", Date: "2026-12-01"})
	testutil.Event(t, s, &catalogs.Event{Title: "Undated"})
	testutil.Event(t, s, &catalogs.Event{Title: "Rejected", Date: "2026-01-01", State: types.StateRejected})

	got, err := s.EventsInStates(ctx, types.NonTerminalStates(), "2026-06-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, past.ID, got[0].ID)
}
