package reconciler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/provenance"
	"github.com/agentstation/lineup/pkg/reconciler"
	"github.com/agentstation/lineup/pkg/types"
)

func newReconciler(t *testing.T, s *store.Store, opts ...reconciler.Option) reconciler.Reconciler {
	t.Helper()
	r, err := reconciler.New(s, opts...)
	require.NoError(t, err)
	return r
}

func TestSameEventFromTwoSources(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	berghain := testutil.Venue(t, s, &catalogs.Venue{Name: "Berghain", City: "Berlin"})

	a := testutil.Raw(t, s, types.EntityEvent, "ra", "a1", "Berlin", catalogs.Fields{
		Name: "Nina Kraviz at Berghain", Date: "2026-05-01", Venue: "Berghain", City: "Berlin",
	})
	b := testutil.Raw(t, s, types.EntityEvent, "dice", "b1", "Berlin", catalogs.Fields{
		Name: "NINA KRAVIZ AT BERGHAIN", Date: "2026-05-01", Venue: "Berghain", StartTime: "23:59",
	})

	r := newReconciler(t, s)
	stats, err := r.All(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Linked)

	linkA, err := s.LinkForRaw(ctx, a.ID)
	require.NoError(t, err)
	linkB, err := s.LinkForRaw(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, linkA.CanonicalID, linkB.CanonicalID)
	assert.True(t, linkA.IsPrimary)
	assert.False(t, linkB.IsPrimary)
	assert.GreaterOrEqual(t, linkB.Confidence, 0.9)

	c, err := s.GetCanonical(ctx, types.EntityEvent, linkA.CanonicalID)
	require.NoError(t, err)
	event := c.(*catalogs.Event)
	assert.Equal(t, "Nina Kraviz at Berghain", event.Title)
	assert.Equal(t, types.StateScrapedDraft, event.State)
	require.NotNil(t, event.VenueID)
	assert.Equal(t, berghain.ID, *event.VenueID)
	assert.Equal(t, "23:59", event.StartTime, "second source fills empty fields")
	assert.Equal(t, types.SourceTag("dice"), event.Owner(types.FieldStartTime))

	// re-running and re-ingesting identical payloads changes nothing
	stats, err = r.All(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)

	testutil.Raw(t, s, types.EntityEvent, "dice", "b1", "Berlin", catalogs.Fields{
		Name: "NINA KRAVIZ AT BERGHAIN", Date: "2026-05-01", Venue: "Berghain", StartTime: "23:59",
	})
	stats, err = r.All(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)

	n, err := s.CountCanonicals(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	links, err := s.LinksFor(ctx, types.EntityEvent, linkA.CanonicalID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestVenueScope(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	testutil.Raw(t, s, types.EntityVenue, "ra", "v1", "Berlin", catalogs.Fields{Name: "Watergate"})
	testutil.Raw(t, s, types.EntityVenue, "dice", "v2", "Berlin", catalogs.Fields{Name: "WATERGATE"})
	testutil.Raw(t, s, types.EntityVenue, "ra", "v3", "Hamburg", catalogs.Fields{Name: "Watergate"})

	stats, err := newReconciler(t, s).All(ctx, types.EntityVenue)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Linked)

	venues, _, err := s.ListCanonicals(ctx, store.CanonicalQuery{EntityType: types.EntityVenue})
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.ElementsMatch(t, []string{"Berlin", "Hamburg"}, []string{venues[0].Scope(), venues[1].Scope()})
}

func TestRescrapeIsFolded(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	r := newReconciler(t, s)

	raw := testutil.Raw(t, s, types.EntityArtist, "ra", "ar1", "", catalogs.Fields{Name: "Ben Klock"})
	res, err := r.Raw(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, reconciler.Created, res.Outcome)

	res, err = r.Raw(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, reconciler.Unchanged, res.Outcome)

	testutil.Raw(t, s, types.EntityArtist, "ra", "ar1", "", catalogs.Fields{Name: "Ben Klock", Country: "DE"})
	stats, err := r.All(ctx, types.EntityArtist)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Folded)

	c, err := s.GetCanonical(ctx, types.EntityArtist, res.CanonicalID)
	require.NoError(t, err)
	assert.Equal(t, "DE", c.Value(types.FieldCountry))
}

func TestCuratedChangeIsFlagged(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	r := newReconciler(t, s)

	raw := testutil.Raw(t, s, types.EntityEvent, "ra", "e1", "Berlin", catalogs.Fields{Name: "Nina Kraviz at Berghain", Date: "2026-05-01"})
	res, err := r.Raw(ctx, raw.ID)
	require.NoError(t, err)

	_, err = provenance.New(s).Edit(ctx, types.EntityEvent, res.CanonicalID, map[types.Field]string{
		types.FieldTitle: "Nina Kraviz (Late Set)",
	})
	require.NoError(t, err)

	testutil.Raw(t, s, types.EntityEvent, "ra", "e1", "Berlin", catalogs.Fields{Name: "Nina Kraviz b2b Ben Klock", Date: "2026-05-01"})
	stats, err := r.All(ctx, types.EntityEvent)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Folded)
	assert.Equal(t, 1, stats.Flagged)

	c, err := s.GetCanonical(ctx, types.EntityEvent, res.CanonicalID)
	require.NoError(t, err)
	assert.Equal(t, "Nina Kraviz (Late Set)", c.Label())
	assert.True(t, c.Pending())

	flagged, err := s.GetRaw(ctx, raw.ID)
	require.NoError(t, err)
	assert.True(t, flagged.HasChanges)
}

func TestLineup(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	klock := testutil.Artist(t, s, &catalogs.Artist{Name: "Ben Klock"})

	raw := testutil.Raw(t, s, types.EntityEvent, "ra", "e1", "Berlin", catalogs.Fields{
		Name:    "Klubnacht",
		Date:    "2026-05-02",
		Artists: []string{"ben klock", "Someone Nobody Knows"},
	})
	res, err := newReconciler(t, s).Raw(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lineup)

	artists, err := s.Lineup(ctx, res.CanonicalID)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, klock.ID, artists[0].ID)
}

func TestSkipsInvalidRaws(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	r := newReconciler(t, s)

	testutil.Raw(t, s, types.EntityVenue, "ra", "blank", "Berlin", catalogs.Fields{Address: "Somewhere 1"})
	testutil.Raw(t, s, types.EntityVenue, "ra", "ok", "Berlin", catalogs.Fields{Name: "Tresor"})

	stats, err := r.All(ctx, types.EntityVenue)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Created)

	_, err = r.Raw(ctx, 999)
	assert.True(t, errors.IsNotFound(err))
}

func TestOptions(t *testing.T) {
	_, err := reconciler.New(testutil.Store(t), reconciler.WithMatcher(nil))
	assert.True(t, errors.IsValidationError(err))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", reconciler.Created.String())
	assert.Equal(t, "duplicate", reconciler.Duplicate.String())
	assert.Equal(t, "unknown", reconciler.Outcome(42).String())
}
