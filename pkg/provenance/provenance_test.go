package provenance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/linker"
	"github.com/agentstation/lineup/pkg/provenance"
	"github.com/agentstation/lineup/pkg/types"
)

// seeded creates a canonical event from a raw event the way the match phase
// does and returns both.
func seeded(t *testing.T, s *store.Store, u *provenance.Unifier, f catalogs.Fields) (*catalogs.Event, *catalogs.RawRecord) {
	t.Helper()
	ctx := context.Background()
	raw := testutil.Raw(t, s, types.EntityEvent, "ra", "e1", "Berlin", f)
	event := &catalogs.Event{State: types.StateScrapedDraft}
	require.NoError(t, u.Seed(ctx, event, raw))
	require.NoError(t, s.CreateCanonical(ctx, event))
	_, err := linker.New(s).Link(ctx, raw, event, 1, true)
	require.NoError(t, err)
	require.NoError(t, u.MarkSynced(ctx, raw))
	return event, raw
}

func rescrape(t *testing.T, s *store.Store, raw *catalogs.RawRecord, f catalogs.Fields) *catalogs.RawRecord {
	t.Helper()
	updated, outcome, err := s.UpsertRaw(context.Background(), store.RawInput{
		EntityType: raw.EntityType, Source: raw.Source, SourceID: raw.SourceID, City: raw.City, Fields: f,
	})
	require.NoError(t, err)
	require.Equal(t, store.RawUpdated, outcome)
	return updated
}

func event(t *testing.T, s *store.Store, id uint) *catalogs.Event {
	t.Helper()
	c, err := s.GetCanonical(context.Background(), types.EntityEvent, id)
	require.NoError(t, err)
	return c.(*catalogs.Event)
}

func TestSeed(t *testing.T) {
	s := testutil.Store(t)
	u := provenance.New(s)

	e, _ := seeded(t, s, u, catalogs.Fields{Name: "Nina Kraviz at Berghain", Date: "2026-05-01", StartTime: "bad", City: "Berlin", Venue: "Berghain"})
	got := event(t, s, e.ID)

	assert.Equal(t, "Nina Kraviz at Berghain", got.Title)
	assert.Equal(t, "2026-05-01", got.Date)
	assert.Empty(t, got.StartTime, "invalid values are skipped")
	assert.Nil(t, got.VenueID, "venue names need a resolver")
	assert.Equal(t, types.SourceTag("ra"), got.Owner(types.FieldTitle))
	assert.Equal(t, types.SourceTag(""), got.Owner(types.FieldStartTime))
}

func TestFillOnlyEmptyFields(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)

	e, _ := seeded(t, s, u, catalogs.Fields{Name: "Nina Kraviz", Date: "2026-05-01", City: "Berlin"})
	second := testutil.Raw(t, s, types.EntityEvent, "dice", "d1", "Berlin", catalogs.Fields{
		Name: "NINA KRAVIZ", Date: "2026-05-01", StartTime: "23:00", TicketURL: "https://dice.fm/x",
	})
	_, err := linker.New(s).Link(ctx, second, e, 1, false)
	require.NoError(t, err)

	filled, err := u.Fill(ctx, e, second)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldStartTime, types.FieldTicketURL}, filled)

	got := event(t, s, e.ID)
	assert.Equal(t, "Nina Kraviz", got.Title)
	assert.Equal(t, "23:00", got.StartTime)
	assert.Equal(t, types.SourceTag("dice"), got.Owner(types.FieldTicketURL))
	assert.Equal(t, types.SourceTag("ra"), got.Owner(types.FieldTitle))

	reloaded, err := s.GetRaw(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Pending())
}

func TestFoldAppliesSourceOwnedFields(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)

	e, raw := seeded(t, s, u, catalogs.Fields{Name: "Nina Kraviz", Date: "2026-05-01", ImageURL: "a.jpg"})
	raw = rescrape(t, s, raw, catalogs.Fields{Name: "Nina Kraviz (extended)", Date: "2026-05-01", Description: "All night long"})

	res, err := u.Fold(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldTitle, types.FieldDescription}, res.Applied)
	assert.Empty(t, res.Flagged)

	got := event(t, s, e.ID)
	assert.Equal(t, "Nina Kraviz (extended)", got.Title)
	assert.Equal(t, "All night long", got.Description)
	assert.Equal(t, "a.jpg", got.ImageURL, "a dropped value does not clear the field")
	assert.False(t, got.PendingReview)

	reloaded, err := s.GetRaw(ctx, raw.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasChanges)
	assert.False(t, reloaded.Pending())
}

func TestCuratedFieldIsProtected(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)

	e, raw := seeded(t, s, u, catalogs.Fields{Name: "Nina Kraviz at Berghain", Date: "2026-05-01"})
	_, err := u.Edit(ctx, types.EntityEvent, e.ID, map[types.Field]string{types.FieldTitle: "Nina Kraviz (Late Set)"})
	require.NoError(t, err)

	raw = rescrape(t, s, raw, catalogs.Fields{Name: "Nina Kraviz b2b Ben Klock", Date: "2026-05-01"})
	res, err := u.Fold(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldTitle}, res.Flagged)

	got := event(t, s, e.ID)
	assert.Equal(t, "Nina Kraviz (Late Set)", got.Title)
	assert.True(t, got.PendingReview)

	flagged, err := s.GetRaw(ctx, raw.ID)
	require.NoError(t, err)
	assert.True(t, flagged.HasChanges)
	assert.Equal(t, catalogs.Change{Old: "Nina Kraviz (Late Set)", New: "Nina Kraviz b2b Ben Klock"}, flagged.Changes()[types.FieldTitle])

	applied, err := u.ApplyChanges(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldTitle}, applied)

	got = event(t, s, e.ID)
	assert.Equal(t, "Nina Kraviz b2b Ben Klock", got.Title)
	assert.Equal(t, types.SourceTag("ra"), got.Owner(types.FieldTitle))
	assert.False(t, got.PendingReview)

	cleared, err := s.GetRaw(ctx, raw.ID)
	require.NoError(t, err)
	assert.False(t, cleared.HasChanges)
	assert.Empty(t, cleared.Changes())

	_, err = u.ApplyChanges(ctx, raw.ID)
	assert.True(t, errors.IsValidationError(err))
}

func TestApplySubsetKeepsOtherChanges(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)

	e, raw := seeded(t, s, u, catalogs.Fields{Name: "Night", Date: "2026-05-01", Description: "old"})
	_, err := u.Edit(ctx, types.EntityEvent, e.ID, map[types.Field]string{
		types.FieldTitle:       "Curated Night",
		types.FieldDescription: "curated copy",
	})
	require.NoError(t, err)

	raw = rescrape(t, s, raw, catalogs.Fields{Name: "Night II", Date: "2026-05-01", Description: "new"})
	_, err = u.Fold(ctx, raw)
	require.NoError(t, err)

	_, err = u.ApplyChanges(ctx, raw.ID, types.FieldTicketURL)
	assert.True(t, errors.IsValidationError(err))

	applied, err := u.ApplyChanges(ctx, raw.ID, types.FieldDescription)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldDescription}, applied)

	got := event(t, s, e.ID)
	assert.Equal(t, "Curated Night", got.Title)
	assert.Equal(t, "new", got.Description)
	assert.True(t, got.PendingReview, "title change is still pending")

	left, err := s.GetRaw(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldTitle}, left.Changes().Fields(types.EntityEvent))
}

func TestDismissChanges(t *testing.T) {
	ctx := context.Background()

	for _, resurface := range []bool{false, true} {
		s := testutil.Store(t)
		u := provenance.New(s, provenance.WithResurfaceDismissed(resurface))

		e, raw := seeded(t, s, u, catalogs.Fields{Name: "Night", Date: "2026-05-01"})
		_, err := u.Edit(ctx, types.EntityEvent, e.ID, map[types.Field]string{types.FieldTitle: "Curated"})
		require.NoError(t, err)

		raw = rescrape(t, s, raw, catalogs.Fields{Name: "Night II", Date: "2026-05-01"})
		_, err = u.Fold(ctx, raw)
		require.NoError(t, err)

		require.NoError(t, u.DismissChanges(ctx, raw.ID))
		dismissed, err := s.GetRaw(ctx, raw.ID)
		require.NoError(t, err)
		assert.True(t, dismissed.Dismissed)
		assert.True(t, dismissed.HasChanges, "dismissing keeps the diff")
		assert.False(t, event(t, s, e.ID).PendingReview)

		raw = rescrape(t, s, dismissed, catalogs.Fields{Name: "Night III", Date: "2026-05-01"})
		_, err = u.Fold(ctx, raw)
		require.NoError(t, err)

		again, err := s.GetRaw(ctx, raw.ID)
		require.NoError(t, err)
		assert.Equal(t, !resurface, again.Dismissed)
		assert.Equal(t, "Night III", again.Changes()[types.FieldTitle].New)
		assert.Equal(t, resurface, event(t, s, e.ID).PendingReview)
	}
}

func TestDismissWithoutChanges(t *testing.T) {
	s := testutil.Store(t)
	u := provenance.New(s)
	_, raw := seeded(t, s, u, catalogs.Fields{Name: "Night"})

	assert.True(t, errors.IsValidationError(u.DismissChanges(context.Background(), raw.ID)))
	assert.True(t, errors.IsNotFound(u.DismissChanges(context.Background(), 999)))
}

func TestCuratedRawRecord(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)

	venue := &catalogs.Venue{}
	require.NoError(t, u.CreateCurated(ctx, venue, map[types.Field]string{
		types.FieldName: "Tresor",
		types.FieldCity: "Berlin",
	}))
	require.NotZero(t, venue.ID)
	assert.Equal(t, types.Curated, venue.Owner(types.FieldName))

	raw, err := s.FindRawBySource(ctx, types.EntityVenue, types.Curated, catalogs.Ref(venue))
	require.NoError(t, err)
	assert.Equal(t, "Tresor", raw.Data().Name)
	assert.False(t, raw.Pending())

	links, err := s.LinksFor(ctx, types.EntityVenue, venue.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].IsPrimary)
	assert.Equal(t, 1.0, links[0].Confidence)

	_, err = u.Edit(ctx, types.EntityVenue, venue.ID, map[types.Field]string{types.FieldWebsite: "https://tresorberlin.com"})
	require.NoError(t, err)
	raw, err = s.FindRawBySource(ctx, types.EntityVenue, types.Curated, catalogs.Ref(venue))
	require.NoError(t, err)
	assert.Equal(t, "https://tresorberlin.com", raw.Data().Website)

	links, err = s.LinksFor(ctx, types.EntityVenue, venue.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1, "the curated raw record is linked once")
}

func TestEditValidation(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	u := provenance.New(s)
	artist := testutil.Artist(t, s, &catalogs.Artist{Name: "Ben Klock"})

	tests := []struct {
		name   string
		values map[types.Field]string
	}{
		{"empty", nil},
		{"unknown field", map[types.Field]string{types.FieldTicketURL: "x"}},
		{"clears label", map[types.Field]string{types.FieldName: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Edit(ctx, types.EntityArtist, artist.ID, tt.values)
			assert.True(t, errors.IsValidationError(err))
		})
	}

	_, err := u.Edit(ctx, types.EntityEvent, 999, map[types.Field]string{types.FieldTitle: "x"})
	assert.True(t, errors.IsNotFound(err))

	got, err := s.GetCanonical(ctx, types.EntityArtist, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ben Klock", got.Label(), "failed edits roll back")
}

func TestPendingChanges(t *testing.T) {
	raw := &catalogs.RawRecord{ID: 3, EntityType: types.EntityVenue, Source: "ra"}
	raw.SetChanges(catalogs.Diff{
		types.FieldWebsite: {Old: "", New: "https://x"},
		types.FieldName:    {Old: "A", New: "B"},
	})
	cs := provenance.PendingChanges(raw)
	assert.Equal(t, []types.Field{types.FieldName, types.FieldWebsite}, cs.Fields())
	assert.Equal(t, "venue 3: 2 changes (1 added, 1 updated, 0 removed)", cs.Summary())
}
