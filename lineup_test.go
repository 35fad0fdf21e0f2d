package lineup_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/internal/utils/ptr"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sources"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

func newClient(t *testing.T, opts ...lineup.Option) (lineup.Client, *store.Store) {
	t.Helper()
	db := testutil.DB(t)
	lu, err := lineup.New(db, append([]lineup.Option{lineup.WithCityDelay(0)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lu.Close() })
	return lu, store.New(db)
}

func TestNew(t *testing.T) {
	_, err := lineup.New(nil)
	assert.True(t, errors.IsConfigError(err))

	db := testutil.DB(t)
	_, err = lineup.New(db, lineup.WithLease(time.Second, time.Minute))
	assert.True(t, errors.IsValidationError(err))

	_, err = lineup.New(db, lineup.WithSweepStates("LIVE"))
	assert.True(t, errors.IsValidationError(err))

	same := sources.NewFunc("ra", nil)
	_, err = lineup.New(db, lineup.WithConnectors(same, same))
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestCurationLifecycle(t *testing.T) {
	ctx := context.Background()
	var transitions atomic.Int32
	lu, _ := newClient(t)
	lu.OnTransition(func(catalogs.StateTransition) { transitions.Add(1) })

	rec, err := lu.CreateCanonical(ctx, types.EntityEvent, map[types.Field]string{
		types.FieldTitle: "Open Air am See",
		types.FieldDate:  "2026-06-01",
		types.FieldCity:  "Berlin",
	})
	require.NoError(t, err)
	event := rec.(*catalogs.Event)
	assert.Equal(t, types.StateManualDraft, event.State)
	assert.Equal(t, types.Curated, event.Owner(types.FieldTitle))

	detail, err := lu.GetCanonical(ctx, types.EntityEvent, event.ID)
	require.NoError(t, err)
	require.Len(t, detail.Links, 1)
	assert.True(t, detail.Links[0].IsPrimary)
	assert.Equal(t, types.Curated, detail.Links[0].Source)

	// MANUAL_DRAFT cannot skip straight to PUBLISHED
	_, err = lu.Transition(ctx, event.ID, types.StatePublished, "editor", "")
	assert.True(t, errors.IsInvalidTransition(err))
	detail, err = lu.GetCanonical(ctx, types.EntityEvent, event.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateManualDraft, detail.Record.(*catalogs.Event).State)

	tr, err := lu.Transition(ctx, event.ID, types.StateApprovedPendingDetails, "editor", "looks good")
	require.NoError(t, err)
	assert.Equal(t, types.StateManualDraft, tr.From)

	history, err := lu.History(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.EqualValues(t, 1, transitions.Load())

	updated, err := lu.UpdateCanonical(ctx, types.EntityEvent, event.ID, map[types.Field]string{types.FieldTitle: "Open Air am See II"})
	require.NoError(t, err)
	assert.Equal(t, "Open Air am See II", updated.Label())

	_, err = lu.BulkTransition(ctx, nil, types.StateCanceled, "editor", "")
	assert.True(t, errors.IsValidationError(err))
	_, err = lu.Transition(ctx, event.ID, "LIVE", "editor", "")
	assert.True(t, errors.IsValidationError(err))

	require.NoError(t, lu.DeleteCanonical(ctx, types.EntityEvent, event.ID))
	_, err = lu.GetCanonical(ctx, types.EntityEvent, event.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestSyncReviewAndApply(t *testing.T) {
	ctx := context.Background()
	title := "Nina Kraviz at Berghain"
	ra := sources.NewFunc("ra", func(_ context.Context, city string, emit func(sources.Observation) error) error {
		return emit(sources.Observation{
			EntityType: types.EntityEvent,
			SourceID:   "e-1",
			Name:       title,
			Date:       "2026-05-09",
		})
	})

	var finished []lineup.JobSnapshot
	lu, _ := newClient(t, lineup.WithConnectors(ra))
	lu.OnSyncFinished(func(job lineup.JobSnapshot) { finished = append(finished, job) })
	assert.Equal(t, []types.SourceTag{"ra"}, lu.Sources())

	// no sources given: every registered connector runs
	job, err := lu.RunSync(ctx, pkgsync.WithCities("Berlin"))
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, job.Status)
	assert.Equal(t, []types.SourceTag{"ra"}, job.Request.Sources)
	require.Len(t, finished, 1)

	events, total, err := lu.ListCanonicals(ctx, lineup.CanonicalQuery{EntityType: types.EntityEvent})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	id := events[0].Key()

	_, err = lu.UpdateCanonical(ctx, types.EntityEvent, id, map[types.Field]string{types.FieldTitle: "Nina Kraviz - Late Set"})
	require.NoError(t, err)

	title = "Nina Kraviz b2b Helena Hauff at Berghain"
	_, err = lu.RunSync(ctx, pkgsync.WithCities("Berlin"))
	require.NoError(t, err)

	detail, err := lu.GetCanonical(ctx, types.EntityEvent, id)
	require.NoError(t, err)
	assert.Equal(t, "Nina Kraviz - Late Set", detail.Record.Label())

	queue, total, err := lu.ReviewQueue(ctx, types.EntityEvent, lineup.Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	raw := queue[0]
	assert.Equal(t, types.SourceTag("ra"), raw.Source)

	cs, err := lu.PendingChanges(ctx, raw.ID)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, types.FieldTitle, cs.Changes[0].Field)
	assert.Equal(t, title, cs.Changes[0].New)

	applied, err := lu.ApplyChanges(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.Field{types.FieldTitle}, applied)

	detail, err = lu.GetCanonical(ctx, types.EntityEvent, id)
	require.NoError(t, err)
	assert.Equal(t, title, detail.Record.Label())

	queue, _, err = lu.ReviewQueue(ctx, types.EntityEvent, lineup.Page{})
	require.NoError(t, err)
	assert.Empty(t, queue)

	status, err := lu.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status)

	list, err := lu.Jobs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTriggerSyncWhileRunning(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	slow := sources.NewFunc("slow", func(ctx context.Context, _ string, _ func(sources.Observation) error) error {
		close(started)
		<-release
		return nil
	})
	lu, _ := newClient(t, lineup.WithConnectors(slow))

	first, err := lu.TriggerSync(ctx, pkgsync.WithCities("Berlin"))
	require.NoError(t, err)
	<-started

	second, err := lu.TriggerSync(ctx, pkgsync.WithCities("Hamburg"))
	assert.True(t, errors.IsJobRunning(err))
	assert.Equal(t, first.ID, second.ID)

	close(release)
	require.NoError(t, lu.Close())

	job, err := lu.Job(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, job.Status)
}

func TestDedupe(t *testing.T) {
	ctx := context.Background()
	var merges []lineup.Merge
	lu, s := newClient(t)
	lu.OnMerged(func(m lineup.Merge) { merges = append(merges, m) })

	testutil.Venue(t, s, &catalogs.Venue{Name: "Watergate", City: "Berlin"})
	keeper := testutil.Venue(t, s, &catalogs.Venue{Name: "Watergate ", City: "Berlin", Latitude: ptr.To(52.5012), Longitude: ptr.To(13.4429)})

	stats, err := lu.Dedupe(ctx, types.EntityVenue)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[types.EntityVenue].Merged)
	require.Len(t, merges, 1)
	assert.Equal(t, keeper.ID, merges[0].KeeperID)

	stats, err = lu.Dedupe(ctx)
	require.NoError(t, err)
	for kind, st := range stats {
		assert.Zero(t, st.Merged, kind)
	}

	_, err = lu.Dedupe(ctx, "stage")
	assert.True(t, errors.IsValidationError(err))

	require.NoError(t, jobs.NewDBLocker(s.DB()).Acquire(ctx, "sync", "other", time.Hour))
	_, err = lu.Dedupe(ctx)
	assert.True(t, errors.IsLeaseHeld(err))

	n, err := lu.ResetJob(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = lu.Dedupe(ctx)
	assert.NoError(t, err)
}

func TestDedupeFollowsVenueMerges(t *testing.T) {
	ctx := context.Background()
	lu, s := newClient(t)

	a := testutil.Venue(t, s, &catalogs.Venue{Name: "Watergate", City: "Berlin"})
	b := testutil.Venue(t, s, &catalogs.Venue{Name: "Watergate ", City: "Berlin"})
	testutil.Event(t, s, &catalogs.Event{Title: "Open Air", Date: "2026-06-01", VenueID: &a.ID, City: "Berlin"})
	testutil.Event(t, s, &catalogs.Event{Title: "Open Air", Date: "2026-06-01", VenueID: &b.ID, City: "Berlin"})

	stats, err := lu.Dedupe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[types.EntityVenue].Merged)
	assert.Equal(t, 1, stats[types.EntityEvent].Merged)

	stats, err = lu.Dedupe(ctx)
	require.NoError(t, err)
	for kind, st := range stats {
		assert.Zero(t, st.Merged, kind)
	}
}

func TestManualLinkAndPurge(t *testing.T) {
	ctx := context.Background()
	lu, s := newClient(t)

	venue := testutil.Venue(t, s, &catalogs.Venue{Name: "Tresor", City: "Berlin"})
	first := testutil.Raw(t, s, types.EntityVenue, "ra", "v-9", "Berlin", catalogs.Fields{Name: "Tresor"})
	second := testutil.Raw(t, s, types.EntityVenue, "tixly", "t-9", "Berlin", catalogs.Fields{Name: "Tresor Club"})

	link, err := lu.ManualLink(ctx, types.EntityVenue, venue.ID, "ra", "v-9")
	require.NoError(t, err)
	assert.Equal(t, first.ID, link.RawID)
	assert.True(t, link.IsPrimary)

	_, err = lu.ManualLink(ctx, types.EntityVenue, venue.ID, "ra", "v-9")
	assert.True(t, errors.IsDuplicateLink(err))

	_, err = lu.ManualLink(ctx, types.EntityVenue, venue.ID, "tixly", "t-9")
	require.NoError(t, err)

	raws, total, err := lu.ListRaws(ctx, lineup.RawQuery{EntityType: types.EntityVenue, Linked: ptr.To(true)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, raws, 2)

	// purging the primary promotes the remaining link
	require.NoError(t, lu.PurgeRaw(ctx, first.ID))
	detail, err := lu.GetCanonical(ctx, types.EntityVenue, venue.ID)
	require.NoError(t, err)
	require.Len(t, detail.Links, 1)
	assert.Equal(t, second.ID, detail.Links[0].RawID)
	assert.True(t, detail.Links[0].IsPrimary)

	_, err = lu.GetRaw(ctx, first.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(lu.PurgeRaw(ctx, first.ID)))

	_, _, err = lu.ListRaws(ctx, lineup.RawQuery{EntityType: "stage"})
	assert.True(t, errors.IsValidationError(err))
}

func TestAutoSweep(t *testing.T) {
	ctx := context.Background()
	swept := make(chan lineup.SweepResult, 10)
	lu, _ := newClient(t, lineup.WithAutoSweepInterval(10*time.Millisecond))
	lu.OnSweepFinished(func(res lineup.SweepResult) {
		select {
		case swept <- res:
		default:
		}
	})

	rec, err := lu.CreateCanonical(ctx, types.EntityEvent, map[types.Field]string{
		types.FieldTitle: "Last Year's Party",
		types.FieldDate:  "2000-01-01",
	})
	require.NoError(t, err)

	require.NoError(t, lu.AutoSweepOn())
	select {
	case res := <-swept:
		assert.Equal(t, []uint{rec.Key()}, res.Rejected)
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep ran")
	}
	require.NoError(t, lu.AutoSweepOff())
	require.NoError(t, lu.AutoSweepOff())

	history, err := lu.History(ctx, rec.Key())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.StateRejected, history[0].To)

	bad, _ := newClient(t, lineup.WithAutoSweepInterval(0))
	err = bad.AutoSweepOn()
	assert.True(t, errors.IsValidationError(err))
}
