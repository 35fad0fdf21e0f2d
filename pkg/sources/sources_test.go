package sources_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/internal/testutil"
	"github.com/agentstation/lineup/internal/utils/ptr"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sources"
	"github.com/agentstation/lineup/pkg/types"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func static(id types.SourceTag, obs ...sources.Observation) sources.Connector {
	return sources.NewFunc(id, func(_ context.Context, _ string, emit func(sources.Observation) error) error {
		for _, o := range obs {
			if err := emit(o); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestRegistry(t *testing.T) {
	reg, err := sources.NewRegistry(static("tixly"), static("ra"))
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []types.SourceTag{"ra", "tixly"}, reg.IDs())

	c, ok := reg.Get("ra")
	require.True(t, ok)
	assert.Equal(t, types.SourceTag("ra"), c.ID())
	_, ok = reg.Get("missing")
	assert.False(t, ok)

	err = reg.Register(static("ra"))
	assert.True(t, errors.IsAlreadyExists(err))

	for _, tag := range []types.SourceTag{"", types.Curated, types.Enrichment, types.Merged} {
		err := reg.Register(static(tag))
		assert.True(t, errors.IsValidationError(err), "tag %q", tag)
	}
	assert.Equal(t, 2, reg.Len())
}

func TestObservationValidate(t *testing.T) {
	tests := []struct {
		name  string
		obs   sources.Observation
		field string
	}{
		{"valid venue", sources.Observation{EntityType: types.EntityVenue, SourceID: "1", Name: "Berghain"}, ""},
		{"valid event", sources.Observation{EntityType: types.EntityEvent, SourceID: "1", Name: "Klubnacht", Date: "2026-05-09", StartTime: "23:59"}, ""},
		{"unknown type", sources.Observation{EntityType: "festival", SourceID: "1", Name: "Fusion"}, "entity_type"},
		{"no source id", sources.Observation{EntityType: types.EntityVenue, SourceID: " ", Name: "Berghain"}, "source_id"},
		{"no name", sources.Observation{EntityType: types.EntityArtist, SourceID: "1"}, "name"},
		{"half coordinates", sources.Observation{EntityType: types.EntityVenue, SourceID: "1", Name: "Berghain", Latitude: ptr.To(52.5)}, "coordinates"},
		{"bad date", sources.Observation{EntityType: types.EntityEvent, SourceID: "1", Name: "Klubnacht", Date: "09.05.2026"}, "date"},
		{"bad time", sources.Observation{EntityType: types.EntityEvent, SourceID: "1", Name: "Klubnacht", StartTime: "25:00"}, "start_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *errors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestObservationFields(t *testing.T) {
	obs := sources.Observation{
		EntityType: types.EntityEvent,
		SourceID:   "ev-1",
		Name:       "  Klubnacht ",
		Date:       "2026-05-09",
		Venue:      "Berghain",
		Address:    "Am Wriezener Bahnhof",
		Latitude:   ptr.To(52.511),
		Longitude:  ptr.To(13.443),
		Images:     []string{" ", "https://img.example/1.jpg", "https://img.example/2.jpg"},
		Artists:    []string{"Ben Klock", " ", "Marcel Dettmann "},
	}
	f := obs.Fields()
	assert.Equal(t, "Klubnacht", f.Name)
	assert.Equal(t, "Berghain", f.Venue)
	assert.Equal(t, "https://img.example/1.jpg", f.ImageURL)
	assert.Equal(t, []string{"Ben Klock", "Marcel Dettmann"}, f.Artists)
	assert.Empty(t, f.Address)
	assert.Nil(t, f.Latitude)

	obs.EntityType = types.EntityArtist
	f = obs.Fields()
	assert.Equal(t, "Klubnacht", f.Name)
	assert.Empty(t, f.Date)
	assert.Empty(t, f.Venue)
	assert.Nil(t, f.Artists)

	obs.EntityType = types.EntityVenue
	f = obs.Fields()
	assert.Equal(t, "Am Wriezener Bahnhof", f.Address)
	require.NotNil(t, f.Latitude)
	assert.Empty(t, f.Date)
	assert.Empty(t, f.Venue)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	m := metrics.New()
	in := sources.NewIngester(s, sources.WithMetrics(m))

	venue := sources.Observation{EntityType: types.EntityVenue, SourceID: "v-1", Name: "Tresor", Address: "Köpenicker Str. 70"}
	event := sources.Observation{EntityType: types.EntityEvent, SourceID: "e-1", Name: "Tresor Night", Date: "2026-05-09", Venue: "Tresor"}
	invalid := sources.Observation{EntityType: types.EntityEvent, SourceID: "e-2"}

	res, err := in.Ingest(ctx, static("ra", venue, event, invalid), "Berlin")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Observed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Invalid)
	assert.False(t, res.Failed())

	raws, total, err := s.ListRaws(ctx, store.RawQuery{Source: "ra"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, raw := range raws {
		assert.Equal(t, "Berlin", raw.City)
		assert.Equal(t, "Berlin", raw.Data().City)
	}

	event.StartTime = "23:00"
	res, err = in.Ingest(ctx, static("ra", venue, event), "Berlin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 1, res.Updated)

	// created, invalid, unchanged and updated
	n, err := promtest.GatherAndCount(m.Registry(), "lineup_raws_ingested_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIngestSourceUnavailable(t *testing.T) {
	ctx := context.Background()
	s := testutil.Store(t)
	m := metrics.New()
	in := sources.NewIngester(s, sources.WithMetrics(m))

	broken := sources.NewFunc("tixly", func(_ context.Context, _ string, emit func(sources.Observation) error) error {
		if err := emit(sources.Observation{EntityType: types.EntityArtist, SourceID: "a-1", Name: "Ellen Allien"}); err != nil {
			return err
		}
		return fmt.Errorf("upstream returned 503")
	})

	res, err := in.Ingest(ctx, broken, "Berlin")
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))

	var serr *errors.SourceUnavailableError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Berlin", serr.City)
	assert.Equal(t, "tixly", serr.Source)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "503")
	assert.Equal(t, 1, res.Created)

	n, err := promtest.GatherAndCount(m.Registry(), "lineup_source_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestTimeout(t *testing.T) {
	s := testutil.Store(t)
	in := sources.NewIngester(s, sources.WithTimeout(10*time.Millisecond))

	slow := sources.NewFunc("slow", func(ctx context.Context, _ string, _ func(sources.Observation) error) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := in.Ingest(context.Background(), slow, "Hamburg")
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
