package fixture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/connectors/fixture"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/sources"
	"github.com/agentstation/lineup/pkg/types"
)

const ra = `
cities:
  Berlin:
    - entity_type: venue
      source_id: v-1
      name: Berghain
      address: Am Wriezener Bahnhof
      latitude: 52.511
      longitude: 13.443
    - entity_type: event
      source_id: e-1
      name: Klubnacht
      date: "2026-05-09"
      start_time: "23:59"
      venue: Berghain
      artists: [Ben Klock, Marcel Dettmann]
  Hamburg:
    - entity_type: venue
      source_id: v-2
      name: Golden Pudel Club
`

func collect(t *testing.T, c sources.Connector, city string) []sources.Observation {
	t.Helper()
	var out []sources.Observation
	err := c.Scrape(context.Background(), city, func(o sources.Observation) error {
		out = append(out, o)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestScrape(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ra.yaml"), []byte(ra), 0o644))

	c := fixture.New("ra", dir)
	assert.Equal(t, types.SourceTag("ra"), c.ID())

	obs := collect(t, c, "berlin")
	require.Len(t, obs, 2)
	assert.Equal(t, types.EntityVenue, obs[0].EntityType)
	assert.Equal(t, types.SourceTag("ra"), obs[0].Source)
	assert.Equal(t, "berlin", obs[0].City)
	require.NotNil(t, obs[0].Latitude)
	assert.InDelta(t, 52.511, *obs[0].Latitude, 1e-9)
	assert.Equal(t, []string{"Ben Klock", "Marcel Dettmann"}, obs[1].Artists)
	assert.Equal(t, "2026-05-09", obs[1].Date)
	for _, o := range obs {
		assert.NoError(t, o.Validate())
	}

	assert.Len(t, collect(t, c, "Hamburg"), 1)
	assert.Empty(t, collect(t, c, "Leipzig"))
}

func TestScrapeErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.yaml": {Data: []byte("cities: [not, a, map")},
	}

	err := fixture.NewFS("missing", fsys).Scrape(context.Background(), "Berlin", func(sources.Observation) error { return nil })
	var rerr *errors.ResourceError
	assert.ErrorAs(t, err, &rerr)

	err = fixture.NewFS("broken", fsys).Scrape(context.Background(), "Berlin", func(sources.Observation) error { return nil })
	var perr *errors.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestScrapeStopsOnEmitError(t *testing.T) {
	fsys := fstest.MapFS{"ra.yaml": {Data: []byte(ra)}}
	stop := errors.New("stop")

	calls := 0
	err := fixture.NewFS("ra", fsys).Scrape(context.Background(), "Berlin", func(sources.Observation) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"tixly.yaml":   {Data: []byte("cities: {}")},
		"ra.yaml":      {Data: []byte(ra)},
		"curated.yaml": {Data: []byte("cities: {}")},
		"notes.txt":    {Data: []byte("ignored")},
		"sub/x.yaml":   {Data: []byte("cities: {}")},
	}

	connectors, err := fixture.DiscoverFS(fsys)
	require.NoError(t, err)

	var ids []types.SourceTag
	for _, c := range connectors {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []types.SourceTag{"ra", "tixly"}, ids)
}
