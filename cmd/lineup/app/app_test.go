package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup"
)

const fixtureYAML = `cities:
  Berlin:
    - entity_type: venue
      source_id: "v-1"
      name: Berghain
      address: Am Wriezener Bahnhof
    - entity_type: artist
      source_id: "a-1"
      name: Ben Klock
`

// isolate points every config source at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("LINEUP_DATABASE_DRIVER", "sqlite")
	t.Setenv("LINEUP_DATABASE_DSN", filepath.Join(dir, "lineup.db"))
	t.Setenv("LINEUP_FIXTURES_DIR", filepath.Join(dir, "fixtures"))
	t.Setenv("LINEUP_SYNC_CITY_DELAY", "0s")
	t.Setenv("LINEUP_LOG_OUTPUT", "discard")
	return dir
}

func newTestApp(t *testing.T, out *bytes.Buffer) *App {
	t.Helper()
	app, err := New("1.0.0", "abc123", "2026-01-01", "test", WithOutput(out))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, app.Shutdown(context.Background()))
	})
	return app
}

// run executes args and returns what the command printed.
func run(t *testing.T, app *App, out *bytes.Buffer, args ...string) string {
	t.Helper()
	out.Reset()
	require.NoError(t, app.Execute(context.Background(), args), "lineup %v", args)
	return out.String()
}

func TestApp_New(t *testing.T) {
	isolate(t)
	app := newTestApp(t, &bytes.Buffer{})

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2026-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Metrics())
	require.NotNil(t, app.Config())
	assert.Equal(t, "sqlite", app.Config().Database.Driver)
}

func TestApp_Client_Singleton(t *testing.T) {
	isolate(t)
	app := newTestApp(t, &bytes.Buffer{})

	const goroutines = 20
	var wg sync.WaitGroup
	clients := make([]lineup.Client, goroutines)
	errs := make([]error, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			clients[idx], errs[idx] = app.Client(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range goroutines {
		require.NoError(t, errs[i])
		assert.Same(t, clients[0], clients[i])
	}
	assert.NoError(t, clients[0].Ping(context.Background()))
}

func TestExecute_SyncAndQuery(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fixtures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixtures", "ra.yaml"), []byte(fixtureYAML), 0o600))

	var out bytes.Buffer
	app := newTestApp(t, &out)

	got := run(t, app, &out, "migrate", "-o", "json")
	assert.Contains(t, got, `"version"`)

	got = run(t, app, &out, "sync", "--city", "Berlin", "-o", "json")
	assert.Contains(t, got, `"status": "succeeded"`)

	got = run(t, app, &out, "raw", "list", "--source", "ra", "-o", "json")
	assert.Contains(t, got, "Berghain")
	assert.Contains(t, got, "Ben Klock")

	got = run(t, app, &out, "canonical", "list", "--type", "venue", "-o", "json")
	assert.Contains(t, got, "Berghain")

	got = run(t, app, &out, "status", "-o", "json")
	assert.Contains(t, got, `"idle"`)

	got = run(t, app, &out, "job", "list", "-o", "yaml")
	assert.Contains(t, got, "status: succeeded")
}

func TestExecute_Curation(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	app := newTestApp(t, &out)

	got := run(t, app, &out, "canonical", "create", "event", "--set", "title=Open Air", "--set", "city=Berlin", "-o", "json")
	assert.Contains(t, got, "MANUAL_DRAFT")

	got = run(t, app, &out, "transition", "approved-pending-details", "1", "-o", "json")
	assert.Contains(t, got, "APPROVED_PENDING_DETAILS")

	got = run(t, app, &out, "history", "1", "-o", "json")
	assert.Contains(t, got, "MANUAL_DRAFT")
	assert.Contains(t, got, "APPROVED_PENDING_DETAILS")
}

func TestExecute_InvalidInput(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	app := newTestApp(t, &out)

	tests := [][]string{
		{"status", "-o", "xml"},
		{"canonical", "get", "concert", "1"},
		{"canonical", "create", "venue", "--set", "nonsense=1"},
		{"transition", "done", "1"},
		{"raw", "get", "abc"},
		{"--db-driver", "mysql", "status"},
	}
	for _, args := range tests {
		assert.Error(t, app.Execute(context.Background(), args), "lineup %v", args)
	}
}

func TestExecute_Version(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	app := newTestApp(t, &out)

	assert.Equal(t, "lineup 1.0.0\n", run(t, app, &out, "version"))
}
