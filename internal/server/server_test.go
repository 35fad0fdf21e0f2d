package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/server/events"
	"github.com/agentstation/lineup/internal/server/response"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
)

type fakeBackend struct {
	pingErr error
	running *jobs.Snapshot
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }

func (f *fakeBackend) SyncStatus(context.Context) (*jobs.Snapshot, error) { return f.running, nil }

func newServer(t *testing.T, backend Backend) (*Server, *httptest.Server) {
	t.Helper()
	logger := zerolog.Nop()
	cfg := DefaultConfig()
	cfg.Metrics = metrics.New().Handler()
	s := New(backend, cfg, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (int, response.Response) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	var body response.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res.StatusCode, body
}

func TestProbes(t *testing.T) {
	backend := &fakeBackend{}
	_, ts := newServer(t, backend)

	code, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Data.(map[string]any)["status"])

	code, body = get(t, ts.URL+"/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Data.(map[string]any)["status"])

	backend.pingErr = fmt.Errorf("connection refused")
	code, body = get(t, ts.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
}

func TestSyncStatus(t *testing.T) {
	backend := &fakeBackend{}
	_, ts := newServer(t, backend)

	_, body := get(t, ts.URL+"/api/v1/sync")
	assert.Equal(t, "idle", body.Data.(map[string]any)["status"])

	backend.running = &jobs.Snapshot{
		ID:       "job-1",
		Status:   jobs.StatusRunning,
		Progress: pkgsync.Progress{Phase: pkgsync.PhaseScrape, City: "Berlin", Percent: 25},
	}
	_, body = get(t, ts.URL+"/api/v1/sync")
	data := body.Data.(map[string]any)
	assert.Equal(t, "job-1", data["id"])
	assert.Equal(t, "running", data["status"])
	assert.Equal(t, "Berlin", data["progress"].(map[string]any)["city"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newServer(t, &fakeBackend{})

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/plain")

	res, err = http.Post(ts.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestWebSocketFeed(t *testing.T) {
	s, ts := newServer(t, &fakeBackend{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	s.Publish(events.SyncProgress, map[string]any{"percent": 40})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var e events.Event
		require.NoError(t, json.Unmarshal(data, &e))
		if e.Type == events.ClientConnected {
			continue
		}
		assert.Equal(t, events.SyncProgress, e.Type)
		assert.EqualValues(t, 40, e.Data.(map[string]any)["percent"])
		return
	}
}

func TestListenAndServeStops(t *testing.T) {
	logger := zerolog.Nop()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(&fakeBackend{}, cfg, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
