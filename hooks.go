package lineup

import (
	"context"
	"sync"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/dedupe"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for sync and lifecycle events
type (
	// SyncProgressHook is called whenever a running sync reports progress
	SyncProgressHook func(job JobSnapshot)

	// SyncFinishedHook is called once a sync job reached a terminal status
	SyncFinishedHook func(job JobSnapshot)

	// MergedHook is called after the deduplicator merged two canonical records
	MergedHook func(m Merge)

	// TransitionHook is called after an event changed state
	TransitionHook func(t catalogs.StateTransition)

	// SweepFinishedHook is called after each expiry sweep
	SweepFinishedHook func(res SweepResult)
)

// Hooks provides event callback registration.
type Hooks interface {
	// OnSyncProgress registers a callback for sync progress
	OnSyncProgress(SyncProgressHook)

	// OnSyncFinished registers a callback for finished sync jobs
	OnSyncFinished(SyncFinishedHook)

	// OnMerged registers a callback for merges
	OnMerged(MergedHook)

	// OnTransition registers a callback for event state changes
	OnTransition(TransitionHook)

	// OnSweepFinished registers a callback for expiry sweeps
	OnSweepFinished(SweepFinishedHook)
}

// hooks manages event callbacks.
type hooks struct {
	mu             sync.RWMutex
	onSyncProgress []SyncProgressHook
	onSyncFinished []SyncFinishedHook
	onMerged       []MergedHook
	onTransition   []TransitionHook
	onSweep        []SweepFinishedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnSyncProgress registers a callback for sync progress.
func (c *client) OnSyncProgress(fn SyncProgressHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncProgress = append(c.hooks.onSyncProgress, fn)
}

// OnSyncFinished registers a callback for finished sync jobs.
func (c *client) OnSyncFinished(fn SyncFinishedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSyncFinished = append(c.hooks.onSyncFinished, fn)
}

// OnMerged registers a callback for merges.
func (c *client) OnMerged(fn MergedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onMerged = append(c.hooks.onMerged, fn)
}

// OnTransition registers a callback for event state changes.
func (c *client) OnTransition(fn TransitionHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onTransition = append(c.hooks.onTransition, fn)
}

// OnSweepFinished registers a callback for expiry sweeps.
func (c *client) OnSweepFinished(fn SweepFinishedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onSweep = append(c.hooks.onSweep, fn)
}

// syncProgress fans a progress snapshot out to the registered hooks.
func (h *hooks) syncProgress(_ context.Context, job jobs.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSyncProgress {
		fn(job)
	}
}

func (h *hooks) syncFinished(_ context.Context, job jobs.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSyncFinished {
		fn(job)
	}
}

func (h *hooks) merged(_ context.Context, m dedupe.Merge) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onMerged {
		fn(m)
	}
}

func (h *hooks) transitioned(_ context.Context, t catalogs.StateTransition) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onTransition {
		fn(t)
	}
}

func (h *hooks) swept(res SweepResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onSweep {
		fn(res)
	}
}
