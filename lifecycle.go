package lineup

import (
	"context"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/types"
)

// Compile-time interface check to ensure proper implementation.
var _ Lifecycle = (*client)(nil)

// Lifecycle moves events through their publishing states.
type Lifecycle interface {
	// Transition moves one event to state to.
	Transition(ctx context.Context, eventID uint, to types.EventState, actor, reason string) (*catalogs.StateTransition, error)

	// BulkTransition moves each event independently; one failure does not
	// stop the others.
	BulkTransition(ctx context.Context, eventIDs []uint, to types.EventState, actor, reason string) ([]BulkResult, error)

	// History returns an event's transitions, oldest first.
	History(ctx context.Context, eventID uint) ([]catalogs.StateTransition, error)

	// Sweep rejects events whose start has passed.
	Sweep(ctx context.Context) (*SweepResult, error)
}

// Transition moves one event to state to.
func (c *client) Transition(ctx context.Context, eventID uint, to types.EventState, actor, reason string) (*catalogs.StateTransition, error) {
	if !to.IsValid() {
		return nil, errors.NewValidationError("state", to, "unknown event state")
	}
	return c.machine.Transition(ctx, eventID, to, actor, reason)
}

// BulkTransition moves each event independently.
func (c *client) BulkTransition(ctx context.Context, eventIDs []uint, to types.EventState, actor, reason string) ([]BulkResult, error) {
	if !to.IsValid() {
		return nil, errors.NewValidationError("state", to, "unknown event state")
	}
	if len(eventIDs) == 0 {
		return nil, errors.NewValidationError("event_ids", eventIDs, "at least one event is required")
	}
	return c.machine.BulkTransition(ctx, eventIDs, to, actor, reason), nil
}

// History returns an event's transitions, oldest first.
func (c *client) History(ctx context.Context, eventID uint) ([]catalogs.StateTransition, error) {
	return c.machine.History(ctx, eventID)
}

// Sweep rejects events whose start has passed and notifies the sweep
// hooks.
func (c *client) Sweep(ctx context.Context) (*SweepResult, error) {
	res, err := c.machine.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	c.hooks.swept(*res)
	return res, nil
}
