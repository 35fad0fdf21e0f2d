package store

import (
	"context"

	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/utc"
)

// AppendTransition adds an entry to an event's history.
func (s *Store) AppendTransition(ctx context.Context, t *catalogs.StateTransition) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utc.Now().Time
	}
	return s.conn(ctx).Create(t).Error
}

// Transitions returns an event's history, oldest first.
func (s *Store) Transitions(ctx context.Context, eventID uint) ([]catalogs.StateTransition, error) {
	var out []catalogs.StateTransition
	err := s.conn(ctx).Where("event_id = ?", eventID).Order("created_at, id").Find(&out).Error
	return out, err
}
