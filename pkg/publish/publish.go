// Package publish implements the event lifecycle: a fixed transition
// table, publish-readiness validation, the append-only history log and the
// expiry sweep.
package publish

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
	"github.com/agentstation/lineup/pkg/logging"
	"github.com/agentstation/lineup/pkg/normalize"
	"github.com/agentstation/lineup/pkg/types"
)

// TransitionFunc is called after each committed transition.
type TransitionFunc func(ctx context.Context, t catalogs.StateTransition)

// Machine moves events through their lifecycle.
type Machine struct {
	store        *store.Store
	norm         *normalize.Normalizer
	metrics      *metrics.Metrics
	now          func() time.Time
	loc          *time.Location
	sweepStates  []types.EventState
	onTransition []TransitionFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithNormalizer sets the normalizer used to compare curated and scraped
// copy.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Machine) {
		if n != nil {
			m.norm = n
		}
	}
}

// WithMetrics records transition counters on m.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) {
		m.metrics = mt
	}
}

// WithClock replaces time.Now for the expiry sweep.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation sets the time zone event dates and times are in.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithSweepStates limits the expiry sweep to events in states.
func WithSweepStates(states ...types.EventState) Option {
	return func(m *Machine) {
		m.sweepStates = states
	}
}

// WithOnTransition registers fn to observe transitions.
func WithOnTransition(fn TransitionFunc) Option {
	return func(m *Machine) {
		if fn != nil {
			m.onTransition = append(m.onTransition, fn)
		}
	}
}

// New returns a Machine over s.
func New(s *store.Store, opts ...Option) *Machine {
	m := &Machine{
		store:       s,
		norm:        normalize.New(),
		now:         time.Now,
		loc:         time.UTC,
		sweepStates: types.NonTerminalStates(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition moves an event to state to. Illegal edges fail with an
// *errors.InvalidTransitionError and events that are not ready for
// READY_TO_PUBLISH or PUBLISHED fail with an *errors.PublishValidationError;
// in both cases nothing is written.
func (m *Machine) Transition(ctx context.Context, eventID uint, to types.EventState, actor, reason string) (*catalogs.StateTransition, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, errors.NewValidationError("actor", actor, "required")
	}
	if !to.IsValid() {
		return nil, errors.NewValidationError("state", to, "unknown state")
	}

	var entry *catalogs.StateTransition
	err := m.store.Tx(ctx, func(tx *store.Store) error {
		c, err := tx.LockCanonical(ctx, types.EntityEvent, eventID)
		if err != nil {
			return err
		}
		event := c.(*catalogs.Event)
		if !CanTransition(event.State, to) {
			return &errors.InvalidTransitionError{EventID: eventID, From: string(event.State), To: string(to)}
		}
		if RequiresValidation(to) {
			if err := m.validate(ctx, tx, event, to); err != nil {
				return err
			}
		}

		entry = &catalogs.StateTransition{
			EventID: eventID,
			From:    event.State,
			To:      to,
			Actor:   actor,
			Reason:  reason,
		}
		event.State = to
		if err := tx.SaveCanonical(ctx, event); err != nil {
			return err
		}
		return tx.AppendTransition(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.Transition(string(to))
	logging.FromContext(ctx).Info().
		Uint("event_id", eventID).
		Str("from", string(entry.From)).
		Str("to", string(to)).
		Str("actor", actor).
		Msg("Event transitioned")
	for _, fn := range m.onTransition {
		fn(ctx, *entry)
	}
	return entry, nil
}

// BulkResult is the outcome of one event of a bulk transition.
type BulkResult struct {
	EventID    uint                      `json:"event_id"`
	Transition *catalogs.StateTransition `json:"transition,omitempty"`
	Error      string                    `json:"error,omitempty"`
	Err        error                     `json:"-"`
}

// BulkTransition transitions each event independently; one failure does
// not affect the others.
func (m *Machine) BulkTransition(ctx context.Context, eventIDs []uint, to types.EventState, actor, reason string) []BulkResult {
	out := make([]BulkResult, 0, len(eventIDs))
	for _, id := range eventIDs {
		res := BulkResult{EventID: id}
		res.Transition, res.Err = m.Transition(ctx, id, to, actor, reason)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		out = append(out, res)
	}
	return out
}

// Validate checks whether an event may enter target without moving it.
func (m *Machine) Validate(ctx context.Context, eventID uint, target types.EventState) error {
	c, err := m.store.GetCanonical(ctx, types.EntityEvent, eventID)
	if err != nil {
		return err
	}
	return m.validate(ctx, m.store, c.(*catalogs.Event), target)
}

// validate requires a title, a date and a venue, and requires the title
// and description to differ from the text every linked source reported.
func (m *Machine) validate(ctx context.Context, s *store.Store, event *catalogs.Event, target types.EventState) error {
	verr := &errors.PublishValidationError{EventID: event.ID, Target: string(target)}
	for _, f := range []types.Field{types.FieldTitle, types.FieldDate, types.FieldVenue} {
		if event.Value(f) == "" {
			verr.Missing = append(verr.Missing, string(f))
		}
	}

	raws, err := s.RawsForCanonical(ctx, types.EntityEvent, event.ID)
	if err != nil {
		return err
	}
	for _, f := range []types.Field{types.FieldTitle, types.FieldDescription} {
		own := m.norm.Text(event.Value(f))
		if own == "" {
			continue
		}
		for _, raw := range raws {
			if raw.IsCurated() {
				continue
			}
			if m.norm.Text(raw.Data().Get(f)) == own {
				verr.Unedited = append(verr.Unedited, string(f))
				break
			}
		}
	}

	if len(verr.Missing) > 0 || len(verr.Unedited) > 0 {
		return verr
	}
	return nil
}

// History returns an event's transitions, oldest first. History outlives
// the event: merged and deleted events keep theirs.
func (m *Machine) History(ctx context.Context, eventID uint) ([]catalogs.StateTransition, error) {
	return m.store.Transitions(ctx, eventID)
}

// SweepResult reports an expiry sweep.
type SweepResult struct {
	Examined int      `json:"examined"`
	Rejected []uint   `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// Sweep rejects every event in a sweepable state whose start has passed.
// Events without a start time expire at the end of their day; events
// without a date never expire.
func (m *Machine) Sweep(ctx context.Context) (*SweepResult, error) {
	now := m.now().In(m.loc)
	events, err := m.store.EventsInStates(ctx, m.sweepStates, now.Format(constants.DateFormat))
	if err != nil {
		return nil, err
	}

	res := &SweepResult{}
	for i := range events {
		event := &events[i]
		res.Examined++
		starts, ok := event.StartsAt(m.loc)
		if !ok || starts.After(now) {
			continue
		}
		if _, err := m.Transition(ctx, event.ID, types.StateRejected, constants.SystemExpiryActor, "event date passed"); err != nil {
			// a concurrent transition may have beaten the sweep
			if errors.IsInvalidTransition(err) || errors.IsNotFound(err) {
				continue
			}
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Rejected = append(res.Rejected, event.ID)
	}

	if len(res.Rejected) > 0 || len(res.Errors) > 0 {
		logging.FromContext(ctx).Info().
			Int("examined", res.Examined).
			Int("rejected", len(res.Rejected)).
			Int("errors", len(res.Errors)).
			Msg("Expiry sweep finished")
	}
	return res, nil
}
