package types

// EventState is a canonical event's publish lifecycle state.
type EventState string

// Event lifecycle states.
const (
	StateManualDraft            EventState = "MANUAL_DRAFT"
	StateScrapedDraft           EventState = "SCRAPED_DRAFT"
	StateApprovedPendingDetails EventState = "APPROVED_PENDING_DETAILS"
	StateReadyToPublish         EventState = "READY_TO_PUBLISH"
	StatePublished              EventState = "PUBLISHED"
	StateRejected               EventState = "REJECTED"
	StateCanceled               EventState = "CANCELED"
)

// EventStates returns every lifecycle state.
func EventStates() []EventState {
	return []EventState{
		StateManualDraft,
		StateScrapedDraft,
		StateApprovedPendingDetails,
		StateReadyToPublish,
		StatePublished,
		StateRejected,
		StateCanceled,
	}
}

// String returns the string representation of a state.
func (s EventState) String() string {
	return string(s)
}

// IsValid reports whether s is a defined state.
func (s EventState) IsValid() bool {
	for _, st := range EventStates() {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s EventState) IsTerminal() bool {
	return s == StateRejected || s == StateCanceled
}

// NonTerminalStates returns the states an event can still move out of.
func NonTerminalStates() []EventState {
	var out []EventState
	for _, st := range EventStates() {
		if !st.IsTerminal() {
			out = append(out, st)
		}
	}
	return out
}
