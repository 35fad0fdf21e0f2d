package publish

import (
	"slices"

	"github.com/agentstation/lineup/pkg/types"
)

// transitions is the fixed table of legal lifecycle edges. Every
// non-terminal state may also move to REJECTED or CANCELED.
var transitions = map[types.EventState][]types.EventState{
	types.StateManualDraft:            {types.StateApprovedPendingDetails},
	types.StateScrapedDraft:           {types.StateApprovedPendingDetails},
	types.StateApprovedPendingDetails: {types.StateReadyToPublish},
	types.StateReadyToPublish:         {types.StatePublished, types.StateApprovedPendingDetails},
	types.StatePublished:              {types.StateReadyToPublish},
}

// Targets returns the states an event in from may move to.
func Targets(from types.EventState) []types.EventState {
	if from.IsTerminal() || !from.IsValid() {
		return nil
	}
	out := slices.Clone(transitions[from])
	return append(out, types.StateRejected, types.StateCanceled)
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to types.EventState) bool {
	return slices.Contains(Targets(from), to)
}

// RequiresValidation reports whether entering to needs a publish-ready
// event.
func RequiresValidation(to types.EventState) bool {
	return to == types.StateReadyToPublish || to == types.StatePublished
}

// InitialState returns the state a new event starts in.
func InitialState(manual bool) types.EventState {
	if manual {
		return types.StateManualDraft
	}
	return types.StateScrapedDraft
}
