package usecase

import (
	"fmt"

	"github.com/buyercheck/backend/internal/domain"
)

// SelectionEvent is an input to the candidate selection state machine
type SelectionEvent interface {
	selectionEvent()
}

// ObservationReceived carries a fresh buyer observation and the store
// snapshot it must be matched against.
type ObservationReceived struct {
	Observation domain.Observation
	Records     []domain.EntityRecord
}

// StoreChanged carries the store snapshot after a create, edit or delete
type StoreChanged struct {
	Records []domain.EntityRecord
}

// CandidateSelected picks one candidate of an ambiguous set by identity hash
type CandidateSelected struct {
	Hash string
}

// CandidateDeselected clears a user selection
type CandidateDeselected struct{}

func (ObservationReceived) selectionEvent() {}
func (StoreChanged) selectionEvent()        {}
func (CandidateSelected) selectionEvent()   {}
func (CandidateDeselected) selectionEvent() {}

// InitialSelectionState is the state of a session before any observation
func InitialSelectionState() domain.SelectionState {
	return domain.SelectionState{
		Phase:      domain.PhaseNoObservation,
		Candidates: []domain.MatchCandidate{},
		Selected:   domain.NoSelection,
	}
}

// Transition applies event to state and returns the next state. It has no
// side effects; the input state is never modified.
func (s *MatchingService) Transition(state domain.SelectionState, event SelectionEvent) (domain.SelectionState, error) {
	switch ev := event.(type) {
	case ObservationReceived:
		obs := ev.Observation
		return s.evaluate(&obs, ev.Records), nil

	case StoreChanged:
		if state.Observation == nil {
			return state, nil
		}
		return s.evaluate(state.Observation, ev.Records), nil

	case CandidateSelected:
		if state.Phase != domain.PhaseAmbiguous && state.Phase != domain.PhaseUserSelected {
			return state, fmt.Errorf("%w: cannot select in phase %s", domain.ErrInvalidTransition, state.Phase)
		}
		for i, c := range state.Candidates {
			if c.Record.IdentityHash == ev.Hash {
				next := state
				next.Phase = domain.PhaseUserSelected
				next.Selected = i
				return next, nil
			}
		}
		return state, fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, ev.Hash)

	case CandidateDeselected:
		if state.Phase != domain.PhaseUserSelected {
			return state, fmt.Errorf("%w: nothing selected in phase %s", domain.ErrInvalidTransition, state.Phase)
		}
		next := state
		next.Phase = domain.PhaseAmbiguous
		next.Selected = domain.NoSelection
		return next, nil
	}

	return state, fmt.Errorf("%w: unknown event %T", domain.ErrInvalidTransition, event)
}

// evaluate runs a matching pass and maps its outcome onto a phase. An empty
// store is reported apart from a TIN miss so the user is asked to add entities.
func (s *MatchingService) evaluate(obs *domain.Observation, records []domain.EntityRecord) domain.SelectionState {
	if len(records) == 0 {
		return domain.SelectionState{
			Phase:       domain.PhaseEmptyStore,
			Observation: obs,
			Candidates:  []domain.MatchCandidate{},
			Selected:    domain.NoSelection,
		}
	}

	result := s.FindCandidates(*obs, records)
	next := domain.SelectionState{
		Outcome:     result.Outcome,
		Observation: obs,
		Candidates:  result.Candidates,
		Selected:    result.Preselected,
	}
	switch result.Outcome {
	case domain.OutcomeNoMatch:
		next.Phase = domain.PhaseNoMatch
	case domain.OutcomeAmbiguous:
		next.Phase = domain.PhaseAmbiguous
	default:
		next.Phase = domain.PhaseSingleCandidate
	}
	return next
}

// ActiveDiscrepancies returns the discrepancies of the selected or
// preselected candidate, or an empty slice when nothing is selected.
func ActiveDiscrepancies(state domain.SelectionState) []domain.FieldDiscrepancy {
	if state.Phase != domain.PhaseSingleCandidate && state.Phase != domain.PhaseUserSelected {
		return []domain.FieldDiscrepancy{}
	}
	if state.Selected < 0 || state.Selected >= len(state.Candidates) {
		return []domain.FieldDiscrepancy{}
	}
	return state.Candidates[state.Selected].Discrepancies
}

// AlertFor returns the side panel message for a selection state
func AlertFor(state domain.SelectionState) *domain.Alert {
	switch state.Phase {
	case domain.PhaseEmptyStore:
		return &domain.Alert{Type: domain.AlertInfo, Title: "Info", Description: "No entities created. Please add entities."}
	case domain.PhaseNoMatch:
		return &domain.Alert{Type: domain.AlertInfo, Title: "Info", Description: "No matching entity found. Please check the TIN."}
	case domain.PhaseSingleCandidate:
		if state.Outcome == domain.OutcomeMatchedWithWarnings {
			return &domain.Alert{Type: domain.AlertWarning, Title: "Warning", Description: "Entity found, but some details don't match."}
		}
		return &domain.Alert{Type: domain.AlertSuccess, Title: "Success", Description: "Entity fully matched."}
	case domain.PhaseAmbiguous, domain.PhaseUserSelected:
		return &domain.Alert{Type: domain.AlertWarning, Title: "Warning", Description: "Multiple entities found. Please select one."}
	}
	return nil
}
