package domain

import "time"

// Phase is the candidate-selection state of a page session
type Phase string

const (
	PhaseNoObservation   Phase = "no_observation"
	PhaseEmptyStore      Phase = "empty_store"
	PhaseNoMatch         Phase = "no_match"
	PhaseSingleCandidate Phase = "single_candidate"
	PhaseAmbiguous       Phase = "ambiguous"
	PhaseUserSelected    Phase = "user_selected"
)

// SelectionState is the state of one page session's candidate selection.
// Selected indexes Candidates, or is NoSelection.
type SelectionState struct {
	Phase       Phase            `json:"phase"`
	Outcome     MatchOutcome     `json:"outcome,omitempty"`
	Observation *Observation     `json:"observation,omitempty"`
	Candidates  []MatchCandidate `json:"candidates"`
	Selected    int              `json:"selected"`
}

// Session is a selection state bound to one browser tab
type Session struct {
	ID        string         `json:"id"`
	State     SelectionState `json:"state"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// AlertType mirrors the side panel alert styles
type AlertType string

const (
	AlertSuccess AlertType = "success"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
	AlertError   AlertType = "error"
)

// Alert is the user-facing message for a session phase
type Alert struct {
	Type        AlertType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// FieldHighlight is the rendering instruction for one form field
type FieldHighlight struct {
	Key       FieldKey `json:"key"`
	Highlight bool     `json:"highlight"`
	Message   string   `json:"message,omitempty"`
}

// HighlightCommand is the latest set of field highlights for a session.
// Fields always covers every recognized key so the page can clear stale marks.
type HighlightCommand struct {
	SessionID string           `json:"sessionId"`
	Version   uint64           `json:"version"`
	Fields    []FieldHighlight `json:"fields"`
	IssuedAt  time.Time        `json:"issuedAt"`
}

// SessionView is a session together with the side panel alert for its phase
type SessionView struct {
	Session
	Alert *Alert `json:"alert"`
}
