package domain

// FieldDiscrepancy is a single field whose stored value differs from the
// observed one. Actual is nil when the observation did not carry the field.
type FieldDiscrepancy struct {
	Key      FieldKey `json:"key"`
	Expected string   `json:"expected"`
	Actual   *string  `json:"actual"`
}

// MatchCandidate is a stored entity considered as the observed buyer
type MatchCandidate struct {
	Record        EntityRecord       `json:"record"`
	Discrepancies []FieldDiscrepancy `json:"discrepancies"`
}

// IsPerfect reports whether the candidate has no discrepancies
func (c MatchCandidate) IsPerfect() bool {
	return len(c.Discrepancies) == 0
}

// MatchOutcome classifies a matching pass
type MatchOutcome string

const (
	OutcomeNoMatch             MatchOutcome = "no_match"
	OutcomeFullyMatched        MatchOutcome = "fully_matched"
	OutcomeMatchedWithWarnings MatchOutcome = "matched_with_warnings"
	OutcomeAmbiguous           MatchOutcome = "ambiguous"
)

// NoSelection marks a result or session without a selected candidate
const NoSelection = -1

// MatchResult is the ranked output of one matching pass
type MatchResult struct {
	Outcome     MatchOutcome     `json:"outcome"`
	Candidates  []MatchCandidate `json:"candidates"`
	Preselected int              `json:"preselected"`
}
