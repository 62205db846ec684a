package usecase

import (
	"sort"

	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	EnableDebugLogging bool
}

// MatchingService matches an observed buyer against the entity directory and
// reports field-level discrepancies. It never mutates its inputs.
type MatchingService struct {
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(logger *zap.Logger, config MatchConfig) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{
		logger:             logger.Named("matching"),
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// FindCandidates filters records by TIN and ranks them against the
// observation. Records are scanned in the order given, which is store order.
//
// One TIN match is always preselected. With several, the first perfect match
// in store order wins alone; otherwise all of them are returned sorted by
// discrepancy count (stable) and nothing is preselected.
func (s *MatchingService) FindCandidates(observation domain.Observation, records []domain.EntityRecord) domain.MatchResult {
	filtered := filterByTIN(observation.Fields, records)

	if s.enableDebugLogging {
		tin, _ := observation.Fields.Get(domain.FieldTIN)
		s.logger.Debug("tin filter applied",
			zap.String("tin", tin),
			zap.Int("records", len(records)),
			zap.Int("filtered", len(filtered)))
	}

	switch len(filtered) {
	case 0:
		return domain.MatchResult{
			Outcome:     domain.OutcomeNoMatch,
			Candidates:  []domain.MatchCandidate{},
			Preselected: domain.NoSelection,
		}
	case 1:
		candidate := domain.MatchCandidate{
			Record:        filtered[0],
			Discrepancies: s.Diff(filtered[0].Fields, observation.Fields),
		}
		outcome := domain.OutcomeFullyMatched
		if !candidate.IsPerfect() {
			outcome = domain.OutcomeMatchedWithWarnings
		}
		s.debugCandidates(outcome, candidate)
		return domain.MatchResult{
			Outcome:     outcome,
			Candidates:  []domain.MatchCandidate{candidate},
			Preselected: 0,
		}
	}

	candidates := make([]domain.MatchCandidate, 0, len(filtered))
	for _, record := range filtered {
		candidate := domain.MatchCandidate{
			Record:        record,
			Discrepancies: s.Diff(record.Fields, observation.Fields),
		}
		if candidate.IsPerfect() {
			s.debugCandidates(domain.OutcomeFullyMatched, candidate)
			return domain.MatchResult{
				Outcome:     domain.OutcomeFullyMatched,
				Candidates:  []domain.MatchCandidate{candidate},
				Preselected: 0,
			}
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Discrepancies) < len(candidates[j].Discrepancies)
	})
	s.debugCandidates(domain.OutcomeAmbiguous, candidates...)

	return domain.MatchResult{
		Outcome:     domain.OutcomeAmbiguous,
		Candidates:  candidates,
		Preselected: domain.NoSelection,
	}
}

// Diff compares every recognized key present in expected against actual
// using strict string equality. An absent actual value is a mismatch.
// The result follows domain.RecognizedKeys order and may be empty.
func (s *MatchingService) Diff(expected, actual domain.Fields) []domain.FieldDiscrepancy {
	return diffFields(expected, actual)
}

func diffFields(expected, actual domain.Fields) []domain.FieldDiscrepancy {
	discrepancies := []domain.FieldDiscrepancy{}
	for _, key := range domain.RecognizedKeys {
		want, ok := expected.Get(key)
		if !ok {
			continue
		}
		got, present := actual.Get(key)
		if present && got == want {
			continue
		}
		d := domain.FieldDiscrepancy{Key: key, Expected: want}
		if present {
			value := got
			d.Actual = &value
		}
		discrepancies = append(discrepancies, d)
	}
	return discrepancies
}

// filterByTIN keeps records whose tin is byte-equal to the observed tin.
// An empty observed tin still matches records with an empty tin; an absent
// one matches nothing.
func filterByTIN(observed domain.Fields, records []domain.EntityRecord) []domain.EntityRecord {
	filtered := make([]domain.EntityRecord, 0, len(records))
	tin, present := observed.Get(domain.FieldTIN)
	if !present {
		return filtered
	}
	for _, record := range records {
		recordTIN, ok := record.Fields.Get(domain.FieldTIN)
		if ok && recordTIN == tin {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func (s *MatchingService) debugCandidates(outcome domain.MatchOutcome, candidates ...domain.MatchCandidate) {
	if !s.enableDebugLogging {
		return
	}
	for i, c := range candidates {
		s.logger.Debug("candidate",
			zap.String("outcome", string(outcome)),
			zap.Int("rank", i),
			zap.String("entity", c.Record.Name),
			zap.String("hash", c.Record.IdentityHash),
			zap.Int("discrepancies", len(c.Discrepancies)))
	}
}
