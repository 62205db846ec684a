package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/metrics"
)

// SessionServiceConfig holds configuration for the session service
type SessionServiceConfig struct {
	TTL time.Duration
}

// SessionService drives the candidate selection state machine of each page
// session. Session state lives in the cache; every transition is followed by
// a highlight command reflecting the new state.
type SessionService struct {
	// mu serializes transitions so a store change never interleaves with a
	// user event on the same session.
	mu       sync.Mutex
	store    domain.RecordStore
	cache    domain.CacheRepository
	reporter domain.HighlightReporter
	matcher  *MatchingService
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	// observed tracks sessions holding an observation; only those need a
	// recompute when the store changes.
	observed map[string]struct{}
}

// NewSessionService creates a new session service with dependencies
func NewSessionService(
	store domain.RecordStore,
	cache domain.CacheRepository,
	reporter domain.HighlightReporter,
	matcher *MatchingService,
	logger *zap.Logger,
	config SessionServiceConfig,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := config.TTL
	if ttl == 0 {
		ttl = 12 * time.Hour
	}

	return &SessionService{
		store:    store,
		cache:    cache,
		reporter: reporter,
		matcher:  matcher,
		logger:   logger.Named("sessions"),
		ttl:      ttl,
		now:      time.Now,
		observed: make(map[string]struct{}),
	}
}

// Start opens a new session with no observation and publishes an all-clear
// highlight command for it
func (s *SessionService) Start(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		State:     InitialSelectionState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	if err := s.reporter.ApplyHighlights(ctx, session.ID, []domain.FieldDiscrepancy{}); err != nil {
		s.logger.Warn("failed to publish initial highlights", zap.String("session_id", session.ID), zap.Error(err))
	}

	metrics.SessionsStartedTotal.Inc()
	s.logger.Debug("session started", zap.String("session_id", session.ID))
	return session, nil
}

// Get returns the current state of a session
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.load(ctx, id)
}

// Observe matches a fresh observation against the current store contents.
// Any previous candidates or selection are discarded.
func (s *SessionService) Observe(ctx context.Context, id string, fields domain.Fields) (*domain.Session, error) {
	if fields == nil {
		return nil, fmt.Errorf("%w: observation has no fields", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	event := ObservationReceived{
		Observation: domain.Observation{Fields: fields.Clone(), ObservedAt: s.now()},
		Records:     records,
	}
	if err := s.apply(ctx, session, event, "observation"); err != nil {
		return nil, err
	}
	s.observed[id] = struct{}{}
	return session, nil
}

// Select picks one candidate of an ambiguous set by identity hash
func (s *SessionService) Select(ctx context.Context, id, hash string) (*domain.Session, error) {
	return s.userEvent(ctx, id, CandidateSelected{Hash: hash}, "select")
}

// Deselect clears a user selection
func (s *SessionService) Deselect(ctx context.Context, id string) (*domain.Session, error) {
	return s.userEvent(ctx, id, CandidateDeselected{}, "deselect")
}

// End removes a session and clears its highlights
func (s *SessionService) End(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return err
	}
	delete(s.observed, id)

	if err := s.reporter.ApplyHighlights(ctx, id, []domain.FieldDiscrepancy{}); err != nil {
		s.logger.Warn("failed to clear highlights", zap.String("session_id", id), zap.Error(err))
	}
	s.logger.Debug("session ended", zap.String("session_id", id))
	return nil
}

// StoreChanged recomputes every session holding an observation against a
// fresh store snapshot. It implements domain.StoreObserver.
func (s *SessionService) StoreChanged(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.observed) == 0 {
		return nil
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for id := range s.observed {
		session, err := s.load(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			delete(s.observed, id)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.apply(ctx, session, StoreChanged{Records: records}, "store_changed"); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *SessionService) userEvent(ctx context.Context, id string, event SelectionEvent, name string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.apply(ctx, session, event, name)
	metrics.SelectionsTotal.WithLabelValues(name, metrics.Status(err)).Inc()
	if err != nil {
		return nil, err
	}
	return session, nil
}

// apply runs one transition, persists the result and pushes highlights.
// session is updated in place only when the transition succeeds.
func (s *SessionService) apply(ctx context.Context, session *domain.Session, event SelectionEvent, trigger string) error {
	next, err := s.matcher.Transition(session.State, event)
	if err != nil {
		return err
	}

	updated := *session
	updated.State = next
	updated.UpdatedAt = s.now()
	if err := s.save(ctx, &updated); err != nil {
		return err
	}
	*session = updated

	metrics.MatchPassesTotal.WithLabelValues(trigger, string(next.Phase)).Inc()
	if _, ok := event.(CandidateDeselected); !ok {
		metrics.MatchCandidates.Observe(float64(len(next.Candidates)))
	}

	s.logger.Debug("session transition",
		zap.String("session_id", session.ID),
		zap.String("trigger", trigger),
		zap.String("phase", string(next.Phase)),
		zap.Int("candidates", len(next.Candidates)))

	if err := s.reporter.ApplyHighlights(ctx, session.ID, ActiveDiscrepancies(next)); err != nil {
		s.logger.Warn("failed to apply highlights", zap.String("session_id", session.ID), zap.Error(err))
	}
	return nil
}

func (s *SessionService) load(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.cache.Get(ctx, sessionKey(id))
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SessionService) save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return s.cache.Set(ctx, sessionKey(session.ID), data, s.ttl)
}

func sessionKey(id string) string {
	return "session:" + id
}
