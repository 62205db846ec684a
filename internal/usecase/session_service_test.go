package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
)

type sessionFixture struct {
	svc      *SessionService
	store    *MockRecordStore
	cache    *MockCacheRepository
	reporter *MockHighlightReporter
}

func newSessionFixture(records ...domain.EntityRecord) *sessionFixture {
	f := &sessionFixture{
		store:    NewMockRecordStore(records...),
		cache:    NewMockCacheRepository(),
		reporter: NewMockHighlightReporter(),
	}
	f.svc = NewSessionService(
		f.store,
		f.cache,
		f.reporter,
		NewMatchingService(zap.NewNop(), MatchConfig{}),
		zap.NewNop(),
		SessionServiceConfig{TTL: time.Hour},
	)
	return f
}

func TestNewSessionService(t *testing.T) {
	t.Run("default ttl", func(t *testing.T) {
		svc := NewSessionService(nil, nil, nil, nil, nil, SessionServiceConfig{})
		assert.Equal(t, 12*time.Hour, svc.ttl)
	})

	t.Run("custom ttl", func(t *testing.T) {
		svc := NewSessionService(nil, nil, nil, nil, nil, SessionServiceConfig{TTL: time.Minute})
		assert.Equal(t, time.Minute, svc.ttl)
	})
}

func TestSessionService_StartAndGet(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()

	session, err := f.svc.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, domain.PhaseNoObservation, session.State.Phase)
	assert.Equal(t, 1, f.reporter.count(session.ID), "start publishes a clear command")
	assert.Empty(t, f.reporter.last(session.ID))

	loaded, err := f.svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, domain.NoSelection, loaded.State.Selected)

	_, err = f.svc.Get(ctx, "unknown")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestSessionService_Observe(t *testing.T) {
	ctx := context.Background()

	t.Run("single candidate drives highlights", func(t *testing.T) {
		f := newSessionFixture(record("a", withMismatches(buyerFields("111"), 2)))
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)

		got, err := f.svc.Observe(ctx, session.ID, buyerFields("111"))
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseSingleCandidate, got.State.Phase)
		assert.Equal(t, domain.OutcomeMatchedWithWarnings, got.State.Outcome)
		assert.Len(t, f.reporter.last(session.ID), 2)

		loaded, err := f.svc.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseSingleCandidate, loaded.State.Phase)
		require.NotNil(t, loaded.State.Observation)
		assert.Equal(t, "111", loaded.State.Observation.Fields[domain.FieldTIN])
	})

	t.Run("observation drops unrecognized keys", func(t *testing.T) {
		f := newSessionFixture(record("a", buyerFields("111")))
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)

		fields := buyerFields("111")
		fields["extra"] = "ignored"
		got, err := f.svc.Observe(ctx, session.ID, fields)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeFullyMatched, got.State.Outcome)
		assert.NotContains(t, got.State.Observation.Fields, domain.FieldKey("extra"))
		assert.Empty(t, f.reporter.last(session.ID))
	})

	t.Run("empty store", func(t *testing.T) {
		f := newSessionFixture()
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)

		got, err := f.svc.Observe(ctx, session.ID, buyerFields("111"))
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseEmptyStore, got.State.Phase)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newSessionFixture()
		_, err := f.svc.Observe(ctx, "missing", buyerFields("111"))
		assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	})

	t.Run("nil fields", func(t *testing.T) {
		f := newSessionFixture()
		_, err := f.svc.Observe(ctx, "any", nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("store failure leaves session untouched", func(t *testing.T) {
		f := newSessionFixture(record("a", buyerFields("111")))
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)

		f.store.listError = errors.New("disk gone")
		_, err = f.svc.Observe(ctx, session.ID, buyerFields("111"))
		require.Error(t, err)

		loaded, err := f.svc.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseNoObservation, loaded.State.Phase)
	})
}

func TestSessionService_SelectDeselect(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(ambiguousRecords("111")...)

	session, err := f.svc.Start(ctx)
	require.NoError(t, err)
	got, err := f.svc.Observe(ctx, session.ID, buyerFields("111"))
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAmbiguous, got.State.Phase)
	assert.Empty(t, f.reporter.last(session.ID))

	got, err = f.svc.Select(ctx, session.ID, "hash-second")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseUserSelected, got.State.Phase)
	assert.Len(t, f.reporter.last(session.ID), 1)

	got, err = f.svc.Deselect(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAmbiguous, got.State.Phase)
	assert.Empty(t, f.reporter.last(session.ID))

	t.Run("rejected events keep state", func(t *testing.T) {
		calls := f.reporter.count(session.ID)

		_, err := f.svc.Deselect(ctx, session.ID)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

		_, err = f.svc.Select(ctx, session.ID, "nope")
		assert.True(t, errors.Is(err, domain.ErrCandidateNotFound))

		loaded, err := f.svc.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseAmbiguous, loaded.State.Phase)
		assert.Equal(t, calls, f.reporter.count(session.ID))
	})
}

func TestSessionService_StoreChanged(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes observed sessions only", func(t *testing.T) {
		f := newSessionFixture(ambiguousRecords("111")...)

		observed, err := f.svc.Start(ctx)
		require.NoError(t, err)
		_, err = f.svc.Observe(ctx, observed.ID, buyerFields("111"))
		require.NoError(t, err)
		_, err = f.svc.Select(ctx, observed.ID, "hash-first")
		require.NoError(t, err)

		idle, err := f.svc.Start(ctx)
		require.NoError(t, err)

		require.NoError(t, f.store.Insert(ctx, record("fixed", buyerFields("111"))))
		require.NoError(t, f.svc.StoreChanged(ctx))

		got, err := f.svc.Get(ctx, observed.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseSingleCandidate, got.State.Phase)
		assert.Equal(t, domain.OutcomeFullyMatched, got.State.Outcome)
		assert.Equal(t, "fixed", got.State.Candidates[0].Record.Name)
		assert.Empty(t, f.reporter.last(observed.ID))

		assert.Equal(t, 1, f.reporter.count(idle.ID), "only the start command")
	})

	t.Run("uses a fresh snapshot", func(t *testing.T) {
		f := newSessionFixture(record("a", buyerFields("111")))
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)
		_, err = f.svc.Observe(ctx, session.ID, buyerFields("111"))
		require.NoError(t, err)

		require.NoError(t, f.store.Delete(ctx, "hash-a"))
		require.NoError(t, f.svc.StoreChanged(ctx))

		got, err := f.svc.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PhaseEmptyStore, got.State.Phase)
	})

	t.Run("forgets expired sessions", func(t *testing.T) {
		f := newSessionFixture(record("a", buyerFields("111")))
		session, err := f.svc.Start(ctx)
		require.NoError(t, err)
		_, err = f.svc.Observe(ctx, session.ID, buyerFields("111"))
		require.NoError(t, err)

		delete(f.cache.data, sessionKey(session.ID))
		require.NoError(t, f.svc.StoreChanged(ctx))
		assert.NotContains(t, f.svc.observed, session.ID)
	})

	t.Run("no observed sessions skips the store", func(t *testing.T) {
		f := newSessionFixture()
		require.NoError(t, f.svc.StoreChanged(ctx))
		assert.Zero(t, f.store.listCalls)
	})
}

func TestSessionService_End(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(record("a", withMismatches(buyerFields("111"), 1)))

	session, err := f.svc.Start(ctx)
	require.NoError(t, err)
	_, err = f.svc.Observe(ctx, session.ID, buyerFields("111"))
	require.NoError(t, err)
	require.Len(t, f.reporter.last(session.ID), 1)

	require.NoError(t, f.svc.End(ctx, session.ID))
	assert.Empty(t, f.reporter.last(session.ID))
	assert.NotContains(t, f.svc.observed, session.ID)

	_, err = f.svc.Get(ctx, session.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	err = f.svc.End(ctx, session.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestSessionService_StartSurvivesHighlightFailure(t *testing.T) {
	f := newSessionFixture()
	f.reporter.err = errors.New("page gone")

	session, err := f.svc.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseNoObservation, session.State.Phase)
}

func TestSessionService_HighlightFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(record("a", buyerFields("111")))
	f.reporter.err = errors.New("page gone")

	session, err := f.svc.Start(ctx)
	require.NoError(t, err)
	got, err := f.svc.Observe(ctx, session.ID, buyerFields("111"))
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSingleCandidate, got.State.Phase)
}
