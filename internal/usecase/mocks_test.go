package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/buyercheck/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data     map[string][]byte
	getError error
	setError error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockRecordStore is an in-memory domain.RecordStore that keeps store order
type MockRecordStore struct {
	records   []domain.EntityRecord
	listError error
	listCalls int
}

func NewMockRecordStore(records ...domain.EntityRecord) *MockRecordStore {
	return &MockRecordStore{records: records}
}

func (m *MockRecordStore) List(ctx context.Context) ([]domain.EntityRecord, error) {
	m.listCalls++
	if m.listError != nil {
		return nil, m.listError
	}
	return append([]domain.EntityRecord{}, m.records...), nil
}

func (m *MockRecordStore) Get(ctx context.Context, hash string) (*domain.EntityRecord, error) {
	for _, r := range m.records {
		if r.IdentityHash == hash {
			rec := r
			return &rec, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

func (m *MockRecordStore) FindByName(ctx context.Context, name string) (*domain.EntityRecord, error) {
	for _, r := range m.records {
		if r.Name == name {
			rec := r
			return &rec, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

func (m *MockRecordStore) Insert(ctx context.Context, record domain.EntityRecord) error {
	m.records = append([]domain.EntityRecord{record}, m.records...)
	return nil
}

func (m *MockRecordStore) Update(ctx context.Context, hash string, record domain.EntityRecord) error {
	if err := m.Delete(ctx, hash); err != nil {
		return err
	}
	return m.Insert(ctx, record)
}

func (m *MockRecordStore) Delete(ctx context.Context, hash string) error {
	for i, r := range m.records {
		if r.IdentityHash == hash {
			m.records = append(m.records[:i:i], m.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrEntityNotFound
}

func (m *MockRecordStore) SetNormalizedAddress(ctx context.Context, hash string, addr domain.NormalizedAddress) error {
	for i, r := range m.records {
		if r.IdentityHash == hash {
			m.records[i].NormalizedAddress = addr
			return nil
		}
	}
	return domain.ErrEntityNotFound
}

// MockHighlightReporter records every highlight call
type MockHighlightReporter struct {
	mu    sync.Mutex
	calls map[string][][]domain.FieldDiscrepancy
	err   error
}

func NewMockHighlightReporter() *MockHighlightReporter {
	return &MockHighlightReporter{calls: make(map[string][][]domain.FieldDiscrepancy)}
}

func (m *MockHighlightReporter) ApplyHighlights(ctx context.Context, sessionID string, discrepancies []domain.FieldDiscrepancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[sessionID] = append(m.calls[sessionID], discrepancies)
	return m.err
}

func (m *MockHighlightReporter) last(sessionID string) []domain.FieldDiscrepancy {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.calls[sessionID]
	if len(calls) == 0 {
		return nil
	}
	return calls[len(calls)-1]
}

func (m *MockHighlightReporter) count(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls[sessionID])
}

// MockStoreObserver counts store change notifications
type MockStoreObserver struct {
	calls int
	err   error
}

func (m *MockStoreObserver) StoreChanged(ctx context.Context) error {
	m.calls++
	return m.err
}
