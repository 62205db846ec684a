// Package store provides entity directory implementations of domain.RecordStore.
package store

import (
	"context"
	"sync"

	"github.com/buyercheck/backend/internal/domain"
)

// MemoryStore is an in-process record store. It is used for tests and for
// running the server without a database file.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.EntityRecord
}

// NewMemoryStore creates a store holding records in the given order
func NewMemoryStore(records ...domain.EntityRecord) *MemoryStore {
	s := &MemoryStore{records: make([]domain.EntityRecord, 0, len(records))}
	for _, r := range records {
		s.records = append(s.records, cloneRecord(r))
	}
	return s
}

// List returns a copy of all records in store order
func (s *MemoryStore) List(ctx context.Context) ([]domain.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EntityRecord, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

// Get returns the record with the given identity hash
func (s *MemoryStore) Get(ctx context.Context, hash string) (*domain.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(hash)
	if i < 0 {
		return nil, domain.ErrEntityNotFound
	}
	rec := cloneRecord(s.records[i])
	return &rec, nil
}

// FindByName returns the record with the given display name
func (s *MemoryStore) FindByName(ctx context.Context, name string) (*domain.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Name == name {
			rec := cloneRecord(r)
			return &rec, nil
		}
	}
	return nil, domain.ErrEntityNotFound
}

// Insert adds record at the front of the store
func (s *MemoryStore) Insert(ctx context.Context, record domain.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(record, -1); err != nil {
		return err
	}
	s.records = append([]domain.EntityRecord{cloneRecord(record)}, s.records...)
	return nil
}

// Update replaces the record identified by hash and moves it to the front
func (s *MemoryStore) Update(ctx context.Context, hash string, record domain.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		return domain.ErrEntityNotFound
	}
	if err := s.checkUnique(record, i); err != nil {
		return err
	}

	rest := append(append([]domain.EntityRecord{}, s.records[:i]...), s.records[i+1:]...)
	s.records = append([]domain.EntityRecord{cloneRecord(record)}, rest...)
	return nil
}

// Delete removes the record identified by hash
func (s *MemoryStore) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		return domain.ErrEntityNotFound
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	return nil
}

// SetNormalizedAddress rewrites the derived address without moving the record
func (s *MemoryStore) SetNormalizedAddress(ctx context.Context, hash string, addr domain.NormalizedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(hash)
	if i < 0 {
		return domain.ErrEntityNotFound
	}
	s.records[i].NormalizedAddress = addr
	return nil
}

func (s *MemoryStore) indexOf(hash string) int {
	for i, r := range s.records {
		if r.IdentityHash == hash {
			return i
		}
	}
	return -1
}

// checkUnique enforces unique names and hashes, ignoring the record at skip
func (s *MemoryStore) checkUnique(record domain.EntityRecord, skip int) error {
	for i, r := range s.records {
		if i == skip {
			continue
		}
		if r.Name == record.Name {
			return domain.ErrDuplicateName
		}
		if r.IdentityHash == record.IdentityHash {
			return domain.ErrDuplicateContent
		}
	}
	return nil
}

func cloneRecord(r domain.EntityRecord) domain.EntityRecord {
	out := r
	if r.Fields != nil {
		out.Fields = make(domain.Fields, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
