package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecordStore holds the entity directory. List returns a snapshot in store
// order; the most recently created or edited record comes first. Insert
// and Update both place the record at the front. Get, Update, Delete and
// SetNormalizedAddress return ErrEntityNotFound for an unknown hash;
// FindByName returns it for an unknown name.
type RecordStore interface {
	List(ctx context.Context) ([]EntityRecord, error)
	Get(ctx context.Context, hash string) (*EntityRecord, error)
	FindByName(ctx context.Context, name string) (*EntityRecord, error)
	Insert(ctx context.Context, record EntityRecord) error
	Update(ctx context.Context, hash string, record EntityRecord) error
	Delete(ctx context.Context, hash string) error
	// SetNormalizedAddress rewrites the derived address in place without
	// changing store order.
	SetNormalizedAddress(ctx context.Context, hash string, addr NormalizedAddress) error
}

// HighlightReporter marks mismatched fields on the page. An empty slice
// clears every highlight.
type HighlightReporter interface {
	ApplyHighlights(ctx context.Context, sessionID string, discrepancies []FieldDiscrepancy) error
}

// StoreObserver is notified after the record store changed
type StoreObserver interface {
	StoreChanged(ctx context.Context) error
}
