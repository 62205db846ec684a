package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/identity"
	"github.com/buyercheck/backend/internal/metrics"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EntityService manages the entity directory on behalf of the admin screens.
// Mutations are serialized so duplicate checks and the write they guard see
// the same store contents.
type EntityService struct {
	mu       sync.Mutex
	store    domain.RecordStore
	observer domain.StoreObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewEntityService creates a new entity service backed by store
func NewEntityService(store domain.RecordStore, logger *zap.Logger) *EntityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityService{
		store:  store,
		logger: logger.Named("entities"),
		now:    time.Now,
	}
}

// SetStoreObserver registers the component re-evaluating sessions after a
// mutation. Passing nil disables notification.
func (s *EntityService) SetStoreObserver(observer domain.StoreObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

// List returns records in store order. A non-empty query keeps only records
// whose display name contains it, ignoring case.
func (s *EntityService) List(ctx context.Context, query string) ([]domain.EntityRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records, nil
	}

	filtered := make([]domain.EntityRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), query) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Get returns the record with the given identity hash
func (s *EntityService) Get(ctx context.Context, hash string) (*domain.EntityRecord, error) {
	return s.store.Get(ctx, hash)
}

// Create validates input and stores a new record at the front of the store.
// The display name and the identity hash must both be unused.
func (s *EntityService) Create(ctx context.Context, input domain.EntityInput) (rec *domain.EntityRecord, err error) {
	defer func() { s.count("create", err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureNameFree(ctx, input.Entity); err != nil {
		return nil, err
	}

	fields := input.Fields()
	hash := identity.Hash(fields)
	if err := s.ensureContentFree(ctx, hash); err != nil {
		return nil, err
	}

	now := s.now()
	record := domain.EntityRecord{
		Name:              input.Entity,
		Fields:            fields,
		NormalizedAddress: NormalizeAddress(input.Address),
		IdentityHash:      hash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("entity created", zap.String("name", record.Name), zap.String("hash", hash))
	s.notify(ctx)
	return &record, nil
}

// Update replaces the record identified by hash and moves it to the front.
// The name check only applies when the name changes and the content check
// only when the identity hash changes.
func (s *EntityService) Update(ctx context.Context, hash string, input domain.EntityInput) (rec *domain.EntityRecord, err error) {
	defer func() { s.count("update", err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	if input.Entity != existing.Name {
		if err := s.ensureNameFree(ctx, input.Entity); err != nil {
			return nil, err
		}
	}

	fields := input.Fields()
	newHash := identity.Hash(fields)
	if identity.HasChanged(hash, newHash) {
		if err := s.ensureContentFree(ctx, newHash); err != nil {
			return nil, err
		}
	}

	record := domain.EntityRecord{
		Name:              input.Entity,
		Fields:            fields,
		NormalizedAddress: NormalizeAddress(input.Address),
		IdentityHash:      newHash,
		CreatedAt:         existing.CreatedAt,
		UpdatedAt:         s.now(),
	}
	if err := s.store.Update(ctx, hash, record); err != nil {
		return nil, err
	}

	s.logger.Info("entity updated",
		zap.String("name", record.Name),
		zap.String("old_hash", hash),
		zap.String("hash", newHash))
	s.notify(ctx)
	return &record, nil
}

// Delete removes the record identified by hash
func (s *EntityService) Delete(ctx context.Context, hash string) (err error) {
	defer func() { s.count("delete", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, hash); err != nil {
		return err
	}

	s.logger.Info("entity deleted", zap.String("hash", hash))
	s.notify(ctx)
	return nil
}

// BackfillNormalizedAddresses derives the structured address for records
// stored without one. Store order is left untouched. It returns the number
// of records updated.
func (s *EntityService) BackfillNormalizedAddresses(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, r := range records {
		if !r.NormalizedAddress.IsZero() {
			continue
		}
		addr := NormalizeAddress(r.Fields[domain.FieldAddress])
		if addr.IsZero() {
			continue
		}
		if err := s.store.SetNormalizedAddress(ctx, r.IdentityHash, addr); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info("normalized addresses backfilled", zap.Int("count", updated))
	}
	return updated, nil
}

func (s *EntityService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.store.FindByName(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
	case errors.Is(err, domain.ErrEntityNotFound):
		return nil
	default:
		return err
	}
}

func (s *EntityService) ensureContentFree(ctx context.Context, hash string) error {
	_, err := s.store.Get(ctx, hash)
	switch {
	case err == nil:
		return domain.ErrDuplicateContent
	case errors.Is(err, domain.ErrEntityNotFound):
		return nil
	default:
		return err
	}
}

// notify re-evaluates live sessions. A failure here is logged but never
// undoes the mutation.
func (s *EntityService) notify(ctx context.Context) {
	if s.observer == nil {
		return
	}
	if err := s.observer.StoreChanged(ctx); err != nil {
		s.logger.Warn("store change notification failed", zap.Error(err))
	}
}

func (s *EntityService) count(operation string, err error) {
	metrics.EntityMutationsTotal.WithLabelValues(operation, metrics.Status(err)).Inc()
}

func validateInput(input domain.EntityInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, validationMessage(err))
	}
	return nil
}

// validationMessage flattens validator errors into one line naming each
// offending field by its JSON name.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := jsonFieldNames[fe.StructField()]
		if field == "" {
			field = fe.Field()
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s'", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

var jsonFieldNames = map[string]string{
	"Entity":        "entity",
	"Name":          "name",
	"TIN":           "tin",
	"Type":          "type",
	"ID":            "id",
	"SST":           "sst",
	"Address":       "address",
	"Email":         "email",
	"ContactNumber": "contactNumber",
}
