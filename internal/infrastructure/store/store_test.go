package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyercheck/backend/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecord(name, hash string) domain.EntityRecord {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	return domain.EntityRecord{
		Name: name,
		Fields: domain.Fields{
			domain.FieldName:    name + " Sdn Bhd",
			domain.FieldTIN:     "C" + hash,
			domain.FieldAddress: "1, Jalan Tun Razak, 50400, Kuala Lumpur, Wilayah Persekutuan, Malaysia",
			domain.FieldEmail:   "",
		},
		NormalizedAddress: domain.NormalizedAddress{Line1: "1", City: "Kuala Lumpur"},
		IdentityHash:      hash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func names(records []domain.EntityRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func forEachStore(t *testing.T, fn func(t *testing.T, st domain.RecordStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLiteStore(t)) })
}

func TestStore_InsertPrependsAndListKeepsOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()

		records, err := st.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)

		require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
		require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))
		require.NoError(t, st.Insert(ctx, testRecord("gamma", "c1")))

		records, err = st.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma", "beta", "alpha"}, names(records))
	})
}

func TestStore_RoundTripKeepsFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()
		want := testRecord("alpha", "a1")
		require.NoError(t, st.Insert(ctx, want))

		got, err := st.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Fields, got.Fields)
		assert.Equal(t, want.NormalizedAddress, got.NormalizedAddress)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

		email, ok := got.Fields.Get(domain.FieldEmail)
		assert.True(t, ok, "empty value must stay present")
		assert.Equal(t, "", email)
		_, ok = got.Fields.Get(domain.FieldSST)
		assert.False(t, ok, "absent key must stay absent")

		byName, err := st.FindByName(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "a1", byName.IdentityHash)
	})
}

func TestStore_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()

		_, err := st.Get(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))

		_, err = st.FindByName(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))

		err = st.Update(ctx, "missing", testRecord("x", "x1"))
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))

		err = st.Delete(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))

		err = st.SetNormalizedAddress(ctx, "missing", domain.NormalizedAddress{})
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))
	})
}

func TestStore_UpdateMovesToFront(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()
		require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
		require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))
		require.NoError(t, st.Insert(ctx, testRecord("gamma", "c1")))

		edited := testRecord("alpha", "a2")
		edited.Fields[domain.FieldEmail] = "ap@alpha.example.com"
		require.NoError(t, st.Update(ctx, "a1", edited))

		records, err := st.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "gamma", "beta"}, names(records))
		assert.Equal(t, "a2", records[0].IdentityHash)

		_, err = st.Get(ctx, "a1")
		assert.True(t, errors.Is(err, domain.ErrEntityNotFound))
	})
}

func TestStore_UniqueConstraints(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()
		require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
		require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))

		err := st.Insert(ctx, testRecord("alpha", "z9"))
		assert.True(t, errors.Is(err, domain.ErrDuplicateName))

		err = st.Insert(ctx, testRecord("omega", "a1"))
		assert.True(t, errors.Is(err, domain.ErrDuplicateContent))

		err = st.Update(ctx, "b1", testRecord("alpha", "b1"))
		assert.True(t, errors.Is(err, domain.ErrDuplicateName))

		records, err := st.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"beta", "alpha"}, names(records))
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()
		require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
		require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))
		require.NoError(t, st.Insert(ctx, testRecord("gamma", "c1")))

		require.NoError(t, st.Delete(ctx, "b1"))

		records, err := st.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma", "alpha"}, names(records))
	})
}

func TestStore_SetNormalizedAddressKeepsOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, st domain.RecordStore) {
		ctx := context.Background()
		require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
		require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))

		addr := domain.NormalizedAddress{Line1: "1", Postcode: "50400", City: "Kuala Lumpur", Country: "Malaysia"}
		require.NoError(t, st.SetNormalizedAddress(ctx, "a1", addr))

		records, err := st.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"beta", "alpha"}, names(records))
		assert.Equal(t, addr, records[1].NormalizedAddress)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(testRecord("alpha", "a1"))

	records, err := st.List(ctx)
	require.NoError(t, err)
	records[0].Fields[domain.FieldTIN] = "changed"

	got, err := st.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ca1", got.Fields[domain.FieldTIN])
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "entities.db")

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Insert(ctx, testRecord("alpha", "a1")))
	require.NoError(t, st.Insert(ctx, testRecord("beta", "b1")))
	require.NoError(t, st.Close())

	reopened, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() }) //nolint:errcheck
	require.NoError(t, reopened.Migrate(ctx))

	records, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "alpha"}, names(records))
}
