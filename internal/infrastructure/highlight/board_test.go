package highlight

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

func strPtr(s string) *string { return &s }

func TestBuildCommand(t *testing.T) {
	issued := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("covers every recognized key in order", func(t *testing.T) {
		cmd := BuildCommand("s1", 7, []domain.FieldDiscrepancy{
			{Key: domain.FieldEmail, Expected: "ap@maju.example.com", Actual: strPtr("old@maju.example.com")},
			{Key: domain.FieldName, Expected: "Maju Sdn Bhd", Actual: nil},
		}, issued)

		require.Len(t, cmd.Fields, len(domain.RecognizedKeys))
		for i, key := range domain.RecognizedKeys {
			assert.Equal(t, key, cmd.Fields[i].Key)
		}

		assert.Equal(t, domain.FieldHighlight{Key: domain.FieldName, Highlight: true, Message: "Maju Sdn Bhd"}, cmd.Fields[0])
		assert.Equal(t, domain.FieldHighlight{Key: domain.FieldTIN}, cmd.Fields[1])
		assert.Equal(t, domain.FieldHighlight{Key: domain.FieldEmail, Highlight: true, Message: "ap@maju.example.com"}, cmd.Fields[6])
		assert.Equal(t, uint64(7), cmd.Version)
		assert.Equal(t, issued, cmd.IssuedAt)
	})

	t.Run("empty discrepancies clear every field", func(t *testing.T) {
		cmd := BuildCommand("s1", 1, []domain.FieldDiscrepancy{}, issued)
		for _, f := range cmd.Fields {
			assert.False(t, f.Highlight, f.Key)
			assert.Empty(t, f.Message)
		}
	})
}

func TestBoard_ApplyAndLatest(t *testing.T) {
	ctx := context.Background()
	board := NewBoard(time.Hour, zap.NewNop())

	_, err := board.Latest(ctx, "s1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	require.NoError(t, board.ApplyHighlights(ctx, "s1", []domain.FieldDiscrepancy{{Key: domain.FieldSST, Expected: "W10"}}))
	first, err := board.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, first.Fields[4].Highlight)

	require.NoError(t, board.ApplyHighlights(ctx, "s1", nil))
	second, err := board.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
	assert.False(t, second.Fields[4].Highlight)
}

func TestBoard_ExpiresStaleSessions(t *testing.T) {
	ctx := context.Background()
	board := NewBoard(time.Minute, zap.NewNop())
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	board.now = func() time.Time { return now }

	require.NoError(t, board.ApplyHighlights(ctx, "old", nil))
	now = now.Add(2 * time.Minute)
	require.NoError(t, board.ApplyHighlights(ctx, "new", nil))

	_, err := board.Latest(ctx, "old")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	_, err = board.Latest(ctx, "new")
	assert.NoError(t, err)
}
