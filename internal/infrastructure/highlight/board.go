// Package highlight turns field discrepancies into per-field rendering
// commands and keeps the latest command of every session for the extension
// to poll.
package highlight

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/metrics"
)

// Board implements domain.HighlightReporter by publishing commands in memory
type Board struct {
	mu       sync.RWMutex
	commands map[string]domain.HighlightCommand
	version  uint64
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewBoard creates a board that forgets commands older than ttl
func NewBoard(ttl time.Duration, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		commands: make(map[string]domain.HighlightCommand),
		ttl:      ttl,
		logger:   logger.Named("highlight"),
		now:      time.Now,
	}
}

// ApplyHighlights publishes the command for discrepancies, replacing any
// earlier command of the session. An empty slice clears every field.
func (b *Board) ApplyHighlights(ctx context.Context, sessionID string, discrepancies []domain.FieldDiscrepancy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.version++
	cmd := BuildCommand(sessionID, b.version, discrepancies, now)
	b.commands[sessionID] = cmd
	b.expire(now)

	kind := "clear"
	if len(discrepancies) > 0 {
		kind = "mark"
	}
	metrics.HighlightCommandsTotal.WithLabelValues(kind).Inc()
	b.logger.Debug("highlights applied",
		zap.String("session_id", sessionID),
		zap.Uint64("version", cmd.Version),
		zap.Int("marked", len(discrepancies)))
	return nil
}

// Latest returns the most recent command of a session
func (b *Board) Latest(ctx context.Context, sessionID string) (*domain.HighlightCommand, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cmd, ok := b.commands[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &cmd, nil
}

// expire drops commands not refreshed within ttl; caller holds the lock
func (b *Board) expire(now time.Time) {
	if b.ttl <= 0 {
		return
	}
	for id, cmd := range b.commands {
		if now.Sub(cmd.IssuedAt) > b.ttl {
			delete(b.commands, id)
		}
	}
}

// BuildCommand maps discrepancies onto every recognized field in fixed
// order. A marked field carries the stored value as its message.
func BuildCommand(sessionID string, version uint64, discrepancies []domain.FieldDiscrepancy, issuedAt time.Time) domain.HighlightCommand {
	byKey := make(map[domain.FieldKey]domain.FieldDiscrepancy, len(discrepancies))
	for _, d := range discrepancies {
		byKey[d.Key] = d
	}

	fields := make([]domain.FieldHighlight, 0, len(domain.RecognizedKeys))
	for _, key := range domain.RecognizedKeys {
		fh := domain.FieldHighlight{Key: key}
		if d, ok := byKey[key]; ok {
			fh.Highlight = true
			fh.Message = d.Expected
		}
		fields = append(fields, fh)
	}

	return domain.HighlightCommand{
		SessionID: sessionID,
		Version:   version,
		Fields:    fields,
		IssuedAt:  issuedAt,
	}
}
