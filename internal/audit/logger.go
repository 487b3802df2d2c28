package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/pkg/models"
)

// Logger writes structured audit entries and the generation log.
type Logger struct {
	store storage.StorageBackend
	log   zerolog.Logger
}

// NewLogger creates an audit Logger.
func NewLogger(store storage.StorageBackend, log zerolog.Logger) *Logger {
	return &Logger{store: store, log: log}
}

// LogRequest records an API request to the audit log.
// Credentials and vault contents must NEVER be passed here, only metadata.
func (l *Logger) LogRequest(ctx context.Context, entry *models.AuditEntry) {
	entry.Timestamp = time.Now().UTC()
	// Fire and forget; audit failures should not break request flow.
	if err := l.store.WriteAuditEntry(ctx, entry); err != nil {
		l.log.Error().Err(err).Str("path", entry.Path).Msg("writing audit entry failed")
	}
}

// Query retrieves paginated audit log entries.
func (l *Logger) Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error) {
	return l.store.QueryAuditLog(ctx, filter)
}

// ObserveAttempt persists one generation attempt. Implements
// engine.AttemptObserver; the engine passes only the key hint, so
// nothing here ever sees a full credential.
func (l *Logger) ObserveAttempt(ctx context.Context, a engine.Attempt) {
	record := &models.GenerationRecord{
		Operation:  a.Operation,
		Model:      a.Model,
		KeyHint:    a.KeyHint,
		Outcome:    a.Outcome,
		DurationMs: a.Duration.Milliseconds(),
		Detail:     a.Detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.store.WriteGenerationRecord(ctx, record); err != nil {
		l.log.Error().Err(err).Str("operation", a.Operation).Msg("writing generation record failed")
	}
}

// QueryGenerationLog retrieves paginated generation-log records.
func (l *Logger) QueryGenerationLog(ctx context.Context, filter storage.GenerationFilter) ([]*models.GenerationRecord, error) {
	return l.store.QueryGenerationLog(ctx, filter)
}
