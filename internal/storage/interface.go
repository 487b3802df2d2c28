package storage

import (
	"context"
	"errors"
	"time"

	"github.com/org/bookforge/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// StorageBackend defines the persistence interface for BookForge.
type StorageBackend interface {
	// Settings (credential configuration, theme, feature toggles)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error

	// Profiles
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)

	// Books
	SaveBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]*models.Book, error)
	DeleteBook(ctx context.Context, id string) error

	// Generation log
	WriteGenerationRecord(ctx context.Context, record *models.GenerationRecord) error
	QueryGenerationLog(ctx context.Context, filter GenerationFilter) ([]*models.GenerationRecord, error)

	// Audit
	WriteAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error)

	// Metrics helpers
	CountBooks(ctx context.Context) (int64, error)

	// Lifecycle
	Close()
}

// BookFilter specifies query parameters for book listing.
type BookFilter struct {
	AuthorID   string
	PublicOnly bool
	Limit      int
	Offset     int
}

// GenerationFilter specifies query parameters for generation-log retrieval.
type GenerationFilter struct {
	Operation string
	Model     string
	Outcome   string
	Since     *time.Time
	Limit     int
	Offset    int
}

// AuditFilter specifies query parameters for audit log retrieval.
type AuditFilter struct {
	Path   string
	Since  *time.Time
	Limit  int
	Offset int
}
