package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/org/bookforge/pkg/models"
)

// PostgresBackend is a StorageBackend backed by PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pgxpool connection and returns a ready backend.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func (p *PostgresBackend) Close() {
	p.pool.Close()
}

// --- Settings ---

func (p *PostgresBackend) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (p *PostgresBackend) PutSetting(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	return err
}

// --- Profiles ---

func (p *PostgresBackend) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("serializing profile: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO profiles (id, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		profile.ID, data,
	)
	return err
}

func (p *PostgresBackend) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM profiles WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("deserializing profile: %w", err)
	}
	return &profile, nil
}

// --- Books ---

func (p *PostgresBackend) SaveBook(ctx context.Context, book *models.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("serializing book: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO books (id, author_id, is_public, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0), NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET author_id = EXCLUDED.author_id,
		     is_public = EXCLUDED.is_public,
		     data = EXCLUDED.data,
		     updated_at = NOW()`,
		book.ID, book.AuthorID, book.IsPublic, data, book.CreatedAt,
	)
	return err
}

func (p *PostgresBackend) GetBook(ctx context.Context, id string) (*models.Book, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM books WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unmarshalBook(data)
}

func unmarshalBook(data []byte) (*models.Book, error) {
	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("deserializing book: %w", err)
	}
	return &book, nil
}

func (p *PostgresBackend) ListBooks(ctx context.Context, filter BookFilter) ([]*models.Book, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT data FROM books WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.AuthorID != "" {
		fmt.Fprintf(&query, ` AND author_id = $%d`, n)
		args = append(args, filter.AuthorID)
		n++
	}
	if filter.PublicOnly {
		query.WriteString(` AND is_public = TRUE`)
	}
	query.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		book, err := unmarshalBook(data)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (p *PostgresBackend) DeleteBook(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Generation log ---

func (p *PostgresBackend) WriteGenerationRecord(ctx context.Context, record *models.GenerationRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO generation_log (operation, model, key_hint, outcome, duration_ms, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.Operation, record.Model, record.KeyHint, record.Outcome,
		record.DurationMs, record.Detail, record.CreatedAt,
	)
	return err
}

func (p *PostgresBackend) QueryGenerationLog(ctx context.Context, filter GenerationFilter) ([]*models.GenerationRecord, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, operation, model, key_hint, outcome, duration_ms, detail, created_at
	 FROM generation_log WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.Operation != "" {
		fmt.Fprintf(&query, ` AND operation = $%d`, n)
		args = append(args, filter.Operation)
		n++
	}
	if filter.Model != "" {
		fmt.Fprintf(&query, ` AND model = $%d`, n)
		args = append(args, filter.Model)
		n++
	}
	if filter.Outcome != "" {
		fmt.Fprintf(&query, ` AND outcome = $%d`, n)
		args = append(args, filter.Outcome)
		n++
	}
	if filter.Since != nil {
		fmt.Fprintf(&query, ` AND created_at >= $%d`, n)
		args = append(args, filter.Since)
		n++
	}
	query.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.GenerationRecord
	for rows.Next() {
		var r models.GenerationRecord
		if err := rows.Scan(&r.ID, &r.Operation, &r.Model, &r.KeyHint, &r.Outcome,
			&r.DurationMs, &r.Detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// --- Audit ---

func (p *PostgresBackend) WriteAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO audit_log (request_id, timestamp, operation, path, status, response_code, response_time_ms, client_ip, metadata)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.RequestID, entry.Timestamp, entry.Operation, entry.Path,
		entry.Status, entry.ResponseCode, entry.ResponseTimeMs, entry.ClientIP, metaJSON,
	)
	return err
}

func (p *PostgresBackend) QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, request_id, timestamp, operation, path, status, response_code, response_time_ms, client_ip, metadata FROM audit_log WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.Path != "" {
		fmt.Fprintf(&query, ` AND path LIKE $%d`, n)
		args = append(args, filter.Path+"%")
		n++
	}
	if filter.Since != nil {
		fmt.Fprintf(&query, ` AND timestamp >= $%d`, n)
		args = append(args, filter.Since)
		n++
	}
	query.WriteString(` ORDER BY timestamp DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var metaJSON []byte
		var reqID string
		if err := rows.Scan(&e.ID, &reqID, &e.Timestamp, &e.Operation,
			&e.Path, &e.Status, &e.ResponseCode, &e.ResponseTimeMs, &e.ClientIP, &metaJSON); err != nil {
			return nil, err
		}
		e.RequestID = reqID
		json.Unmarshal(metaJSON, &e.Metadata) //nolint:errcheck
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- Metrics ---

func (p *PostgresBackend) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	return count, err
}
