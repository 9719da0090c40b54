package state

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore persists drafts in a single SQLite table. Sections are stored as
// JSON text; every save overwrites the whole document.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state: sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("state: ensure sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("state: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Save(ctx context.Context, resourceID string, doc Document) (SaveResult, error) {
	raw, err := json.Marshal(cloneSections(doc.Sections))
	if err != nil {
		return SaveResult{}, fmt.Errorf("state: encode sections: %w", err)
	}

	id := CanonicalID(resourceID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC().UnixMilli()

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO drafts (id, sections, status, version, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   sections = excluded.sections,
			   version = drafts.version + 1,
			   updated_at = excluded.updated_at`,
			id, string(raw), StatusDraft, now, now,
		)
		return execErr
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("state: save draft %q: %w", id, err)
	}
	return SaveResult{Success: true, ResourceID: id}, nil
}

func (s *SQLiteStore) Publish(ctx context.Context, resourceID, status string) (PublishResult, error) {
	if !ValidStatus(status) {
		return PublishResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	id := CanonicalID(resourceID)
	now := s.now().UTC().UnixMilli()

	var affected int64
	err := retryOnBusy(ctx, func() error {
		var publishedAt any
		if status == StatusPublished {
			publishedAt = now
		}
		res, execErr := s.db.ExecContext(ctx,
			`UPDATE drafts SET status = ?, updated_at = ?, published_at = COALESCE(?, published_at) WHERE id = ?`,
			status, now, publishedAt, id,
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return PublishResult{}, fmt.Errorf("state: publish draft %q: %w", id, err)
	}
	if affected == 0 {
		return PublishResult{Success: false, Message: fmt.Sprintf("draft %q not found", id)}, nil
	}
	return PublishResult{Success: true}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, resourceID string) (Record, bool, error) {
	id := CanonicalID(resourceID)
	var (
		raw         string
		record      Record
		createdAt   int64
		updatedAt   int64
		publishedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, sections, status, version, created_at, updated_at, published_at FROM drafts WHERE id = ?`,
		id,
	).Scan(&record.ResourceID, &raw, &record.Status, &record.Version, &createdAt, &updatedAt, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("state: load draft %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &record.Sections); err != nil {
		return Record{}, false, fmt.Errorf("state: decode draft %q: %w", id, err)
	}
	record.CreatedAt = time.UnixMilli(createdAt).UTC()
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if publishedAt.Valid {
		record.PublishedAt = time.UnixMilli(publishedAt.Int64).UTC()
	}
	return record, true, nil
}

// List returns drafts ordered by most recently updated, optionally filtered by
// status.
func (s *SQLiteStore) List(ctx context.Context, status string, limit int) ([]Record, error) {
	query := `SELECT id, status, version, created_at, updated_at FROM drafts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("state: list drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			record    Record
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&record.ResourceID, &record.Status, &record.Version, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("state: scan draft row: %w", err)
		}
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterate draft rows: %w", err)
	}
	return records, nil
}

type migration struct {
	version string
	sql     string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("state: read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("state: read migration %s: %w", name, err)
		}
		out = append(out, migration{version: strings.TrimSuffix(name, ".sql"), sql: string(data)})
	}
	return out, nil
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("state: ensure schema_migrations: %w", err)
	}
	for _, m := range migrations {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version).Scan(&count); err != nil {
			return fmt.Errorf("state: scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("state: apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("state: record migration %s: %w", m.version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit migrations: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
