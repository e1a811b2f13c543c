package transcript

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"sockpoke/internal/exchange"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages transcript persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one recorded frame.
type Entry struct {
	ID         int64
	SessionID  string
	Role       exchange.Role
	Endpoint   string
	Direction  exchange.Direction
	PayloadHex string
	ByteCount  int
	Skip       bool
	CreatedAt  time.Time
}

// Filter narrows List results. A zero Limit returns every matching row.
type Filter struct {
	SessionID string
	Limit     int
}

// Open initializes or connects to the transcript database.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure transcript directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a new transcript)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Recorder returns an exchange.Recorder writing frames for one session.
func (s *Store) Recorder(sessionID string, role exchange.Role, endpoint string) *Recorder {
	return &Recorder{store: s, sessionID: sessionID, role: role, endpoint: endpoint}
}

var _ exchange.Recorder = (*Recorder)(nil)

// Recorder binds frames to a session before storing them.
type Recorder struct {
	store     *Store
	sessionID string
	role      exchange.Role
	endpoint  string
}

// Record inserts one frame.
func (r *Recorder) Record(ctx context.Context, frame exchange.Frame) error {
	at := frame.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO frames (
            session_id, role, endpoint, direction, payload_hex, byte_count, skip, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.sessionID,
		string(r.role),
		r.endpoint,
		string(frame.Direction),
		hex.EncodeToString(frame.Payload),
		len(frame.Payload),
		boolToInt(frame.Skip),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// List returns recorded frames oldest first. With a Limit only the most
// recent Limit frames are returned, still oldest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if id := strings.TrimSpace(filter.SessionID); id != "" {
		where = append(where, "substr(session_id, 1, ?) = ?")
		args = append(args, utf8.RuneCountInString(id), id)
	}

	query := `SELECT id, session_id, role, endpoint, direction, payload_hex, byte_count, skip, created_at FROM frames`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			role      string
			direction string
			skip      int
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &role, &entry.Endpoint, &direction,
			&entry.PayloadHex, &entry.ByteCount, &skip, &createdAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		entry.Role = exchange.Role(role)
		entry.Direction = exchange.Direction(direction)
		entry.Skip = skip != 0
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
