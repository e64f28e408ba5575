package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vvoland/agentrt/pkg/chat"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	role       TEXT,
	content    TEXT NOT NULL,
	tool_call_id TEXT,
	created_at TEXT,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_session_items_session ON session_items(session_id);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) a SQLite-backed store at path.
// The connection pool is limited to one connection to serialize writes.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	// busy_timeout: wait instead of failing when the database is locked.
	// WAL: better concurrent read access. foreign_keys: ON DELETE CASCADE.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing database schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddSession(ctx context.Context, id string, createdAt time.Time) error {
	if id == "" {
		return ErrEmptyID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		id, createdAt.Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) AddMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	if err := s.AddSession(ctx, sessionID, time.Now()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_items (session_id, kind, role, content, tool_call_id, created_at) VALUES (?, 'message', ?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Content, msg.ToolCallID, msg.CreatedAt)
	return err
}

func (s *SQLiteStore) AddSummary(ctx context.Context, sessionID, summary string) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_items (session_id, kind, content) SELECT id, 'summary', ? FROM sessions WHERE id = ?`,
		summary, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptyID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, COALESCE(tool_call_id, ''), COALESCE(created_at, '') FROM session_items WHERE session_id = ? AND kind = 'message' ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.ToolCallID, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = chat.MessageRole(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
