// Package store persists processed-data snapshots and reflection sessions in
// SQLite. The snapshot is a single-slot blob; sessions are keyed by id with
// secondary lookup by date string and by reflection type.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Session struct {
	ID             string          `json:"id"`
	DateString     string          `json:"dateString"`
	ReflectionType string          `json:"reflectionType"`
	Data           json.RawMessage `json:"data"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reflection_session (
			id TEXT PRIMARY KEY,
			date_string TEXT NOT NULL,
			reflection_type TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_date ON reflection_session(date_string)`,
		`CREATE INDEX IF NOT EXISTS idx_session_type ON reflection_session(reflection_type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot overwrites the single processed-data slot.
func (s *Store) SaveSnapshot(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshot (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		data, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetSnapshot returns the stored blob, or nil when none exists.
func (s *Store) GetSnapshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshot WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) ClearSnapshot(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshot WHERE id = 1`)
	return err
}

func (s *Store) SaveSession(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reflection_session (id, date_string, reflection_type, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			date_string = excluded.date_string,
			reflection_type = excluded.reflection_type,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		session.ID, session.DateString, session.ReflectionType, []byte(session.Data),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetSession returns the session, or nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, date_string, reflection_type, data FROM reflection_session WHERE id = ?`, id)

	var session Session
	var data []byte
	err := row.Scan(&session.ID, &session.DateString, &session.ReflectionType, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Data = data
	return &session, nil
}

func (s *Store) SessionsByDate(ctx context.Context, dateString string) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT id, date_string, reflection_type, data FROM reflection_session WHERE date_string = ? ORDER BY id`,
		dateString)
}

func (s *Store) SessionsByType(ctx context.Context, reflectionType string) ([]Session, error) {
	return s.querySessions(ctx,
		`SELECT id, date_string, reflection_type, data FROM reflection_session WHERE reflection_type = ? ORDER BY id`,
		reflectionType)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reflection_session WHERE id = ?`, id)
	return err
}

func (s *Store) querySessions(ctx context.Context, query string, arg interface{}) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var data []byte
		if err := rows.Scan(&session.ID, &session.DateString, &session.ReflectionType, &data); err != nil {
			return nil, err
		}
		session.Data = data
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
