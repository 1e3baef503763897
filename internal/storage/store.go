package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrSessionNotFound indicates no stored session snapshot for a user.
var ErrSessionNotFound = errors.New("storage: session not found")

// User is one row of the broadcast registry.
type User struct {
	TelegramID int64  `db:"telegram_id"`
	Username   string `db:"username"`
}

// SessionRecord is a persisted snapshot of one user's conversation.
type SessionRecord struct {
	TelegramID int64           `db:"telegram_id"`
	State      string          `db:"state"`
	Data       json.RawMessage `db:"data"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Store provides access to users and session snapshots.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// UpsertUser registers or refreshes a known user for broadcast.
func (s *Store) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	const q = `
		INSERT INTO users (telegram_id, username)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username`
	if _, err := s.db.ExecContext(ctx, q, telegramID, username); err != nil {
		return fmt.Errorf("upsert user %d: %w", telegramID, err)
	}
	return nil
}

// ListUsers returns all known users in registration order.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	const q = `SELECT telegram_id, username FROM users ORDER BY telegram_id`
	if err := s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SaveSession stores the state tag and opaque session snapshot for a user.
func (s *Store) SaveSession(ctx context.Context, telegramID int64, state string, data json.RawMessage) error {
	const q = `
		INSERT INTO sessions (telegram_id, state, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, q, telegramID, state, data); err != nil {
		return fmt.Errorf("save session %d: %w", telegramID, err)
	}
	return nil
}

// LoadSession fetches the stored snapshot for a user.
func (s *Store) LoadSession(ctx context.Context, telegramID int64) (*SessionRecord, error) {
	var rec SessionRecord
	const q = `SELECT telegram_id, state, data, updated_at FROM sessions WHERE telegram_id = $1`
	if err := s.db.GetContext(ctx, &rec, q, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %d: %w", telegramID, err)
	}
	return &rec, nil
}
