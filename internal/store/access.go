package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tempopilot/coach-gateway/internal/access"
)

// AccessStore implements token authentication and tester/flag gating over
// the api_tokens, profiles and feature_flags tables.
type AccessStore struct {
	db *DB
}

// NewAccessStore wraps the database for access checks.
func NewAccessStore(db *DB) *AccessStore {
	return &AccessStore{db: db}
}

// Authenticate resolves a bearer token to a user ID.
func (s *AccessStore) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", access.ErrInvalidToken
	}
	var userID string
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT user_id FROM api_tokens WHERE token = ?", token,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", access.ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("looking up token: %w", err)
	}
	return userID, nil
}

// IsTester reports whether the user's profile carries the tester bit. A
// missing profile is not an error; it simply denies.
func (s *AccessStore) IsTester(ctx context.Context, userID string) (bool, error) {
	var isTester bool
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT is_tester FROM profiles WHERE user_id = ?", userID,
	).Scan(&isTester)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up profile: %w", err)
	}
	return isTester, nil
}

// FlagEnabled reports whether the named feature flag is on. An absent flag
// row reads as off.
func (s *AccessStore) FlagEnabled(ctx context.Context, flag string) (bool, error) {
	var enabled bool
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT enabled FROM feature_flags WHERE name = ?", flag,
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up feature flag: %w", err)
	}
	return enabled, nil
}

// UpsertToken registers or reassigns an API token.
func (s *AccessStore) UpsertToken(ctx context.Context, token, userID string) error {
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO api_tokens (token, user_id) VALUES (?, ?)
		ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id
	`, token, userID)
	if err != nil {
		return fmt.Errorf("upserting token: %w", err)
	}
	return nil
}

// DeleteToken revokes an API token.
func (s *AccessStore) DeleteToken(ctx context.Context, token string) error {
	if _, err := s.db.sql.ExecContext(ctx, "DELETE FROM api_tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// SetTester creates or updates a profile's tester bit.
func (s *AccessStore) SetTester(ctx context.Context, userID string, isTester bool) error {
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO profiles (user_id, is_tester) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET is_tester = excluded.is_tester
	`, userID, isTester)
	if err != nil {
		return fmt.Errorf("setting tester: %w", err)
	}
	return nil
}

// SetFlag creates or updates a feature flag.
func (s *AccessStore) SetFlag(ctx context.Context, name string, enabled bool) error {
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO feature_flags (name, enabled, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET enabled = excluded.enabled, updated_at = datetime('now')
	`, name, enabled)
	if err != nil {
		return fmt.Errorf("setting flag: %w", err)
	}
	return nil
}

var _ access.Authenticator = (*AccessStore)(nil)
var _ access.Gate = (*AccessStore)(nil)
