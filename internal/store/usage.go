package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tempopilot/coach-gateway/internal/domain"
)

// UsageStore appends per-request token accounting rows.
type UsageStore struct {
	db *DB
}

// NewUsageStore wraps the database for usage recording.
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Record inserts one usage row. Rows are written even when token counts are
// zero so quota tracking sees every completed request.
func (s *UsageStore) Record(ctx context.Context, rec domain.UsageRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO ai_usage (user_id, kind, tokens_in, tokens_out, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.UserID, string(rec.Kind), rec.TokensIn, rec.TokensOut, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// TotalsFor sums a user's recorded tokens since the given time.
func (s *UsageStore) TotalsFor(ctx context.Context, userID string, since time.Time) (domain.Usage, error) {
	var usage domain.Usage
	err := s.db.sql.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens_in), 0), COALESCE(SUM(tokens_out), 0)
		FROM ai_usage WHERE user_id = ? AND created_at >= ?
	`, userID, since.UTC().Format(time.RFC3339)).Scan(&usage.TokensIn, &usage.TokensOut)
	if err != nil {
		return domain.Usage{}, fmt.Errorf("summing usage: %w", err)
	}
	return usage, nil
}
