// Package audit provides PostgreSQL-backed storage for rule violations.
// Each row captures who violated which tier, the matched term, and the
// offending message, for moderator review and statistics.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// validTiers matches the CHECK constraint on the violations table.
var validTiers = map[string]bool{
	"filtered": true,
	"severe":   true,
	"critical": true,
}

// Violation is one recorded rule violation.
type Violation struct {
	ID        string
	UserID    string
	Tier      string // "filtered" | "severe" | "critical"
	Term      string // matched word or keyword, may be empty (address hits)
	Message   string // original message text
	CreatedAt time.Time
}

// Store manages violation records in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a violation store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts a violation. The tier is validated against the allowed set
// and a fresh record ID is assigned.
func (s *Store) Record(ctx context.Context, v Violation) error {
	if !validTiers[v.Tier] {
		return fmt.Errorf("audit: invalid tier %q", v.Tier)
	}

	const query = `
		INSERT INTO violations (id, user_id, tier, term, message)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		v.UserID,
		v.Tier,
		v.Term,
		v.Message,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// RecentForUser returns a user's violations within the given window, newest
// first.
func (s *Store) RecentForUser(ctx context.Context, userID string, window time.Duration) ([]Violation, error) {
	const query = `
		SELECT id, user_id, tier, term, message, created_at
		FROM violations
		WHERE user_id = $1
		  AND created_at >= NOW() - $2::interval
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, window.String())
	if err != nil {
		return nil, fmt.Errorf("audit: recent for user: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.UserID, &v.Tier, &v.Term, &v.Message, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return out, nil
}

// Stats returns the total violation count per tier.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	const query = `SELECT tier, COUNT(*) FROM violations GROUP BY tier`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("audit: stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var tier string
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		stats[tier] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: rows: %w", err)
	}
	return stats, nil
}
