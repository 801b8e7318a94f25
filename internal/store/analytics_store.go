package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jjenkins/publiccomment/internal/model"
)

// AnalyticsStore handles persistence for daily analytics snapshots
type AnalyticsStore struct {
	w *Warehouse
}

// NewAnalyticsStore creates a new AnalyticsStore
func NewAnalyticsStore(w *Warehouse) *AnalyticsStore {
	return &AnalyticsStore{w: w}
}

// Upsert writes the snapshot for (date, rulemaking), replacing any earlier counts.
// There is at most one row per pair.
func (s *AnalyticsStore) Upsert(ctx context.Context, a *model.AnalyticsSnapshot) error {
	query := `
		INSERT INTO analytics (id, date, rulemaking_id, total_submissions, unique_users,
		                       states_represented, avg_comment_length, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (date, rulemaking_id) DO UPDATE SET
			total_submissions = EXCLUDED.total_submissions,
			unique_users = EXCLUDED.unique_users,
			states_represented = EXCLUDED.states_represented,
			avg_comment_length = EXCLUDED.avg_comment_length
		RETURNING id, created_at
	`

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	err := s.w.DB().QueryRowContext(ctx, query,
		a.ID,
		a.Date,
		a.RulemakingID,
		a.TotalSubmissions,
		a.UniqueUsers,
		a.StatesRepresented,
		a.AvgCommentLength,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert analytics for %s on %s: %w", a.RulemakingID, a.Date, err)
	}

	return nil
}

// Get returns the snapshot for a rulemaking on a day, or nil
func (s *AnalyticsStore) Get(ctx context.Context, rulemakingID string, day model.Date) (*model.AnalyticsSnapshot, error) {
	query := `
		SELECT id, date, rulemaking_id, total_submissions, unique_users,
		       states_represented, avg_comment_length, created_at
		FROM analytics
		WHERE rulemaking_id = $1 AND date = $2
	`

	var a model.AnalyticsSnapshot
	err := s.w.DB().QueryRowContext(ctx, query, rulemakingID, day).Scan(
		&a.ID,
		&a.Date,
		&a.RulemakingID,
		&a.TotalSubmissions,
		&a.UniqueUsers,
		&a.StatesRepresented,
		&a.AvgCommentLength,
		&a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics for %s on %s: %w", rulemakingID, day, err)
	}

	return &a, nil
}

// ListForRulemaking returns daily snapshots in date order, bounded by [from, to) when set
func (s *AnalyticsStore) ListForRulemaking(ctx context.Context, rulemakingID string, from, to time.Time) ([]model.AnalyticsSnapshot, error) {
	query := `
		SELECT id, date, rulemaking_id, total_submissions, unique_users,
		       states_represented, avg_comment_length, created_at
		FROM analytics
		WHERE rulemaking_id = $1
		  AND ($2::date IS NULL OR date >= $2::date)
		  AND ($3::date IS NULL OR date < $3::date)
		ORDER BY date ASC
	`

	rows, err := s.w.DB().QueryContext(ctx, query, rulemakingID, dateOrNull(from), dateOrNull(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics for %s: %w", rulemakingID, err)
	}
	defer rows.Close()

	snapshots := []model.AnalyticsSnapshot{}
	for rows.Next() {
		var a model.AnalyticsSnapshot
		if err := rows.Scan(
			&a.ID,
			&a.Date,
			&a.RulemakingID,
			&a.TotalSubmissions,
			&a.UniqueUsers,
			&a.StatesRepresented,
			&a.AvgCommentLength,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analytics: %w", err)
		}
		snapshots = append(snapshots, a)
	}

	return snapshots, rows.Err()
}

func dateOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return model.NewDate(t).String()
}
