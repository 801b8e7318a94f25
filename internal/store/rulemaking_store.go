package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jjenkins/publiccomment/internal/model"
)

// RulemakingStore handles persistence for rulemakings
type RulemakingStore struct {
	w *Warehouse
}

// NewRulemakingStore creates a new RulemakingStore
func NewRulemakingStore(w *Warehouse) *RulemakingStore {
	return &RulemakingStore{w: w}
}

const rulemakingColumns = `id, agency, title, description, docket_id, federal_register_url,
	comment_deadline, status, context_documents, legal_analysis,
	opposition_points, created_at, updated_at`

func rulemakingDest(r *model.Rulemaking) []any {
	return []any{
		&r.ID,
		&r.Agency,
		&r.Title,
		nullString(&r.Description),
		&r.DocketID,
		nullString(&r.FederalRegisterURL),
		&r.CommentDeadline,
		&r.Status,
		&r.ContextDocuments,
		nullString(&r.LegalAnalysis),
		&r.OppositionPoints,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
}

func rulemakingRecord(r *model.Rulemaking) Record {
	return Record{
		"id":                   r.ID,
		"agency":               r.Agency,
		"title":                r.Title,
		"description":          emptyAsNull(r.Description),
		"docket_id":            r.DocketID,
		"federal_register_url": emptyAsNull(r.FederalRegisterURL),
		"comment_deadline":     r.CommentDeadline,
		"status":               r.Status,
		"context_documents":    r.ContextDocuments,
		"legal_analysis":       emptyAsNull(r.LegalAnalysis),
		"opposition_points":    r.OppositionPoints,
		"created_at":           r.CreatedAt,
		"updated_at":           r.UpdatedAt,
	}
}

// Create inserts a rulemaking, assigning its ID and timestamps
func (s *RulemakingStore) Create(ctx context.Context, r *model.Rulemaking) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.w.Insert(ctx, KindRulemakings, rulemakingRecord(r)); err != nil {
		return fmt.Errorf("failed to create rulemaking: %w", err)
	}
	return nil
}

// GetByID retrieves a rulemaking; it returns nil when none exists
func (s *RulemakingStore) GetByID(ctx context.Context, id string) (*model.Rulemaking, error) {
	var r model.Rulemaking
	found, err := s.w.GetByID(ctx, KindRulemakings, id, rulemakingDest(&r)...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &r, nil
}

// GetByDocketID retrieves a rulemaking by its docket identifier
func (s *RulemakingStore) GetByDocketID(ctx context.Context, docketID string) (*model.Rulemaking, error) {
	query := `SELECT ` + rulemakingColumns + ` FROM rulemakings WHERE docket_id = $1 LIMIT 1`

	rows, err := s.w.DB().QueryContext(ctx, query, docketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rulemaking by docket %s: %w", docketID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var r model.Rulemaking
	if err := rows.Scan(rulemakingDest(&r)...); err != nil {
		return nil, fmt.Errorf("failed to scan rulemaking: %w", err)
	}
	return &r, nil
}

// ListActive returns active rulemakings ordered by deadline, soonest first
func (s *RulemakingStore) ListActive(ctx context.Context) ([]model.Rulemaking, error) {
	query := `
		SELECT ` + rulemakingColumns + `
		FROM rulemakings
		WHERE status = $1
		ORDER BY comment_deadline ASC
	`

	rows, err := s.w.DB().QueryContext(ctx, query, model.RulemakingActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list rulemakings: %w", err)
	}
	defer rows.Close()

	rulemakings := []model.Rulemaking{}
	for rows.Next() {
		var r model.Rulemaking
		if err := rows.Scan(rulemakingDest(&r)...); err != nil {
			return nil, fmt.Errorf("failed to scan rulemaking: %w", err)
		}
		rulemakings = append(rulemakings, r)
	}

	return rulemakings, rows.Err()
}

// Update writes the mutable fields of r
func (s *RulemakingStore) Update(ctx context.Context, r *model.Rulemaking) error {
	rec := rulemakingRecord(r)
	delete(rec, "id")
	delete(rec, "created_at")
	delete(rec, "updated_at")

	if err := s.w.Update(ctx, KindRulemakings, r.ID, rec); err != nil {
		return fmt.Errorf("failed to update rulemaking: %w", err)
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}
