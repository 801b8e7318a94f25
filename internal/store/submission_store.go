package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jjenkins/publiccomment/internal/model"
)

// DefaultListLimit caps admin listings when no limit is given
const DefaultListLimit = 100

// SubmissionStore handles persistence for comment submissions
type SubmissionStore struct {
	w *Warehouse
}

// NewSubmissionStore creates a new SubmissionStore
func NewSubmissionStore(w *Warehouse) *SubmissionStore {
	return &SubmissionStore{w: w}
}

const submissionColumns = `s.id, s.rulemaking_id, s.user_name, s.user_email, s.user_city, s.user_state,
	s.user_zip, s.personal_story, s.why_it_matters, s.experiences, s.concerns,
	s.generated_comment, s.final_comment, s.submission_status,
	s.federal_register_submission_id, s.ip_address, s.user_agent,
	s.recaptcha_verified, s.created_at, s.submitted_at`

func submissionDest(s *model.Submission) []any {
	return []any{
		&s.ID,
		&s.RulemakingID,
		&s.Name,
		nullString(&s.Email),
		nullString(&s.City),
		nullString(&s.State),
		nullString(&s.Zip),
		nullString(&s.PersonalStory),
		nullString(&s.WhyItMatters),
		nullString(&s.Experiences),
		nullString(&s.Concerns),
		&s.GeneratedComment,
		nullString(&s.FinalComment),
		&s.Status,
		nullString(&s.FederalRegisterSubmissionID),
		nullString(&s.IPAddress),
		nullString(&s.UserAgent),
		&s.RecaptchaVerified,
		&s.CreatedAt,
		nullTime(&s.SubmittedAt),
	}
}

// Create inserts a submission, assigning its ID and creation time
func (s *SubmissionStore) Create(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	rec := Record{
		"id":                             sub.ID,
		"rulemaking_id":                  sub.RulemakingID,
		"user_name":                      sub.Name,
		"user_email":                     emptyAsNull(sub.Email),
		"user_city":                      emptyAsNull(sub.City),
		"user_state":                     emptyAsNull(sub.State),
		"user_zip":                       emptyAsNull(sub.Zip),
		"personal_story":                 emptyAsNull(sub.PersonalStory),
		"why_it_matters":                 emptyAsNull(sub.WhyItMatters),
		"experiences":                    emptyAsNull(sub.Experiences),
		"concerns":                       emptyAsNull(sub.Concerns),
		"generated_comment":              sub.GeneratedComment,
		"final_comment":                  emptyAsNull(sub.FinalComment),
		"submission_status":              sub.Status,
		"federal_register_submission_id": emptyAsNull(sub.FederalRegisterSubmissionID),
		"ip_address":                     emptyAsNull(sub.IPAddress),
		"user_agent":                     emptyAsNull(sub.UserAgent),
		"recaptcha_verified":             sub.RecaptchaVerified,
		"created_at":                     sub.CreatedAt,
		"submitted_at":                   timeOrNull(sub.SubmittedAt),
	}

	if _, err := s.w.Insert(ctx, KindSubmissions, rec); err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission; it returns nil when none exists
func (s *SubmissionStore) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	found, err := s.w.GetByID(ctx, KindSubmissions, id, submissionDest(&sub)...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &sub, nil
}

// Finalize persists the final letter, status and submission time of sub
func (s *SubmissionStore) Finalize(ctx context.Context, sub *model.Submission) error {
	changes := Record{
		"final_comment":     emptyAsNull(sub.FinalComment),
		"submission_status": sub.Status,
		"submitted_at":      timeOrNull(sub.SubmittedAt),
	}
	if sub.FederalRegisterSubmissionID != "" {
		changes["federal_register_submission_id"] = sub.FederalRegisterSubmissionID
	}

	if err := s.w.Update(ctx, KindSubmissions, sub.ID, changes); err != nil {
		return fmt.Errorf("failed to finalize submission: %w", err)
	}
	return nil
}

// List returns submissions newest first, filtered and paginated
func (s *SubmissionStore) List(ctx context.Context, f model.SubmissionFilter) ([]model.Submission, error) {
	where, args := submissionWhere(f.RulemakingID, f.Status)

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM submissions s
		%s
		ORDER BY s.created_at DESC
		LIMIT $%d OFFSET $%d
	`, submissionColumns, where, len(args)-1, len(args))

	rows, err := s.w.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(submissionDest(&sub)...); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// ListCreatedBetween returns a rulemaking's submissions created in [from, to)
func (s *SubmissionStore) ListCreatedBetween(ctx context.Context, rulemakingID string, from, to time.Time) ([]model.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions s
		WHERE s.rulemaking_id = $1 AND s.created_at >= $2 AND s.created_at < $3
		ORDER BY s.created_at ASC
	`

	rows, err := s.w.DB().QueryContext(ctx, query, rulemakingID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for %s: %w", rulemakingID, err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(submissionDest(&sub)...); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// Export returns submissions joined with their rulemaking's title, agency and docket
func (s *SubmissionStore) Export(ctx context.Context, f model.SubmissionFilter) ([]model.ExportRow, error) {
	where, args := submissionWhere(f.RulemakingID, f.Status)

	query := fmt.Sprintf(`
		SELECT %s, COALESCE(r.title, ''), COALESCE(r.agency, ''), COALESCE(r.docket_id, '')
		FROM submissions s
		LEFT JOIN rulemakings r ON r.id = s.rulemaking_id
		%s
		ORDER BY s.created_at DESC
	`, submissionColumns, where)

	rows, err := s.w.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export submissions: %w", err)
	}
	defer rows.Close()

	out := []model.ExportRow{}
	for rows.Next() {
		var row model.ExportRow
		dest := append(submissionDest(&row.Submission), &row.RulemakingTitle, &row.Agency, &row.DocketID)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// Stats computes submission aggregates through the warehouse query path
func (s *SubmissionStore) Stats(ctx context.Context, f model.StatsFilter) (model.SubmissionStats, error) {
	query, args := buildStatsQuery(f)

	recs, err := s.w.Query(ctx, query, args...)
	if err != nil {
		return model.SubmissionStats{}, fmt.Errorf("failed to compute submission stats: %w", err)
	}
	if len(recs) == 0 {
		return model.SubmissionStats{}, nil
	}

	rec := recs[0]
	return model.SubmissionStats{
		TotalSubmissions:  recordInt(rec, "total_submissions"),
		UniqueUsers:       recordInt(rec, "unique_users"),
		StatesRepresented: recordInt(rec, "states_represented"),
		AvgCommentLength:  recordFloat(rec, "avg_comment_length"),
		SubmittedCount:    recordInt(rec, "submitted_count"),
		DraftCount:        recordInt(rec, "draft_count"),
	}, nil
}

func buildStatsQuery(f model.StatsFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.RulemakingID != "" {
		args = append(args, f.RulemakingID)
		conds = append(conds, fmt.Sprintf("rulemaking_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := `
		SELECT
			COUNT(*) AS total_submissions,
			COUNT(DISTINCT user_name) AS unique_users,
			COUNT(DISTINCT NULLIF(user_state, '')) AS states_represented,
			COALESCE(AVG(LENGTH(generated_comment)), 0)::float8 AS avg_comment_length,
			COUNT(*) FILTER (WHERE submission_status = 'submitted') AS submitted_count,
			COUNT(*) FILTER (WHERE submission_status = 'draft') AS draft_count
		FROM submissions
		` + where
	return query, args
}

func submissionWhere(rulemakingID, status string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if rulemakingID != "" {
		args = append(args, rulemakingID)
		conds = append(conds, fmt.Sprintf("s.rulemaking_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("s.submission_status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func recordInt(rec Record, col string) int64 {
	switch v := rec[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func recordFloat(rec Record, col string) float64 {
	switch v := rec[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
