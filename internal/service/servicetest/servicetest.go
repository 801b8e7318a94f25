// Package servicetest provides in-memory repositories and fakes for service and handler tests.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/store"
)

// Rulemakings is an in-memory service.RulemakingRepository
type Rulemakings struct {
	mu   sync.Mutex
	rows map[string]model.Rulemaking
}

// NewRulemakings returns a repository seeded with rs
func NewRulemakings(rs ...*model.Rulemaking) *Rulemakings {
	repo := &Rulemakings{rows: make(map[string]model.Rulemaking)}
	for _, r := range rs {
		_ = repo.Create(context.Background(), r)
	}
	return repo
}

func (m *Rulemakings) Create(_ context.Context, r *model.Rulemaking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	m.rows[r.ID] = *r
	return nil
}

func (m *Rulemakings) GetByID(_ context.Context, id string) (*model.Rulemaking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Rulemakings) GetByDocketID(_ context.Context, docketID string) (*model.Rulemaking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.DocketID == docketID {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Rulemakings) ListActive(_ context.Context) ([]model.Rulemaking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Rulemaking{}
	for _, r := range m.rows {
		if r.Status == model.RulemakingActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CommentDeadline.Time().Before(out[j].CommentDeadline.Time())
	})
	return out, nil
}

func (m *Rulemakings) Update(_ context.Context, r *model.Rulemaking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.UpdatedAt = time.Now().UTC()
	m.rows[r.ID] = *r
	return nil
}

// Submissions is an in-memory service.SubmissionRepository
type Submissions struct {
	mu          sync.Mutex
	rows        map[string]model.Submission
	rulemakings *Rulemakings

	// CreateErr, when set, fails every Create
	CreateErr error
}

// NewSubmissions returns an empty repository; rulemakings backs Export joins and may be nil
func NewSubmissions(rulemakings *Rulemakings) *Submissions {
	return &Submissions{rows: make(map[string]model.Submission), rulemakings: rulemakings}
}

func (m *Submissions) Create(_ context.Context, s *model.Submission) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.rows[s.ID] = *s
	return nil
}

func (m *Submissions) GetByID(_ context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Submissions) Finalize(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[s.ID]
	if !ok {
		return nil
	}
	cur.FinalComment = s.FinalComment
	cur.Status = s.Status
	cur.SubmittedAt = s.SubmittedAt
	if s.FederalRegisterSubmissionID != "" {
		cur.FederalRegisterSubmissionID = s.FederalRegisterSubmissionID
	}
	m.rows[s.ID] = cur
	return nil
}

// Len returns the number of stored submissions
func (m *Submissions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *Submissions) sorted(match func(model.Submission) bool) []model.Submission {
	out := []model.Submission{}
	for _, s := range m.rows {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func filterMatch(f model.SubmissionFilter) func(model.Submission) bool {
	return func(s model.Submission) bool {
		return (f.RulemakingID == "" || s.RulemakingID == f.RulemakingID) &&
			(f.Status == "" || s.Status == f.Status)
	}
}

func (m *Submissions) List(_ context.Context, f model.SubmissionFilter) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(filterMatch(f))

	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *Submissions) ListCreatedBetween(_ context.Context, rulemakingID string, from, to time.Time) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s model.Submission) bool {
		return s.RulemakingID == rulemakingID && !s.CreatedAt.Before(from) && s.CreatedAt.Before(to)
	}), nil
}

func (m *Submissions) Export(ctx context.Context, f model.SubmissionFilter) ([]model.ExportRow, error) {
	m.mu.Lock()
	subs := m.sorted(filterMatch(f))
	m.mu.Unlock()

	out := []model.ExportRow{}
	for _, s := range subs {
		row := model.ExportRow{Submission: s}
		if m.rulemakings != nil {
			if r, _ := m.rulemakings.GetByID(ctx, s.RulemakingID); r != nil {
				row.RulemakingTitle = r.Title
				row.Agency = r.Agency
				row.DocketID = r.DocketID
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *Submissions) Stats(_ context.Context, f model.StatsFilter) (model.SubmissionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.sorted(func(s model.Submission) bool {
		return (f.RulemakingID == "" || s.RulemakingID == f.RulemakingID) &&
			(f.From.IsZero() || !s.CreatedAt.Before(f.From)) &&
			(f.To.IsZero() || s.CreatedAt.Before(f.To))
	})

	var stats model.SubmissionStats
	names := map[string]bool{}
	states := map[string]bool{}
	var total int
	for _, s := range subs {
		names[s.Name] = true
		if s.State != "" {
			states[s.State] = true
		}
		total += len([]rune(s.GeneratedComment))
		switch s.Status {
		case model.SubmissionSubmitted:
			stats.SubmittedCount++
		case model.SubmissionDraft:
			stats.DraftCount++
		}
	}
	stats.TotalSubmissions = int64(len(subs))
	stats.UniqueUsers = int64(len(names))
	stats.StatesRepresented = int64(len(states))
	if len(subs) > 0 {
		stats.AvgCommentLength = float64(total) / float64(len(subs))
	}
	return stats, nil
}

// Analytics is an in-memory service.AnalyticsRepository keyed by (date, rulemaking)
type Analytics struct {
	mu   sync.Mutex
	rows map[string]model.AnalyticsSnapshot

	// UpsertErr, when set, fails every Upsert
	UpsertErr error
}

// NewAnalytics returns an empty repository
func NewAnalytics() *Analytics {
	return &Analytics{rows: make(map[string]model.AnalyticsSnapshot)}
}

func analyticsKey(rulemakingID string, day model.Date) string {
	return day.String() + "/" + rulemakingID
}

func (m *Analytics) Upsert(_ context.Context, a *model.AnalyticsSnapshot) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := analyticsKey(a.RulemakingID, a.Date)
	if cur, ok := m.rows[key]; ok {
		a.ID = cur.ID
		a.CreatedAt = cur.CreatedAt
	} else {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = time.Now().UTC()
	}
	m.rows[key] = *a
	return nil
}

func (m *Analytics) Get(_ context.Context, rulemakingID string, day model.Date) (*model.AnalyticsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[analyticsKey(rulemakingID, day)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Analytics) ListForRulemaking(_ context.Context, rulemakingID string, from, to time.Time) ([]model.AnalyticsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.AnalyticsSnapshot{}
	for _, a := range m.rows {
		d := a.Date.Time()
		if a.RulemakingID != rulemakingID ||
			(!from.IsZero() && d.Before(model.TruncateDay(from))) ||
			(!to.IsZero() && !d.Before(to)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Time().Before(out[j].Date.Time()) })
	return out, nil
}

// Len returns the number of stored snapshots
func (m *Analytics) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Admins is an in-memory service.AdminRepository
type Admins struct {
	mu   sync.Mutex
	rows map[string]model.Admin
}

// NewAdmins returns an empty repository
func NewAdmins() *Admins {
	return &Admins{rows: make(map[string]model.Admin)}
}

func (m *Admins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *Admins) GetByID(_ context.Context, id string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Admins) List(_ context.Context) ([]model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Admin{}
	for _, a := range m.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *Admins) Create(_ context.Context, a *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.rows {
		if strings.EqualFold(cur.Email, a.Email) {
			return store.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	m.rows[a.ID] = *a
	return nil
}

func (m *Admins) Update(_ context.Context, id string, u model.AdminUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil
	}
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Role != nil {
		a.Role = *u.Role
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	a.UpdatedAt = time.Now().UTC()
	m.rows[id] = a
	return nil
}

func (m *Admins) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		a.PasswordHash = hash
		m.rows[id] = a
	}
	return nil
}

func (m *Admins) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[id]; ok {
		a.LastLogin = &at
		m.rows[id] = a
	}
	return nil
}

func (m *Admins) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}
