package service

import (
	"context"
	"time"

	"github.com/jjenkins/publiccomment/internal/model"
)

// RulemakingRepository persists rulemakings. Lookups return nil, nil when absent.
type RulemakingRepository interface {
	Create(ctx context.Context, r *model.Rulemaking) error
	GetByID(ctx context.Context, id string) (*model.Rulemaking, error)
	GetByDocketID(ctx context.Context, docketID string) (*model.Rulemaking, error)
	ListActive(ctx context.Context) ([]model.Rulemaking, error)
	Update(ctx context.Context, r *model.Rulemaking) error
}

// SubmissionRepository persists submissions
type SubmissionRepository interface {
	Create(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	Finalize(ctx context.Context, s *model.Submission) error
	List(ctx context.Context, f model.SubmissionFilter) ([]model.Submission, error)
	ListCreatedBetween(ctx context.Context, rulemakingID string, from, to time.Time) ([]model.Submission, error)
	Export(ctx context.Context, f model.SubmissionFilter) ([]model.ExportRow, error)
	Stats(ctx context.Context, f model.StatsFilter) (model.SubmissionStats, error)
}

// AnalyticsRepository persists daily snapshots
type AnalyticsRepository interface {
	Upsert(ctx context.Context, a *model.AnalyticsSnapshot) error
	Get(ctx context.Context, rulemakingID string, day model.Date) (*model.AnalyticsSnapshot, error)
	ListForRulemaking(ctx context.Context, rulemakingID string, from, to time.Time) ([]model.AnalyticsSnapshot, error)
}

// AdminRepository persists admin accounts
type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
	Update(ctx context.Context, id string, u model.AdminUpdate) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

// DraftGenerator produces letter drafts
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, r *model.Rulemaking, n model.Narrative) (string, error)
}

// RecomputeScheduler queues an analytics recomputation for a rulemaking and day
type RecomputeScheduler interface {
	ScheduleRecompute(ctx context.Context, rulemakingID string, day model.Date) error
}
