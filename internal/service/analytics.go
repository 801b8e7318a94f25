package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
)

// AnalyticsService calculates and stores per-day submission aggregates
type AnalyticsService struct {
	submissions SubmissionRepository
	analytics   AnalyticsRepository
	logger      *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(submissions SubmissionRepository, analytics AnalyticsRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		submissions: submissions,
		analytics:   analytics,
		logger:      logger.Named("analytics"),
	}
}

// Recompute recalculates the snapshot for a rulemaking's UTC day and upserts it.
// Running it twice with no new submissions yields identical numbers and one row.
func (a *AnalyticsService) Recompute(ctx context.Context, rulemakingID string, day model.Date) (*model.AnalyticsSnapshot, error) {
	start, end := day.Bounds()

	subs, err := a.submissions.ListCreatedBetween(ctx, rulemakingID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions for analytics: %w", err)
	}

	snap := summarize(subs)
	snap.Date = day
	snap.RulemakingID = rulemakingID

	if err := a.analytics.Upsert(ctx, &snap); err != nil {
		return nil, fmt.Errorf("failed to store analytics: %w", err)
	}

	a.logger.Debug("analytics recomputed",
		zap.String("rulemaking_id", rulemakingID),
		zap.String("day", day.String()),
		zap.Int64("total_submissions", snap.TotalSubmissions))

	return &snap, nil
}

// summarize computes the four snapshot counters. Lengths are measured in characters.
func summarize(subs []model.Submission) model.AnalyticsSnapshot {
	var snap model.AnalyticsSnapshot
	if len(subs) == 0 {
		return snap
	}

	names := make(map[string]struct{})
	states := make(map[string]struct{})
	var totalLen int

	for _, s := range subs {
		names[s.Name] = struct{}{}
		if s.State != "" {
			states[s.State] = struct{}{}
		}
		totalLen += utf8.RuneCountInString(s.GeneratedComment)
	}

	snap.TotalSubmissions = int64(len(subs))
	snap.UniqueUsers = int64(len(names))
	snap.StatesRepresented = int64(len(states))
	snap.AvgCommentLength = float64(totalLen) / float64(len(subs))
	return snap
}

// RulemakingReport is the analytics view of a rulemaking over a date range
type RulemakingReport struct {
	RulemakingID string                    `json:"rulemaking_id"`
	StartDate    model.Date                `json:"start_date"`
	EndDate      model.Date                `json:"end_date"`
	Summary      model.SubmissionStats     `json:"summary"`
	Daily        []model.AnalyticsSnapshot `json:"daily"`
}

// Report aggregates a rulemaking's submissions created between start and end, both inclusive
func (a *AnalyticsService) Report(ctx context.Context, rulemakingID string, start, end model.Date) (*RulemakingReport, error) {
	if end.Time().Before(start.Time()) {
		return nil, domainErrorf("endDate must not be before startDate")
	}

	from := start.Time()
	_, to := end.Bounds()

	summary, err := a.submissions.Stats(ctx, model.StatsFilter{
		RulemakingID: rulemakingID,
		From:         from,
		To:           to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute analytics: %w", err)
	}

	daily, err := a.analytics.ListForRulemaking(ctx, rulemakingID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily analytics: %w", err)
	}

	return &RulemakingReport{
		RulemakingID: rulemakingID,
		StartDate:    start,
		EndDate:      end,
		Summary:      summary,
		Daily:        daily,
	}, nil
}

// ReportWindowStart is the default start of a rulemaking analytics range
var ReportWindowStart = model.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
