package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
)

// SubmissionService drives the draft -> submitted lifecycle
type SubmissionService struct {
	rulemakings RulemakingRepository
	submissions SubmissionRepository
	drafter     DraftGenerator
	verifier    Verifier
	scheduler   RecomputeScheduler
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	rulemakings RulemakingRepository,
	submissions SubmissionRepository,
	drafter DraftGenerator,
	verifier Verifier,
	scheduler RecomputeScheduler,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		rulemakings: rulemakings,
		submissions: submissions,
		drafter:     drafter,
		verifier:    verifier,
		scheduler:   scheduler,
		logger:      logger.Named("submissions"),
		now:         time.Now,
	}
}

// CreateRequest is a citizen's request for a drafted letter
type CreateRequest struct {
	RulemakingID   string
	Narrative      model.Narrative
	RecaptchaToken string
	IPAddress      string
	UserAgent      string
}

// RulemakingSummary is the rulemaking context returned alongside a new draft
type RulemakingSummary struct {
	Title              string     `json:"title"`
	Agency             string     `json:"agency"`
	DocketID           string     `json:"docket_id"`
	FederalRegisterURL string     `json:"federal_register_url,omitempty"`
	CommentDeadline    model.Date `json:"comment_deadline"`
}

// CreateResult is the outcome of a successful Create
type CreateResult struct {
	SubmissionID     string            `json:"submission_id"`
	GeneratedComment string            `json:"generated_comment"`
	Rulemaking       RulemakingSummary `json:"rulemaking"`
}

// Create validates the request, drafts a letter and persists it as a draft.
// Nothing is persisted when generation fails.
func (s *SubmissionService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	req.Narrative = trimNarrative(req.Narrative)

	verr := &ValidationError{}
	if strings.TrimSpace(req.RulemakingID) == "" {
		verr.Add("rulemaking_id", "Rulemaking ID is required")
	}
	if req.Narrative.Name == "" {
		verr.Add("user_name", "Name is required")
	}
	if strings.TrimSpace(req.RecaptchaToken) == "" {
		verr.Add("recaptcha_token", "reCAPTCHA verification is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	r, err := s.rulemakings.GetByID(ctx, req.RulemakingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rulemaking: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("rulemaking %s: %w", req.RulemakingID, ErrNotFound)
	}
	if !r.AcceptsComments(s.now()) {
		return nil, domainErrorf("This rulemaking is no longer accepting comments")
	}

	verified, err := s.verifier.Verify(ctx, req.RecaptchaToken, req.IPAddress)
	if err != nil {
		return nil, err
	}

	draft, err := s.drafter.GenerateDraft(ctx, r, req.Narrative)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		RulemakingID:      r.ID,
		Narrative:         req.Narrative,
		GeneratedComment:  draft,
		Status:            model.SubmissionDraft,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		RecaptchaVerified: verified,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Info("draft submission created",
		zap.String("submission_id", sub.ID),
		zap.String("rulemaking_id", r.ID),
		zap.Bool("recaptcha_verified", verified))

	return &CreateResult{
		SubmissionID:     sub.ID,
		GeneratedComment: draft,
		Rulemaking: RulemakingSummary{
			Title:              r.Title,
			Agency:             r.Agency,
			DocketID:           r.DocketID,
			FederalRegisterURL: r.FederalRegisterURL,
			CommentDeadline:    r.CommentDeadline,
		},
	}, nil
}

// FinalizeRequest carries the citizen's edits. A nil FinalComment keeps the draft text.
type FinalizeRequest struct {
	FinalComment                *string
	Status                      string
	FederalRegisterSubmissionID string
}

// Finalize records the final letter and status. Analytics are recomputed
// asynchronously and never fail the call. Concurrent finalizes: last write wins.
func (s *SubmissionService) Finalize(ctx context.Context, id string, req FinalizeRequest) (*model.Submission, error) {
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = model.SubmissionSubmitted
	}

	verr := &ValidationError{}
	if req.FinalComment != nil && strings.TrimSpace(*req.FinalComment) == "" {
		verr.Add("final_comment", "Final comment is required")
	}
	if !model.IsValidSubmissionStatus(status) {
		verr.Add("status", "Status must be draft, submitted, or failed")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if status != model.SubmissionDraft && strings.TrimSpace(sub.GeneratedComment) == "" {
		return nil, domainErrorf("Submission has no generated draft")
	}

	sub.FinalComment = sub.GeneratedComment
	if req.FinalComment != nil {
		sub.FinalComment = *req.FinalComment
	}
	sub.Status = status
	sub.SubmittedAt = nil
	if status == model.SubmissionSubmitted {
		now := s.now().UTC()
		sub.SubmittedAt = &now
	}
	if req.FederalRegisterSubmissionID != "" {
		sub.FederalRegisterSubmissionID = strings.TrimSpace(req.FederalRegisterSubmissionID)
	}

	if err := s.submissions.Finalize(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	s.scheduleRecompute(ctx, sub)

	return sub, nil
}

func (s *SubmissionService) scheduleRecompute(ctx context.Context, sub *model.Submission) {
	if s.scheduler == nil {
		return
	}
	day := model.NewDate(sub.CreatedAt)
	if err := s.scheduler.ScheduleRecompute(ctx, sub.RulemakingID, day); err != nil {
		s.logger.Warn("failed to schedule analytics recompute",
			zap.String("rulemaking_id", sub.RulemakingID),
			zap.String("day", day.String()),
			zap.Error(err))
	}
}

// Get returns a submission without request metadata
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.GetForAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	clean := sub.Sanitized()
	return &clean, nil
}

// GetForAdmin returns the full submission record
func (s *SubmissionService) GetForAdmin(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return sub, nil
}

// List returns sanitized submissions matching f
func (s *SubmissionService) List(ctx context.Context, f model.SubmissionFilter) ([]model.Submission, error) {
	subs, err := s.submissions.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i] = subs[i].Sanitized()
	}
	return subs, nil
}

// Stats aggregates submissions, optionally for one rulemaking
func (s *SubmissionService) Stats(ctx context.Context, rulemakingID string) (model.SubmissionStats, error) {
	return s.submissions.Stats(ctx, model.StatsFilter{RulemakingID: rulemakingID})
}

// Export returns sanitized submissions joined with rulemaking details
func (s *SubmissionService) Export(ctx context.Context, f model.SubmissionFilter) ([]model.ExportRow, error) {
	rows, err := s.submissions.Export(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Submission = rows[i].Submission.Sanitized()
	}
	return rows, nil
}

// trimNarrative normalizes whitespace-only fields to "not provided"
func trimNarrative(n model.Narrative) model.Narrative {
	for _, f := range []*string{
		&n.Name, &n.Email, &n.City, &n.State, &n.Zip,
		&n.PersonalStory, &n.WhyItMatters, &n.Experiences, &n.Concerns,
	} {
		*f = strings.TrimSpace(*f)
	}
	return n
}
