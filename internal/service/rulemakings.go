package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
)

// RulemakingService manages rulemakings
type RulemakingService struct {
	rulemakings RulemakingRepository
	logger      *zap.Logger
}

// NewRulemakingService creates a new RulemakingService
func NewRulemakingService(rulemakings RulemakingRepository, logger *zap.Logger) *RulemakingService {
	return &RulemakingService{
		rulemakings: rulemakings,
		logger:      logger.Named("rulemakings"),
	}
}

// RulemakingInput carries rulemaking fields from an admin. Nil fields are left
// unchanged on update; on create they take their zero value.
type RulemakingInput struct {
	Agency             *string                 `json:"agency"`
	Title              *string                 `json:"title"`
	Description        *string                 `json:"description"`
	DocketID           *string                 `json:"docket_id"`
	FederalRegisterURL *string                 `json:"federal_register_url"`
	CommentDeadline    *string                 `json:"comment_deadline"`
	Status             *string                 `json:"status"`
	ContextDocuments   *model.ContextDocuments `json:"context_documents"`
	LegalAnalysis      *string                 `json:"legal_analysis"`
	OppositionPoints   *model.OppositionPoints `json:"opposition_points"`
}

// ListActive returns active rulemakings, soonest deadline first
func (s *RulemakingService) ListActive(ctx context.Context) ([]model.Rulemaking, error) {
	return s.rulemakings.ListActive(ctx)
}

// Get returns a rulemaking by id
func (s *RulemakingService) Get(ctx context.Context, id string) (*model.Rulemaking, error) {
	r, err := s.rulemakings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rulemaking: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("rulemaking %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// Create validates and stores a new rulemaking. Status defaults to active.
func (s *RulemakingService) Create(ctx context.Context, in RulemakingInput) (*model.Rulemaking, error) {
	r := &model.Rulemaking{Status: model.RulemakingActive}
	verr := &ValidationError{}
	applyInput(r, in, verr)
	if in.CommentDeadline == nil {
		verr.Add("comment_deadline", "Valid deadline date is required")
	}
	validateRulemaking(r, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.rulemakings.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("rulemaking created",
		zap.String("rulemaking_id", r.ID),
		zap.String("docket_id", r.DocketID))
	return r, nil
}

// Update merges in over the stored rulemaking and re-validates the result
func (s *RulemakingService) Update(ctx context.Context, id string, in RulemakingInput) (*model.Rulemaking, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	applyInput(r, in, verr)
	validateRulemaking(r, verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.rulemakings.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func applyInput(r *model.Rulemaking, in RulemakingInput, verr *ValidationError) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&r.Agency, in.Agency)
	set(&r.Title, in.Title)
	set(&r.Description, in.Description)
	set(&r.DocketID, in.DocketID)
	set(&r.FederalRegisterURL, in.FederalRegisterURL)
	set(&r.Status, in.Status)
	set(&r.LegalAnalysis, in.LegalAnalysis)

	if in.CommentDeadline != nil {
		d, err := model.ParseDate(*in.CommentDeadline)
		if err != nil {
			verr.Add("comment_deadline", "Valid deadline date is required")
		} else {
			r.CommentDeadline = d
		}
	}
	if in.ContextDocuments != nil {
		r.ContextDocuments = *in.ContextDocuments
	}
	if in.OppositionPoints != nil {
		r.OppositionPoints = *in.OppositionPoints
	}
}

func validateRulemaking(r *model.Rulemaking, verr *ValidationError) {
	if r.Agency == "" {
		verr.Add("agency", "Agency is required")
	}
	if r.Title == "" {
		verr.Add("title", "Title is required")
	}
	if r.DocketID == "" {
		verr.Add("docket_id", "Docket ID is required")
	}
	if !model.IsValidRulemakingStatus(r.Status) {
		verr.Add("status", "Status must be active, closed, or draft")
	}
	if r.FederalRegisterURL != "" {
		if u, err := url.Parse(r.FederalRegisterURL); err != nil || u.Scheme == "" || u.Host == "" {
			verr.Add("federal_register_url", "Federal Register URL must be an absolute URL")
		}
	}
	for i, doc := range r.ContextDocuments {
		if strings.TrimSpace(doc.Title) == "" {
			verr.Add(fmt.Sprintf("context_documents[%d]", i), "Document title is required")
		}
	}
}
