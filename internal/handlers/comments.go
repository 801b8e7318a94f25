package handlers

import (
	"errors"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/templates"
)

const submissionNotFound = "Submission not found"

type generateRequest struct {
	RulemakingID   string `json:"rulemaking_id"`
	RecaptchaToken string `json:"recaptcha_token"`
	model.Narrative
}

// GenerateCommentHandler drafts a letter and stores it as a draft submission
func GenerateCommentHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req generateRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody()
		}

		result, err := svc.Create(c.UserContext(), service.CreateRequest{
			RulemakingID:   req.RulemakingID,
			Narrative:      req.Narrative,
			RecaptchaToken: req.RecaptchaToken,
			IPAddress:      c.IP(),
			UserAgent:      c.Get(fiber.HeaderUserAgent),
		})
		if err != nil {
			return notFound(err, rulemakingNotFound)
		}
		return c.JSON(result)
	}
}

type finalizeRequest struct {
	FinalComment                *string `json:"final_comment"`
	Status                      string  `json:"status"`
	SubmissionStatus            string  `json:"submission_status"`
	FederalRegisterSubmissionID string  `json:"federal_register_submission_id"`
}

// FinalizeCommentHandler saves the citizen's final letter. The legacy
// submission_status field is honoured when status is absent.
func FinalizeCommentHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req finalizeRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody()
		}
		// the service falls back to the draft on a nil comment; HTTP callers must send one
		if req.FinalComment == nil {
			verr := &service.ValidationError{}
			verr.Add("final_comment", "Final comment is required")
			return verr
		}
		status := req.Status
		if status == "" {
			status = req.SubmissionStatus
		}

		sub, err := svc.Finalize(c.UserContext(), c.Params("id"), service.FinalizeRequest{
			FinalComment:                req.FinalComment,
			Status:                      status,
			FederalRegisterSubmissionID: req.FederalRegisterSubmissionID,
		})
		if err != nil {
			return notFound(err, submissionNotFound)
		}
		return c.JSON(fiber.Map{
			"message":       "Comment updated successfully",
			"submission_id": sub.ID,
		})
	}
}

func GetCommentHandler(svc *service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return notFound(err, submissionNotFound)
		}
		return c.JSON(fiber.Map{"submission": sub})
	}
}

// LetterHandler renders the printable letter page
func LetterHandler(subs *service.SubmissionService, rulemakings *service.RulemakingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		sub, err := subs.Get(ctx, c.Params("id"))
		if err != nil {
			return notFound(err, submissionNotFound)
		}

		// the letter still renders if its rulemaking was removed
		r, err := rulemakings.Get(ctx, sub.RulemakingID)
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			return err
		}

		page := templates.Letter(templates.LetterPage{Submission: sub, Rulemaking: r})
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
