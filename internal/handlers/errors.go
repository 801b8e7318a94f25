package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/service"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error     string   `json:"error"`
	Details   any      `json:"details,omitempty"`
	Timestamp string   `json:"timestamp"`
	Stack     []string `json:"stack,omitempty"`
}

// ErrorHandler renders errors returned by handlers. Server errors carry a
// generic message in production; elsewhere the cause is included.
func ErrorHandler(production bool, logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := classify(err)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			if production {
				body.Details = nil
			} else {
				body.Stack = errorChain(err)
			}
		}

		body.Timestamp = time.Now().UTC().Format(time.RFC3339)
		return c.Status(status).JSON(body)
	}
}

func classify(err error) (int, errorBody) {
	var (
		verr   *service.ValidationError
		derr   *service.DomainError
		ferr   *fiber.Error
		status int
		body   errorBody
	)

	switch {
	case errors.As(err, &verr):
		status, body = fiber.StatusBadRequest, errorBody{Error: "Validation failed", Details: verr.Details}
	case errors.As(err, &derr):
		status, body = fiber.StatusBadRequest, errorBody{Error: derr.Message}
	case errors.Is(err, service.ErrVerificationFailed):
		status, body = fiber.StatusBadRequest, errorBody{Error: service.ErrVerificationFailed.Error()}
	case errors.Is(err, service.ErrInvalidCredentials):
		status, body = fiber.StatusUnauthorized, errorBody{Error: "Invalid credentials"}
	case errors.Is(err, service.ErrNotFound):
		status, body = fiber.StatusNotFound, errorBody{Error: "Not found"}
	case errors.Is(err, service.ErrGenerationFailed):
		status, body = fiber.StatusInternalServerError, errorBody{
			Error:   "AI Service Error",
			Details: "Unable to generate comment at this time",
		}
	case errors.As(err, &ferr):
		status, body = ferr.Code, errorBody{Error: ferr.Message}
		if ferr.Code == fiber.StatusTooManyRequests {
			body.Details = "Please wait before making another request"
		}
	default:
		status, body = fiber.StatusInternalServerError, errorBody{Error: "Internal Server Error", Details: err.Error()}
	}

	return status, body
}

// errorChain splits a wrapped error into one entry per wrapping level
func errorChain(err error) []string {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if next := errors.Unwrap(e); next != nil {
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		chain = append(chain, msg)
	}
	return chain
}

// notFound maps service.ErrNotFound to a 404 naming the resource
func notFound(err error, message string) error {
	if errors.Is(err, service.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, message)
	}
	return err
}

func badBody() error {
	return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
}
