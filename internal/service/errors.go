package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced rulemaking, submission or admin does not exist
	ErrNotFound = errors.New("not found")
	// ErrGenerationFailed is returned when the language model produced no usable draft
	ErrGenerationFailed = errors.New("failed to generate comment letter")
	// ErrVerificationFailed is returned when the bot-verification token is rejected
	ErrVerificationFailed = errors.New("reCAPTCHA verification failed")
	// ErrInvalidCredentials covers unknown emails, wrong passwords and inactive accounts alike
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects rejected input fields
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Field + ": " + d.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a rejected field
func (e *ValidationError) Add(field, message string) {
	e.Details = append(e.Details, FieldError{Field: field, Message: message})
}

// OrNil returns e when any field was rejected
func (e *ValidationError) OrNil() error {
	if len(e.Details) == 0 {
		return nil
	}
	return e
}

// DomainError is a business-rule rejection of otherwise well-formed input
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func domainErrorf(format string, args ...any) error {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}
