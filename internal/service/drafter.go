package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/llm"
	"github.com/jjenkins/publiccomment/internal/model"
)

// Drafter turns a rulemaking and a citizen narrative into a draft letter
type Drafter struct {
	client    llm.Client
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewDrafter creates a Drafter bounded by timeout and maxTokens
func NewDrafter(client llm.Client, timeout time.Duration, maxTokens int, logger *zap.Logger) *Drafter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	return &Drafter{
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
		logger:    logger.Named("drafter"),
	}
}

// GenerateDraft calls the language model and returns its text verbatim.
// Every failure, including timeouts, is reported as ErrGenerationFailed.
func (d *Drafter) GenerateDraft(ctx context.Context, r *model.Rulemaking, n model.Narrative) (string, error) {
	if strings.TrimSpace(n.Name) == "" {
		verr := &ValidationError{}
		verr.Add("user_name", "Name is required")
		return "", verr
	}
	if d.client == nil {
		return "", fmt.Errorf("%w: no language model configured", ErrGenerationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.Complete(ctx, llm.Request{
		Prompt:    BuildPrompt(r, n),
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		d.logger.Error("draft generation failed",
			zap.String("rulemaking_id", r.ID),
			zap.String("model", d.client.Model()),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	d.logger.Info("draft generated",
		zap.String("rulemaking_id", r.ID),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens))

	return resp.Text, nil
}
