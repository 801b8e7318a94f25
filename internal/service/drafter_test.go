package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/llm"
	"github.com/jjenkins/publiccomment/internal/model"
)

type stubLLM struct {
	text  string
	err   error
	delay time.Duration
	got   llm.Request
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.got = req
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.text}, nil
}

func (s *stubLLM) Model() string { return "stub" }

func TestGenerateDraft(t *testing.T) {
	r := &model.Rulemaking{ID: "r1", Agency: "CFPB", Title: "Rule", DocketID: "D-1"}
	ctx := context.Background()

	t.Run("returns text verbatim", func(t *testing.T) {
		stub := &stubLLM{text: "Dear Director,\n\nI object."}
		d := NewDrafter(stub, time.Second, 0, zap.NewNop())

		text, err := d.GenerateDraft(ctx, r, model.Narrative{Name: "Jane"})
		require.NoError(t, err)
		assert.Equal(t, "Dear Director,\n\nI object.", text)
		assert.Equal(t, 1500, stub.got.MaxTokens)
		assert.Equal(t, BuildPrompt(r, model.Narrative{Name: "Jane"}), stub.got.Prompt)
	})

	t.Run("name required", func(t *testing.T) {
		d := NewDrafter(&stubLLM{text: "x"}, time.Second, 100, zap.NewNop())
		_, err := d.GenerateDraft(ctx, r, model.Narrative{})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("provider error", func(t *testing.T) {
		d := NewDrafter(&stubLLM{err: errors.New("503")}, time.Second, 100, zap.NewNop())
		_, err := d.GenerateDraft(ctx, r, model.Narrative{Name: "Jane"})
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		d := NewDrafter(&stubLLM{text: "late", delay: time.Second}, 20*time.Millisecond, 100, zap.NewNop())
		_, err := d.GenerateDraft(ctx, r, model.Narrative{Name: "Jane"})
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("no client", func(t *testing.T) {
		d := NewDrafter(nil, time.Second, 100, zap.NewNop())
		_, err := d.GenerateDraft(ctx, r, model.Narrative{Name: "Jane"})
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})
}
