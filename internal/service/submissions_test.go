package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/service/servicetest"
)

type lifecycle struct {
	rulemakings *servicetest.Rulemakings
	submissions *servicetest.Submissions
	drafter     *servicetest.Drafter
	verifier    *servicetest.Verifier
	scheduler   *servicetest.Scheduler
	svc         *service.SubmissionService
	active      *model.Rulemaking
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	active := &model.Rulemaking{
		Agency:          "CFPB",
		Title:           "Supervisory Designation",
		DocketID:        "CFPB-2025-0018",
		CommentDeadline: model.NewDate(time.Now().AddDate(0, 1, 0)),
		Status:          model.RulemakingActive,
	}
	l := &lifecycle{
		rulemakings: servicetest.NewRulemakings(active),
		drafter:     &servicetest.Drafter{Text: "Dear CFPB, I oppose this rule."},
		verifier:    &servicetest.Verifier{},
		scheduler:   &servicetest.Scheduler{},
		active:      active,
	}
	l.submissions = servicetest.NewSubmissions(l.rulemakings)
	l.svc = service.NewSubmissionService(l.rulemakings, l.submissions, l.drafter, l.verifier, l.scheduler, zap.NewNop())
	return l
}

func (l *lifecycle) create(t *testing.T) *service.CreateResult {
	t.Helper()
	res, err := l.svc.Create(context.Background(), service.CreateRequest{
		RulemakingID:   l.active.ID,
		Narrative:      model.Narrative{Name: "Jane Doe", State: "OH"},
		RecaptchaToken: "token",
		IPAddress:      "203.0.113.9",
		UserAgent:      "test-agent",
	})
	require.NoError(t, err)
	return res
}

func TestCreateAndFinalize(t *testing.T) {
	l := newLifecycle(t)
	ctx := context.Background()

	res := l.create(t)
	assert.NotEmpty(t, res.SubmissionID)
	assert.Equal(t, "Dear CFPB, I oppose this rule.", res.GeneratedComment)
	assert.Equal(t, "CFPB-2025-0018", res.Rulemaking.DocketID)

	draft, err := l.svc.GetForAdmin(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionDraft, draft.Status)
	assert.Nil(t, draft.SubmittedAt)
	assert.Equal(t, "203.0.113.9", draft.IPAddress)
	assert.False(t, draft.RecaptchaVerified, "skipped verification is not recorded as verified")

	final := "Edited letter text"
	_, err = l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{FinalComment: &final})
	require.NoError(t, err)

	got, err := l.svc.Get(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, got.Status)
	assert.Equal(t, "Edited letter text", got.FinalComment)
	require.NotNil(t, got.SubmittedAt)
	assert.Empty(t, got.IPAddress)
	assert.Empty(t, got.UserAgent)

	calls := l.scheduler.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, l.active.ID, calls[0].RulemakingID)
	assert.Equal(t, model.NewDate(draft.CreatedAt), calls[0].Day)
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		l := newLifecycle(t)
		_, err := l.svc.Create(ctx, service.CreateRequest{Narrative: model.Narrative{Name: "  "}})

		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		fields := []string{}
		for _, d := range verr.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"rulemaking_id", "user_name", "recaptcha_token"}, fields)
	})

	t.Run("unknown rulemaking", func(t *testing.T) {
		l := newLifecycle(t)
		_, err := l.svc.Create(ctx, service.CreateRequest{
			RulemakingID:   "missing",
			Narrative:      model.Narrative{Name: "Jane"},
			RecaptchaToken: "t",
		})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("closed rulemaking", func(t *testing.T) {
		l := newLifecycle(t)
		closed := &model.Rulemaking{
			Agency: "A", Title: "T", DocketID: "D",
			CommentDeadline: model.NewDate(time.Now().AddDate(0, 1, 0)),
			Status:          model.RulemakingClosed,
		}
		require.NoError(t, l.rulemakings.Create(ctx, closed))

		_, err := l.svc.Create(ctx, service.CreateRequest{
			RulemakingID: closed.ID, Narrative: model.Narrative{Name: "Jane"}, RecaptchaToken: "t",
		})
		var derr *service.DomainError
		assert.ErrorAs(t, err, &derr)
		assert.Empty(t, l.drafter.Calls)
	})

	t.Run("past deadline", func(t *testing.T) {
		l := newLifecycle(t)
		expired := &model.Rulemaking{
			Agency: "A", Title: "T", DocketID: "D",
			CommentDeadline: model.NewDate(time.Now().AddDate(0, 0, -2)),
			Status:          model.RulemakingActive,
		}
		require.NoError(t, l.rulemakings.Create(ctx, expired))

		_, err := l.svc.Create(ctx, service.CreateRequest{
			RulemakingID: expired.ID, Narrative: model.Narrative{Name: "Jane"}, RecaptchaToken: "t",
		})
		var derr *service.DomainError
		assert.ErrorAs(t, err, &derr)
	})

	t.Run("verification failure", func(t *testing.T) {
		l := newLifecycle(t)
		l.verifier.Err = service.ErrVerificationFailed

		_, err := l.svc.Create(ctx, service.CreateRequest{
			RulemakingID: l.active.ID, Narrative: model.Narrative{Name: "Jane"}, RecaptchaToken: "bad",
		})
		assert.ErrorIs(t, err, service.ErrVerificationFailed)
		assert.Zero(t, l.submissions.Len())
	})

	t.Run("generation failure persists nothing", func(t *testing.T) {
		l := newLifecycle(t)
		l.drafter.Err = service.ErrGenerationFailed

		_, err := l.svc.Create(ctx, service.CreateRequest{
			RulemakingID: l.active.ID, Narrative: model.Narrative{Name: "Jane"}, RecaptchaToken: "t",
		})
		assert.ErrorIs(t, err, service.ErrGenerationFailed)
		assert.Zero(t, l.submissions.Len())
	})
}

func TestCreateRecordsVerification(t *testing.T) {
	l := newLifecycle(t)
	l.verifier.Verified = true

	res := l.create(t)
	sub, err := l.svc.GetForAdmin(context.Background(), res.SubmissionID)
	require.NoError(t, err)
	assert.True(t, sub.RecaptchaVerified)
}

func TestFinalizeVariants(t *testing.T) {
	ctx := context.Background()

	t.Run("omitted text falls back to draft", func(t *testing.T) {
		l := newLifecycle(t)
		res := l.create(t)

		sub, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{})
		require.NoError(t, err)
		assert.Equal(t, res.GeneratedComment, sub.FinalComment)
		assert.Equal(t, model.SubmissionSubmitted, sub.Status)
	})

	t.Run("empty text is rejected without change", func(t *testing.T) {
		l := newLifecycle(t)
		res := l.create(t)

		empty := "   "
		_, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{FinalComment: &empty})
		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)

		sub, err := l.svc.GetForAdmin(ctx, res.SubmissionID)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionDraft, sub.Status)
		assert.Empty(t, sub.FinalComment)
		assert.Empty(t, l.scheduler.Calls())
	})

	t.Run("non-submitted status clears submitted_at", func(t *testing.T) {
		l := newLifecycle(t)
		res := l.create(t)
		text := "v1"

		_, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{FinalComment: &text})
		require.NoError(t, err)
		sub, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{FinalComment: &text, Status: model.SubmissionFailed})
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionFailed, sub.Status)
		assert.Nil(t, sub.SubmittedAt)
	})

	t.Run("unknown status", func(t *testing.T) {
		l := newLifecycle(t)
		res := l.create(t)
		_, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{Status: "archived"})
		var verr *service.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing submission", func(t *testing.T) {
		l := newLifecycle(t)
		_, err := l.svc.Finalize(ctx, "nope", service.FinalizeRequest{})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("scheduler failure does not fail finalize", func(t *testing.T) {
		l := newLifecycle(t)
		l.scheduler.Err = errors.New("queue down")
		res := l.create(t)

		sub, err := l.svc.Finalize(ctx, res.SubmissionID, service.FinalizeRequest{FederalRegisterSubmissionID: "1k2-abc"})
		require.NoError(t, err)
		assert.Equal(t, "1k2-abc", sub.FederalRegisterSubmissionID)
	})
}

func TestListSanitizes(t *testing.T) {
	l := newLifecycle(t)
	l.create(t)
	l.create(t)

	subs, err := l.svc.List(context.Background(), model.SubmissionFilter{RulemakingID: l.active.ID})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	for _, s := range subs {
		assert.Empty(t, s.IPAddress)
		assert.Empty(t, s.UserAgent)
	}

	rows, err := l.svc.Export(context.Background(), model.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].IPAddress)
	assert.Equal(t, "CFPB", rows[0].Agency)

	stats, err := l.svc.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSubmissions)
	assert.Equal(t, int64(1), stats.UniqueUsers)
	assert.Equal(t, int64(2), stats.DraftCount)
}
