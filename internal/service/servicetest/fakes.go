package servicetest

import (
	"context"
	"sync"

	"github.com/jjenkins/publiccomment/internal/model"
)

// Drafter returns a fixed draft or error and records the narratives it saw
type Drafter struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Calls []model.Narrative
}

func (d *Drafter) GenerateDraft(_ context.Context, _ *model.Rulemaking, n model.Narrative) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, n)
	if d.Err != nil {
		return "", d.Err
	}
	return d.Text, nil
}

// Verifier returns fixed verification results
type Verifier struct {
	Verified bool
	Err      error
}

func (v *Verifier) Verify(_ context.Context, _, _ string) (bool, error) {
	return v.Verified, v.Err
}

// RecomputeCall is one recorded ScheduleRecompute invocation
type RecomputeCall struct {
	RulemakingID string
	Day          model.Date
}

// Scheduler records scheduled recomputations
type Scheduler struct {
	mu    sync.Mutex
	Err   error
	calls []RecomputeCall
}

func (s *Scheduler) ScheduleRecompute(_ context.Context, rulemakingID string, day model.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, RecomputeCall{RulemakingID: rulemakingID, Day: day})
	return s.Err
}

// Calls returns the recorded invocations
func (s *Scheduler) Calls() []RecomputeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecomputeCall(nil), s.calls...)
}
