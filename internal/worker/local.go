package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
)

// ErrSchedulerClosed is returned once Shutdown has begun
var ErrSchedulerClosed = errors.New("scheduler is shut down")

// LocalScheduler runs recomputations in background goroutines of the API process.
// It is used when no Redis URL is configured.
type LocalScheduler struct {
	r       Recomputer
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewLocalScheduler creates a LocalScheduler; each run is bounded by timeout
func NewLocalScheduler(r Recomputer, timeout time.Duration, logger *zap.Logger) *LocalScheduler {
	if timeout <= 0 {
		timeout = recomputeTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalScheduler{
		r:       r,
		timeout: timeout,
		logger:  logger.Named("local-scheduler"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ScheduleRecompute starts the recomputation and returns immediately.
// The request context is not used: the run outlives the request.
func (s *LocalScheduler) ScheduleRecompute(_ context.Context, rulemakingID string, day model.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		if _, err := s.r.Recompute(ctx, rulemakingID, day); err != nil {
			s.logger.Error("analytics recompute failed",
				zap.String("rulemaking_id", rulemakingID),
				zap.String("day", day.String()),
				zap.Error(err))
		}
	}()
	return nil
}

// Shutdown refuses new work and waits for running recomputations. When ctx ends
// first, running work is cancelled and ctx.Err() is returned after it exits.
func (s *LocalScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
