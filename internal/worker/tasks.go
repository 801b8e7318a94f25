// Package worker runs analytics recomputation off the request path, through asynq
// when Redis is configured and in-process otherwise.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
)

// Task type constants
const (
	TaskRecomputeAnalytics = "analytics:recompute"
)

const (
	recomputeTimeout   = 2 * time.Minute
	recomputeMaxRetry  = 3
	recomputeRetention = 24 * time.Hour
)

// Recomputer rebuilds one daily analytics snapshot
type Recomputer interface {
	Recompute(ctx context.Context, rulemakingID string, day model.Date) (*model.AnalyticsSnapshot, error)
}

// RecomputePayload identifies the snapshot to rebuild
type RecomputePayload struct {
	RulemakingID string `json:"rulemaking_id"`
	Day          string `json:"day"`
}

// NewRecomputeTask builds an analytics:recompute task
func NewRecomputeTask(rulemakingID string, day model.Date) (*asynq.Task, error) {
	payload, err := json.Marshal(RecomputePayload{RulemakingID: rulemakingID, Day: day.String()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRecomputeAnalytics,
		payload,
		asynq.MaxRetry(recomputeMaxRetry),
		asynq.Timeout(recomputeTimeout),
		asynq.Retention(recomputeRetention),
	), nil
}

// AsynqScheduler enqueues recomputations on Redis
type AsynqScheduler struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewAsynqScheduler connects an asynq client to redisURL
func NewAsynqScheduler(redisURL string, logger *zap.Logger) (*AsynqScheduler, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &AsynqScheduler{
		client: asynq.NewClient(opt),
		logger: logger.Named("scheduler"),
	}, nil
}

// ScheduleRecompute enqueues a recomputation of the day's snapshot
func (s *AsynqScheduler) ScheduleRecompute(ctx context.Context, rulemakingID string, day model.Date) error {
	task, err := NewRecomputeTask(rulemakingID, day)
	if err != nil {
		return fmt.Errorf("failed to build recompute task: %w", err)
	}

	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue recompute for %s: %w", rulemakingID, err)
	}

	s.logger.Debug("recompute enqueued",
		zap.String("task_id", info.ID),
		zap.String("rulemaking_id", rulemakingID),
		zap.String("day", day.String()))
	return nil
}

// Close closes the Redis connection
func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

// handleRecompute processes analytics:recompute tasks
func handleRecompute(logger *zap.Logger, r Recomputer) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload RecomputePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		day, err := model.ParseDate(payload.Day)
		if err != nil || payload.RulemakingID == "" {
			logger.Error("malformed recompute task", zap.ByteString("payload", task.Payload()))
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		snap, err := r.Recompute(ctx, payload.RulemakingID, day)
		if err != nil {
			return fmt.Errorf("failed to recompute analytics: %w", err)
		}

		logger.Info("analytics recomputed",
			zap.String("rulemaking_id", payload.RulemakingID),
			zap.String("day", payload.Day),
			zap.Int64("total_submissions", snap.TotalSubmissions))
		return nil
	}
}
