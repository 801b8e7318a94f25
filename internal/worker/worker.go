package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	defaultConcurrency = 5
	shutdownTimeout    = 30 * time.Second
)

// asynqLoggerAdapter wraps zap.Logger to implement asynq.Logger
type asynqLoggerAdapter struct {
	logger *zap.SugaredLogger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) { a.logger.Debug(args...) }
func (a *asynqLoggerAdapter) Info(args ...interface{})  { a.logger.Info(args...) }
func (a *asynqLoggerAdapter) Warn(args ...interface{})  { a.logger.Warn(args...) }
func (a *asynqLoggerAdapter) Error(args ...interface{}) { a.logger.Error(args...) }

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(args...)
	panic(fmt.Sprint(args...))
}

// Server consumes analytics tasks from Redis
type Server struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewServer creates a task server; concurrency <= 0 uses the default
func NewServer(redisURL string, concurrency int, r Recomputer, logger *zap.Logger) (*Server, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger = logger.Named("worker")
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     concurrency,
			ShutdownTimeout: shutdownTimeout,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger.Sugar()},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecomputeAnalytics, handleRecompute(logger, r))

	logger.Info("worker configured", zap.Int("concurrency", concurrency))
	return &Server{srv: srv, mux: mux, logger: logger}, nil
}

// Run blocks until SIGINT or SIGTERM
func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

// Start runs the server in the background; pair with Shutdown
func (s *Server) Start() error {
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for active tasks
func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

// makeErrorHandler logs failed tasks and notes when retries are exhausted
func makeErrorHandler(logger *zap.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error("task execution failed",
			zap.String("task_type", task.Type()),
			zap.Error(err),
			zap.Int("retry_count", retried),
			zap.Int("max_retry", maxRetry))

		if retried >= maxRetry {
			logger.Error("task moved to archive (all retries exhausted)",
				zap.String("task_type", task.Type()),
				zap.ByteString("payload", task.Payload()))
		}
	}
}
