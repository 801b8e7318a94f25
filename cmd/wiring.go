package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/llm"
	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/store"
	"github.com/jjenkins/publiccomment/internal/worker"
)

// stores groups the Postgres-backed repositories
type stores struct {
	rulemakings *store.RulemakingStore
	submissions *store.SubmissionStore
	analytics   *store.AnalyticsStore
	admins      *store.AdminStore
}

func connectDB() (*sql.DB, error) {
	logger.Info("connecting to database")
	db, err := store.NewDB(cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newStores(db *sql.DB) stores {
	w := store.NewWarehouse(db, logger)
	return stores{
		rulemakings: store.NewRulemakingStore(w),
		submissions: store.NewSubmissionStore(w),
		analytics:   store.NewAnalyticsStore(w),
		admins:      store.NewAdminStore(w),
	}
}

// newDrafter builds the draft generator. Without an API key every generation
// fails with service.ErrGenerationFailed; config validation rejects that in production.
func newDrafter() (*service.Drafter, error) {
	var client llm.Client
	if cfg.LLM.APIKey != "" {
		var err error
		client, err = llm.New(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		logger.Info("LLM client ready",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", client.Model()))
	}
	return service.NewDrafter(client, cfg.LLM.Timeout, cfg.LLM.MaxTokens, logger), nil
}

// newScheduler picks the asynq queue when Redis is configured and the in-process
// runner otherwise. The returned function releases it.
func newScheduler(analytics *service.AnalyticsService) (service.RecomputeScheduler, func(context.Context) error, error) {
	if cfg.Redis.URL == "" {
		logger.Info("REDIS_URL not set, recomputing analytics in-process")
		local := worker.NewLocalScheduler(analytics, 0, logger)
		return local, local.Shutdown, nil
	}

	queue, err := worker.NewAsynqScheduler(cfg.Redis.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	return queue, func(context.Context) error { return queue.Close() }, nil
}

// newRedisClient returns nil when Redis is not configured
func newRedisClient() (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
