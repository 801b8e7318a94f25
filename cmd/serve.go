package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/auth"
	"github.com/jjenkins/publiccomment/internal/handlers"
	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/worker"
)

const shutdownGrace = 15 * time.Second

var (
	port        string
	embedWorker bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the public comment API server",
	Long: `Start the HTTP API that serves rulemakings, drafts comment letters and
exposes the admin surface.

With --worker the analytics task worker runs inside the same process; this
requires REDIS_URL. Without REDIS_URL analytics are recomputed in-process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to run the server on (defaults to PORT)")
	serveCmd.Flags().BoolVar(&embedWorker, "worker", false, "Also run the asynq analytics worker")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := validateConfig(); err != nil {
		return err
	}
	if port == "" {
		port = cfg.Port
	}
	if embedWorker && cfg.Redis.URL == "" {
		return errors.New("--worker requires REDIS_URL")
	}

	db, err := connectDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st := newStores(db)

	drafter, err := newDrafter()
	if err != nil {
		return err
	}
	verifier := service.NewRecaptchaClient(cfg.Recaptcha.SecretKey, cfg.Recaptcha.VerifyURL, cfg.IsProduction(), logger)

	analytics := service.NewAnalyticsService(st.submissions, st.analytics, logger)
	scheduler, closeScheduler, err := newScheduler(analytics)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.TokenSecret(), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to configure admin tokens: %w", err)
	}

	rdb, err := newRedisClient()
	if err != nil {
		return err
	}
	deps := handlers.Deps{
		Rulemakings: service.NewRulemakingService(st.rulemakings, logger),
		Submissions: service.NewSubmissionService(st.rulemakings, st.submissions, drafter, verifier, scheduler, logger),
		Analytics:   analytics,
		Admins:      service.NewAdminService(st.admins, 0, logger),
		Tokens:      tokens,
		DB:          db,
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Redis = rdb
	}

	var srv *worker.Server
	if embedWorker {
		srv, err = worker.NewServer(cfg.Redis.URL, 0, analytics, logger)
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		logger.Info("embedded worker started")
	}

	app := handlers.NewApp(handlers.Options{
		Env:             cfg.Env,
		ClientURL:       cfg.ClientURL,
		RateLimitMax:    cfg.RateLimit.Max,
		RateLimitWindow: cfg.RateLimit.Window,
		Logger:          logger,
	}, deps)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", port),
			zap.String("environment", cfg.Env))
		listenErr <- app.Listen(":" + port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-listenErr:
		err = fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if serr := app.ShutdownWithTimeout(shutdownGrace); serr != nil {
		logger.Warn("server shutdown incomplete", zap.Error(serr))
	}
	if srv != nil {
		srv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if serr := closeScheduler(ctx); serr != nil {
		logger.Warn("analytics scheduler shutdown incomplete", zap.Error(serr))
	}

	return err
}
