package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jjenkins/publiccomment/internal/service"
	"github.com/jjenkins/publiccomment/internal/worker"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the analytics task worker",
	Long: `Consume analytics:recompute tasks from Redis and rebuild the daily
per-rulemaking snapshots. Requires REDIS_URL. Stops on SIGINT or SIGTERM.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntVarP(&workerConcurrency, "concurrency", "c", 5, "Number of tasks processed concurrently")
}

func runWorker(cmd *cobra.Command, args []string) error {
	if cfg.Redis.URL == "" {
		return errors.New("REDIS_URL is required to run the worker")
	}

	db, err := connectDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st := newStores(db)
	analytics := service.NewAnalyticsService(st.submissions, st.analytics, logger)

	srv, err := worker.NewServer(cfg.Redis.URL, workerConcurrency, analytics, logger)
	if err != nil {
		return err
	}
	return srv.Run()
}
