package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/config"
	"github.com/jjenkins/publiccomment/internal/logging"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "publiccomment",
	Short: "Public comment letter assistant",
	Long: `Helps citizens draft personalized comment letters on federal rulemakings
and gives administrators the submissions, exports and analytics behind them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logging.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validateConfig fails on missing required settings and logs the optional ones
func validateConfig() error {
	warnings, err := cfg.Validate()
	for _, name := range warnings {
		logger.Warn("optional environment variable not set", zap.String("name", name))
	}
	return err
}
