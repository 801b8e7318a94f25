package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/store/migrations"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|up-one|down|status|version|reset]",
	Short:     "Apply or inspect database migrations",
	Long:      `Run goose against the embedded SQL migrations. Defaults to up.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "up-one", "down", "status", "version", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		db, err := connectDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Exec(db, command); err != nil {
			return err
		}
		logger.Info("migrate finished", zap.String("command", command))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
