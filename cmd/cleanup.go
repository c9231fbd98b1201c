package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired and stale one-time codes",
	Long: `Deletes every expired code and every used code older than the retention
window (OTP_RETENTION_HOURS). Meant to be run from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, service, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		resp, err := service.Auth.CleanupCodes(cmd.Context())
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}

		logger.Info("Cleanup finished", zap.Int64("deleted", resp.Deleted))
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d codes\n", resp.Deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
