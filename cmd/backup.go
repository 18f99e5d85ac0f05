package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var backupCmdFlags struct {
	Yes bool
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a manual backup of projects and users",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		engine := openEngine(ctx)
		defer engine.Close() //nolint:errcheck

		backup, err := engine.Repositories().TriggerManualBackup(ctx)
		if err != nil {
			log.Fatalf("failed to create backup: %v", err)
		}
		log.Info("Backup created", "id", backup.ID, "projects", len(backup.Projects), "users", len(backup.Users))
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		engine := openEngine(ctx)
		defer engine.Close() //nolint:errcheck

		backups, err := engine.Repositories().Backups.List(ctx)
		if err != nil {
			log.Fatalf("failed to list backups: %v", err)
		}
		if len(backups) == 0 {
			fmt.Println("No backups yet")
			return
		}
		for _, b := range backups {
			fmt.Printf("%s  %-16s  %d projects  %d users\n", b.ID, ago(&b.Timestamp), len(b.Projects), len(b.Users))
		}
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace projects and users with a backup",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !backupCmdFlags.Yes && !confirm(fmt.Sprintf("Restore backup %s? Current projects and users will be replaced.", args[0])) {
			log.Info("Restore aborted")
			return
		}

		ctx := cmd.Context()
		engine := openEngine(ctx)
		defer engine.Close() //nolint:errcheck

		backup, err := engine.Repositories().RestoreBackup(ctx, args[0])
		if err != nil {
			log.Fatalf("failed to restore backup: %v", err)
		}
		log.Info("Backup restored", "id", backup.ID, "timestamp", backup.Timestamp)
	},
}

func init() {
	backupRestoreCmd.Flags().BoolVarP(&backupCmdFlags.Yes, "yes", "y", false, "Skip the confirmation prompt")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
