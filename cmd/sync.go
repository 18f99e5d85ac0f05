package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local data to the remote store and mirror files",
	Long:  `Run a full synchronization: push the local collections to the remote document store, write the lookup documents and mirror the script files.`,
	Run:   runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	engine := openEngine(ctx)
	defer engine.Close() //nolint:errcheck

	report, err := engine.Coordinator().SyncNow(ctx)

	fmt.Printf("Cloud sync: %t\n", report.CloudSyncEnabled)
	fmt.Printf("Pushed:     %t\n", report.Pushed)
	fmt.Printf("Last sync:  %s\n", ago(report.LastSync))
	for _, mirrorErr := range report.MirrorErrors {
		fmt.Printf("  mirror error: %s\n", mirrorErr)
	}
	for _, task := range report.FailedTasks {
		fmt.Printf("  failed task: %s %s %s: %s\n", task.Target, task.Kind, task.Path, task.Error)
	}

	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}
	log.Info("Synchronization completed")
}
