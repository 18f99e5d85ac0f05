package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show counters and sync state",
	Run:   status,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func status(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	engine := openEngine(ctx)
	defer engine.Close() //nolint:errcheck

	views, err := engine.Coordinator().Views(ctx)
	if err != nil {
		log.Fatalf("failed to compute views: %v", err)
	}
	autoSave, err := engine.Repositories().AutoSave.Get(ctx)
	if err != nil {
		log.Fatalf("failed to load auto-save state: %v", err)
	}
	entries, err := engine.LocalEntries(ctx)
	if err != nil {
		log.Fatalf("failed to read local database: %v", err)
	}
	var size uint64
	for _, entry := range entries {
		size += uint64(len(entry.Value))
	}

	fmt.Printf("Keys:        %s (%d active, %d banned, %d expired)\n",
		humanize.Comma(int64(views.TotalUsers)), views.ActiveUsers, views.BannedUsers, views.ExpiredUsers)
	fmt.Printf("Projects:    %s with %s files\n", humanize.Comma(int64(views.Projects)), humanize.Comma(int64(views.Files)))
	fmt.Printf("Backups:     %d\n", views.Backups)
	fmt.Printf("Auto-save:   %t, %d files saved, last backup %s\n", autoSave.Enabled, autoSave.FilesSavedCount, ago(autoSave.LastBackupTime))
	fmt.Printf("Cloud sync:  %t, last sync %s\n", views.CloudSyncEnabled, ago(views.LastSync))
	fmt.Printf("Local data:  %d entries, %s\n", len(entries), humanize.Bytes(size))
}
