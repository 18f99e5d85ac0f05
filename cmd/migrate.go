package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Run database migrations to set up or update the local database schema and list the stored entries.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := localstore.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint:errcheck

		entries, err := db.Entries(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read entries: %w", err)
		}
		for _, entry := range entries {
			fmt.Printf("%-20s %10s  updated %s\n", entry.Name, humanize.Bytes(uint64(len(entry.Value))), humanize.Time(entry.UpdatedAt))
		}

		log.Info("Database migrations completed successfully", "path", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
