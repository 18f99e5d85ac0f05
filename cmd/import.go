package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/archive"
	"github.com/spf13/cobra"
)

var importCmdFlags struct {
	Format string
	Yes    bool
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace every collection with an archive",
	Long:  `Import an archive created by export. All projects, users, backups and the auto-save state are replaced.`,
	Args:  cobra.ExactArgs(1),
	Run:   importArchive,
}

func init() {
	importCmd.Flags().StringVarP(&importCmdFlags.Format, "format", "f", "", "Archive format (json, yaml), defaults to the file extension")
	importCmd.Flags().BoolVarP(&importCmdFlags.Yes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(importCmd)
}

func importArchive(cmd *cobra.Command, args []string) {
	path := args[0]
	format := resolveFormat(importCmdFlags.Format, path)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open archive: %v", err)
	}
	defer f.Close() //nolint:errcheck

	a, err := archive.Decode(f, format)
	if err != nil {
		log.Fatalf("failed to read archive: %v", err)
	}

	if !importCmdFlags.Yes && !confirm("Importing replaces all projects, users and backups. Continue?") {
		log.Info("Import aborted")
		return
	}

	ctx := cmd.Context()
	engine := openEngine(ctx)
	defer engine.Close() //nolint:errcheck

	if err := archive.Import(ctx, engine.Repositories(), a); err != nil {
		log.Fatalf("failed to import archive: %v", err)
	}
	log.Info("Import completed", "projects", len(a.Projects), "users", len(a.Users), "backups", len(a.Backups), "exported", a.ExportDate)
}
