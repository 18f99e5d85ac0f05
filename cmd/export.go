package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/archive"
	"github.com/spf13/cobra"
)

var exportCmdFlags struct {
	Format string
	Output string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every collection to a json or yaml archive",
	Example: `loaderdesk export > backup.json
loaderdesk export --output backup.yaml`,
	Run: export,
}

func init() {
	exportCmd.Flags().StringVarP(&exportCmdFlags.Format, "format", "f", "", "Archive format (json, yaml), defaults to the output file extension")
	exportCmd.Flags().StringVarP(&exportCmdFlags.Output, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func resolveFormat(flag, path string) archive.Format {
	if flag == "" && path != "" {
		return archive.FormatFromPath(path)
	}
	format, err := archive.ParseFormat(flag)
	if err != nil {
		log.Fatalf("invalid format: %v", err)
	}
	return format
}

func export(cmd *cobra.Command, _ []string) {
	format := resolveFormat(exportCmdFlags.Format, exportCmdFlags.Output)

	ctx := cmd.Context()
	engine := openEngine(ctx)
	defer engine.Close() //nolint:errcheck

	a, err := archive.Export(ctx, engine.Repositories())
	if err != nil {
		log.Fatalf("failed to export data: %v", err)
	}

	var w io.Writer = os.Stdout
	if exportCmdFlags.Output != "" {
		f, err := os.Create(exportCmdFlags.Output)
		if err != nil {
			log.Fatalf("failed to create output file: %v", err)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	if err := a.Encode(w, format); err != nil {
		log.Fatalf("failed to write archive: %v", err)
	}
	log.Debug("Exported data", "projects", len(a.Projects), "users", len(a.Users), "backups", len(a.Backups))
}
