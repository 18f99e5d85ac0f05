package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"gopkg.in/yaml.v3"
)

// Version is written into every export.
const Version = "1.0"

// Format is the encoding of an archive.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", models.NewValidationError("format", fmt.Sprintf("unknown archive format %q", s))
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Archive is a full export of the local data.
type Archive struct {
	Version       string               `json:"version" yaml:"version"`
	ExportDate    time.Time            `json:"exportDate" yaml:"exportDate"`
	Projects      []models.Project     `json:"projects" yaml:"projects"`
	Users         []models.User        `json:"users" yaml:"users"`
	Backups       []models.Backup      `json:"backups" yaml:"backups"`
	AutoSaveState models.AutoSaveState `json:"autoSaveState" yaml:"autoSaveState"`
}

// Export collects the local data into an Archive.
func Export(ctx context.Context, repos *repository.Repositories) (*Archive, error) {
	projects, err := repos.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := repos.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	backups, err := repos.Backups.List(ctx)
	if err != nil {
		return nil, err
	}
	state, err := repos.AutoSave.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Archive{
		Version:       Version,
		ExportDate:    time.Now().UTC(),
		Projects:      projects,
		Users:         users,
		Backups:       backups,
		AutoSaveState: state,
	}, nil
}

// Encode writes the archive to w.
func (a *Archive) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to encode archive: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to encode archive: %w", err)
		}
		return nil
	}
}

// Decode reads an archive from r.
func Decode(r io.Reader, format Format) (*Archive, error) {
	var a Archive
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&a)
	default:
		err = json.NewDecoder(r).Decode(&a)
	}
	if err != nil {
		return nil, models.NewValidationError("archive", fmt.Sprintf("failed to decode archive: %v", err))
	}
	if a.Version == "" {
		return nil, models.NewValidationError("version", "not a loaderdesk archive")
	}
	return &a, nil
}

// Import replaces the local projects, users, backups and auto-save state with
// the content of the archive and triggers a sync.
func Import(ctx context.Context, repos *repository.Repositories, a *Archive) error {
	if err := repos.Projects.Replace(ctx, a.Projects); err != nil {
		return err
	}
	if err := repos.Users.Replace(ctx, a.Users); err != nil {
		return err
	}
	if err := repos.Backups.Replace(ctx, a.Backups); err != nil {
		return err
	}
	if err := repos.AutoSave.Replace(ctx, a.AutoSaveState); err != nil {
		return err
	}
	repos.Changed(ctx)
	return nil
}
