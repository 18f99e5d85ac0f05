package repository

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// Projects manages projects and their script files.
type Projects struct {
	r *Repositories
}

// List returns every project.
func (p *Projects) List(ctx context.Context) ([]models.Project, error) {
	return list[models.Project](ctx, p.r, localstore.KeyProjects)
}

// Get returns the project with the given id.
func (p *Projects) Get(ctx context.Context, id string) (*models.Project, error) {
	return p.find(ctx, func(project models.Project) bool { return project.ID == id })
}

// GetByLoaderID returns the project served under the given loader id.
func (p *Projects) GetByLoaderID(ctx context.Context, loaderID string) (*models.Project, error) {
	return p.find(ctx, func(project models.Project) bool { return project.LoaderID == loaderID })
}

func (p *Projects) find(ctx context.Context, predicate func(models.Project) bool) (*models.Project, error) {
	projects, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	project, ok := lo.Find(projects, predicate)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &project, nil
}

// Add creates a project. Id and loader id are generated when absent.
func (p *Projects) Add(ctx context.Context, project models.Project) (*models.Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return nil, models.NewValidationError("name", "project name is required")
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.LoaderID == "" {
		project.LoaderID = newSecureID()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = p.r.now()
	}
	if project.Files == nil {
		project.Files = []models.File{}
	}

	_, err := update(ctx, p.r, localstore.KeyProjects, func(projects []models.Project) ([]models.Project, error) {
		if lo.ContainsBy(projects, func(existing models.Project) bool { return existing.ID == project.ID }) {
			return nil, models.NewValidationError("id", "project id already in use")
		}
		if lo.ContainsBy(projects, func(existing models.Project) bool { return existing.LoaderID == project.LoaderID }) {
			return nil, models.NewValidationError("loaderId", "loader id already in use")
		}
		return append(projects, project), nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// modify applies fn to the project with the given id. When filesSaved is set the
// auto-save file counter is incremented once the projects are stored.
func (p *Projects) modify(ctx context.Context, id string, filesSaved bool, fn func(project *models.Project) error) (*models.Project, error) {
	var result models.Project
	var after func()
	if filesSaved {
		after = func() {
			if err := p.r.AutoSave.recordFileSaved(ctx); err != nil {
				log.Warn("Failed to count saved file", "project", id, "error", err)
			}
		}
	}
	_, err := updateThen(ctx, p.r, localstore.KeyProjects, func(projects []models.Project) ([]models.Project, error) {
		_, idx, ok := lo.FindIndexOf(projects, func(project models.Project) bool { return project.ID == id })
		if !ok {
			return nil, models.ErrNotFound
		}
		if err := fn(&projects[idx]); err != nil {
			return nil, err
		}
		result = projects[idx]
		return projects, nil
	}, after)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Rename changes the display name of a project.
func (p *Projects) Rename(ctx context.Context, id, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "project name is required")
	}
	return p.modify(ctx, id, false, func(project *models.Project) error {
		project.Name = name
		return nil
	})
}

// UpdateSettings applies the non-nil fields of settings.
func (p *Projects) UpdateSettings(ctx context.Context, id string, settings models.ProjectSettings) (*models.Project, error) {
	if settings.Cooldown != nil && *settings.Cooldown < 0 {
		return nil, models.NewValidationError("cooldown", "must not be negative")
	}
	return p.modify(ctx, id, false, func(project *models.Project) error {
		if settings.Webhooks != nil {
			project.Webhooks = lo.ToPtr(*settings.Webhooks)
		}
		if settings.HWIDResetAllowed != nil {
			project.HWIDResetAllowed = lo.ToPtr(*settings.HWIDResetAllowed)
		}
		if settings.AutoDeleteExpired != nil {
			project.AutoDeleteExpired = lo.ToPtr(*settings.AutoDeleteExpired)
		}
		if settings.CloneAllowed != nil {
			project.CloneAllowed = lo.ToPtr(*settings.CloneAllowed)
		}
		if settings.Cooldown != nil {
			project.Cooldown = lo.ToPtr(*settings.Cooldown)
		}
		return nil
	})
}

// Delete removes a project.
func (p *Projects) Delete(ctx context.Context, id string) error {
	_, err := update(ctx, p.r, localstore.KeyProjects, func(projects []models.Project) ([]models.Project, error) {
		filtered := lo.Reject(projects, func(project models.Project, _ int) bool { return project.ID == id })
		if len(filtered) == len(projects) {
			return nil, models.ErrNotFound
		}
		return filtered, nil
	})
	return err
}

func validateFile(file models.File) (models.File, error) {
	file.Name = strings.TrimSpace(file.Name)
	if file.Name == "" {
		return file, models.NewValidationError("name", "file name is required")
	}
	if strings.ContainsAny(file.Name, `/\`) {
		return file, models.NewValidationError("name", "file name must not contain path separators")
	}
	return file, nil
}

// AddFile appends a file to a project.
func (p *Projects) AddFile(ctx context.Context, id string, file models.File) (*models.Project, error) {
	file, err := validateFile(file)
	if err != nil {
		return nil, err
	}
	return p.modify(ctx, id, true, func(project *models.Project) error {
		project.Files = append(project.Files, file)
		return nil
	})
}

// EditFile replaces the file at index.
func (p *Projects) EditFile(ctx context.Context, id string, index int, file models.File) (*models.Project, error) {
	file, err := validateFile(file)
	if err != nil {
		return nil, err
	}
	return p.modify(ctx, id, true, func(project *models.Project) error {
		if index < 0 || index >= len(project.Files) {
			return models.ErrNotFound
		}
		project.Files[index] = file
		return nil
	})
}

// DeleteFile removes the file at index.
func (p *Projects) DeleteFile(ctx context.Context, id string, index int) (*models.Project, error) {
	return p.modify(ctx, id, false, func(project *models.Project) error {
		if index < 0 || index >= len(project.Files) {
			return models.ErrNotFound
		}
		project.Files = append(project.Files[:index], project.Files[index+1:]...)
		return nil
	})
}

// Replace overwrites every project without triggering change hooks.
func (p *Projects) Replace(ctx context.Context, projects []models.Project) error {
	return replace(ctx, p.r, localstore.KeyProjects, projects)
}
