package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// MaxBackups is the number of backups retained. Older ones are dropped on capture.
const MaxBackups = 50

// Backups manages backup snapshots. Backups are stored newest first.
type Backups struct {
	r *Repositories
}

// List returns every backup, newest first.
func (b *Backups) List(ctx context.Context) ([]models.Backup, error) {
	return list[models.Backup](ctx, b.r, localstore.KeyBackups)
}

// Get returns the backup with the given id.
func (b *Backups) Get(ctx context.Context, id string) (*models.Backup, error) {
	backups, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	backup, ok := lo.Find(backups, func(backup models.Backup) bool { return backup.ID == id })
	if !ok {
		return nil, models.ErrNotFound
	}
	return &backup, nil
}

// Delete removes a backup.
func (b *Backups) Delete(ctx context.Context, id string) error {
	_, err := update(ctx, b.r, localstore.KeyBackups, func(backups []models.Backup) ([]models.Backup, error) {
		filtered := lo.Reject(backups, func(backup models.Backup, _ int) bool { return backup.ID == id })
		if len(filtered) == len(backups) {
			return nil, models.ErrNotFound
		}
		return filtered, nil
	})
	return err
}

// Replace overwrites every backup without triggering change hooks.
func (b *Backups) Replace(ctx context.Context, backups []models.Backup) error {
	return replace(ctx, b.r, localstore.KeyBackups, backups)
}

// TriggerManualBackup captures projects, users and the auto-save state into a new backup.
func (r *Repositories) TriggerManualBackup(ctx context.Context) (*models.Backup, error) {
	r.mu.Lock()
	backup, err := r.captureBackup(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.changed(ctx)
	return backup, nil
}

func (r *Repositories) captureBackup(ctx context.Context) (*models.Backup, error) {
	projects, err := localstore.Load[[]models.Project](ctx, r.store, localstore.KeyProjects)
	if err != nil {
		return nil, err
	}
	users, err := localstore.Load[[]models.User](ctx, r.store, localstore.KeyUsers)
	if err != nil {
		return nil, err
	}
	state, err := localstore.Load[models.AutoSaveState](ctx, r.store, localstore.KeyAutoSaveState)
	if err != nil {
		return nil, err
	}
	backups, err := localstore.Load[[]models.Backup](ctx, r.store, localstore.KeyBackups)
	if err != nil {
		return nil, err
	}

	now := r.now()
	state.LastBackupTime = lo.ToPtr(now)
	backup := models.Backup{
		ID:            uuid.NewString(),
		Timestamp:     now,
		Projects:      lo.Ternary(projects == nil, []models.Project{}, projects),
		Users:         lo.Ternary(users == nil, []models.User{}, users),
		AutoSaveState: state,
	}

	backups = append([]models.Backup{backup}, backups...)
	if len(backups) > MaxBackups {
		backups = backups[:MaxBackups]
	}
	if err := localstore.Save(ctx, r.store, localstore.KeyBackups, backups); err != nil {
		return nil, err
	}
	if err := localstore.Save(ctx, r.store, localstore.KeyAutoSaveState, state); err != nil {
		return nil, err
	}
	return &backup, nil
}

// RestoreBackup replaces projects and users with the content of a backup.
func (r *Repositories) RestoreBackup(ctx context.Context, id string) (*models.Backup, error) {
	r.mu.Lock()
	backups, err := localstore.Load[[]models.Backup](ctx, r.store, localstore.KeyBackups)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	backup, ok := lo.Find(backups, func(backup models.Backup) bool { return backup.ID == id })
	if !ok {
		r.mu.Unlock()
		return nil, models.ErrNotFound
	}
	if err := localstore.Save(ctx, r.store, localstore.KeyProjects, lo.Ternary(backup.Projects == nil, []models.Project{}, backup.Projects)); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if err := localstore.Save(ctx, r.store, localstore.KeyUsers, lo.Ternary(backup.Users == nil, []models.User{}, backup.Users)); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	r.changed(ctx)
	return &backup, nil
}
