package repository

import (
	"context"
	"time"

	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// AutoSave manages the auto-save bookkeeping.
type AutoSave struct {
	r *Repositories
}

// Get returns the current auto-save state.
func (a *AutoSave) Get(ctx context.Context) (models.AutoSaveState, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	return localstore.Load[models.AutoSaveState](ctx, a.r.store, localstore.KeyAutoSaveState)
}

// SetEnabled turns scheduled backups on or off.
func (a *AutoSave) SetEnabled(ctx context.Context, enabled bool) (models.AutoSaveState, error) {
	return a.modify(ctx, func(state *models.AutoSaveState) {
		state.Enabled = enabled
	})
}

// RecordFileSaved increments the saved files counter.
func (a *AutoSave) RecordFileSaved(ctx context.Context) (models.AutoSaveState, error) {
	return a.modify(ctx, func(state *models.AutoSaveState) {
		state.FilesSavedCount++
	})
}

// MarkBackup records the time of the latest backup.
func (a *AutoSave) MarkBackup(ctx context.Context, at time.Time) (models.AutoSaveState, error) {
	return a.modify(ctx, func(state *models.AutoSaveState) {
		state.LastBackupTime = lo.ToPtr(at)
	})
}

// Replace overwrites the auto-save state without triggering change hooks.
func (a *AutoSave) Replace(ctx context.Context, state models.AutoSaveState) error {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	return localstore.Save(ctx, a.r.store, localstore.KeyAutoSaveState, state)
}

func (a *AutoSave) modify(ctx context.Context, fn func(state *models.AutoSaveState)) (models.AutoSaveState, error) {
	a.r.mu.Lock()
	state, err := localstore.Load[models.AutoSaveState](ctx, a.r.store, localstore.KeyAutoSaveState)
	if err != nil {
		a.r.mu.Unlock()
		return state, err
	}
	fn(&state)
	if err := localstore.Save(ctx, a.r.store, localstore.KeyAutoSaveState, state); err != nil {
		a.r.mu.Unlock()
		return state, err
	}
	a.r.mu.Unlock()

	a.r.changed(ctx)
	return state, nil
}

// recordFileSaved increments the counter. The caller must hold the lock.
func (a *AutoSave) recordFileSaved(ctx context.Context) error {
	state, err := localstore.Load[models.AutoSaveState](ctx, a.r.store, localstore.KeyAutoSaveState)
	if err != nil {
		return err
	}
	state.FilesSavedCount++
	return localstore.Save(ctx, a.r.store, localstore.KeyAutoSaveState, state)
}
