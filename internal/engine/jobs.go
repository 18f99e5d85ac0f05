package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/scheduler"
)

const (
	JobAutoBackup      = "auto-backup"
	JobExpireKeys      = "expire-keys"
	JobResetDailyViews = "reset-daily-views"

	dailySchedule = "0 0 * * *"
)

// setupJobs configures all scheduled jobs.
func (e *Engine) setupJobs() error {
	if err := e.scheduler.AddSingletonJob(
		JobAutoBackup,
		"Auto Backup",
		"Captures a backup of projects and users while auto-save is enabled",
		e.cfg.AutoSave.Schedule,
		gocron.CronJob(e.cfg.AutoSave.Schedule, false),
		e.runAutoBackup,
		false,
	); err != nil {
		return fmt.Errorf("failed to add auto backup job: %w", err)
	}

	if err := e.scheduler.AddSingletonJob(
		JobExpireKeys,
		"Expire Keys",
		"Decrements the remaining days of limited keys and expires them at zero",
		dailySchedule,
		gocron.CronJob(dailySchedule, false),
		e.runExpireKeys,
		false,
	); err != nil {
		return fmt.Errorf("failed to add expire keys job: %w", err)
	}

	if err := e.scheduler.AddSingletonJob(
		JobResetDailyViews,
		"Reset Daily Views",
		"Resets the daily profile view counter",
		dailySchedule,
		gocron.CronJob(dailySchedule, false),
		e.runResetDailyViews,
		false,
	); err != nil {
		return fmt.Errorf("failed to add reset daily views job: %w", err)
	}

	log.Info("Scheduled jobs configured successfully")
	return nil
}

func (e *Engine) runAutoBackup(ctx context.Context) error {
	state, err := e.repos.AutoSave.Get(ctx)
	if err != nil {
		return err
	}
	if !state.Enabled {
		return scheduler.ErrSkipped
	}
	backup, err := e.repos.TriggerManualBackup(ctx)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	log.Info("Auto backup created", "id", backup.ID, "projects", len(backup.Projects), "users", len(backup.Users))
	return nil
}

func (e *Engine) runExpireKeys(ctx context.Context) error {
	expired, err := e.repos.Users.ExpireDays(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire keys: %w", err)
	}
	if expired > 0 {
		log.Info("Expired keys", "count", expired)
	}
	return nil
}

func (e *Engine) runResetDailyViews(ctx context.Context) error {
	err := e.profile.ResetDailyViews(ctx)
	if errors.Is(err, docstore.ErrUnavailable) {
		return scheduler.ErrSkipped
	}
	return err
}
