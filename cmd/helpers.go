package cmd

import (
	"context"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/engine"
	"github.com/mergestat/timediff"
)

// openEngine loads the config and creates an engine connected to the remote document store, if any.
func openEngine(ctx context.Context) *engine.Engine {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	e, err := engine.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	if err := e.Initialize(ctx); err != nil {
		log.Warn("cloud sync unavailable, working on local data only", "error", err)
	}
	return e
}

func confirm(title string) bool {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		log.Errorf("failed to read confirmation: %v", err)
		return false
	}
	return ok
}

func ago(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return timediff.TimeDiff(*t)
}
