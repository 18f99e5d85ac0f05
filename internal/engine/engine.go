package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/coordinator"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/docstore/arango"
	"github.com/jon4hz/loaderdesk/internal/docstore/memory"
	"github.com/jon4hz/loaderdesk/internal/docstore/mongodb"
	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/mirror"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/profile"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"github.com/jon4hz/loaderdesk/internal/scheduler"
)

// Engine owns the stores, the sync coordinator and the scheduled jobs.
type Engine struct {
	cfg       *config.Config
	db        *localstore.Client
	store     *localstore.CachedStore
	repos     *repository.Repositories
	docs      *docstore.Client
	coord     *coordinator.Coordinator
	profile   *profile.Service
	scheduler *scheduler.Scheduler
}

// New creates a new Engine. Nothing talks to the network before Run or Initialize.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	db, err := localstore.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	store := localstore.NewCached(db, cfg.Cache)
	repos := repository.New(store)

	docs, err := newDocstore(cfg.Remote)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	coord := coordinator.New(repos, docs, mirror.NewJournal(mirror.DefaultJournalSize), coordinator.Options{
		UserID:        cfg.Remote.UserID,
		ProbeInterval: cfg.Remote.ProbeInterval,
		ProbeAttempts: cfg.Remote.ProbeAttempts,
	})
	repos.OnChange(coord.Save)

	sched, err := scheduler.New()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		db:        db,
		store:     store,
		repos:     repos,
		docs:      docs,
		coord:     coord,
		profile:   profile.New(docs, cfg.Profile),
		scheduler: sched,
	}

	if err := e.seedSettings(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.setupMirror(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.setupJobs(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func newDocstore(cfg *config.RemoteConfig) (*docstore.Client, error) {
	switch cfg.Type {
	case config.RemoteTypeNone, "":
		return nil, nil
	case config.RemoteTypeMemory:
		return docstore.NewClient(memory.New()), nil
	case config.RemoteTypeMongo:
		return docstore.NewClient(mongodb.New(cfg.Mongo)), nil
	case config.RemoteTypeArango:
		return docstore.NewClient(arango.New(cfg.Arango)), nil
	default:
		return nil, fmt.Errorf("unknown remote type %q", cfg.Type)
	}
}

// seedSettings writes the configured admin credentials and URLs into the local store.
func (e *Engine) seedSettings(ctx context.Context) error {
	settings := e.repos.Settings
	if err := settings.SetAdminCredentials(ctx, e.cfg.Admin.DiscordID, e.cfg.Admin.Key); err != nil {
		return fmt.Errorf("failed to store admin credentials: %w", err)
	}
	if e.cfg.LoaderServerURL != "" {
		if err := settings.SetLoaderServerURL(ctx, e.cfg.LoaderServerURL); err != nil {
			return fmt.Errorf("failed to store loader server url: %w", err)
		}
	}
	if e.cfg.APIBaseURL != "" {
		if err := settings.SetAPIBaseURL(ctx, e.cfg.APIBaseURL); err != nil {
			return fmt.Errorf("failed to store api base url: %w", err)
		}
	}
	return nil
}

// setupMirror selects the file mirror. A configured s3 or github mirror wins over
// the GitHub settings stored through the admin API.
func (e *Engine) setupMirror(ctx context.Context) error {
	cfg := e.cfg.Mirror
	switch cfg.Type {
	case config.MirrorTypeS3:
		s3Mirror, err := mirror.NewS3(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to create s3 mirror: %w", err)
		}
		e.coord.SetMirror(s3Mirror)
		log.Info("File mirror enabled", "type", cfg.Type, "bucket", cfg.S3.Bucket)
		return nil
	case config.MirrorTypeGitHub:
		e.coord.SetMirror(mirror.NewGitHub(cfg.GitHub.URL, models.MirrorSettings{
			Token:      cfg.GitHub.Token,
			Owner:      cfg.GitHub.Owner,
			Repository: cfg.GitHub.Repository,
			Branch:     cfg.GitHub.Branch,
		}))
		log.Info("File mirror enabled", "type", cfg.Type, "repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repository)
		return nil
	}

	stored, err := e.repos.Settings.MirrorSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mirror settings: %w", err)
	}
	e.applyMirrorSettings(stored)
	return nil
}

func (e *Engine) applyMirrorSettings(settings models.MirrorSettings) {
	if !settings.Configured() {
		e.coord.SetMirror(nil)
		return
	}
	e.coord.SetMirror(mirror.NewGitHub(e.cfg.Mirror.GitHub.URL, settings))
	log.Info("File mirror enabled from stored settings", "repository", settings.Owner+"/"+settings.Repository)
}

// UpdateMirrorSettings stores GitHub mirror credentials and applies them unless
// a mirror is configured in the config file.
func (e *Engine) UpdateMirrorSettings(ctx context.Context, settings models.MirrorSettings) error {
	if err := e.repos.Settings.SetMirrorSettings(ctx, settings); err != nil {
		return err
	}
	if e.cfg.Mirror.Type != config.MirrorTypeNone {
		log.Warn("Stored mirror settings are ignored while a mirror is configured", "type", e.cfg.Mirror.Type)
		return nil
	}
	stored, err := e.repos.Settings.MirrorSettings(ctx)
	if err != nil {
		return err
	}
	e.applyMirrorSettings(stored)
	return nil
}

// Initialize connects to the remote document store, if any.
func (e *Engine) Initialize(ctx context.Context) error {
	err := e.coord.Initialize(ctx)
	if errors.Is(err, docstore.ErrUnavailable) {
		return nil
	}
	return err
}

// Run starts the sync coordinator and the scheduler and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := e.Initialize(ctx); err != nil {
		log.Error("Failed to initialize cloud sync", "error", err)
	}

	e.scheduler.Start()

	<-ctx.Done()
	return nil
}

// Close stops the engine and releases its resources.
func (e *Engine) Close() error {
	var errs []error
	if err := e.scheduler.Stop(); err != nil {
		errs = append(errs, err)
	}
	e.coord.Close()
	if e.docs != nil {
		if err := e.docs.Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration of the engine.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Repositories returns the entity repositories.
func (e *Engine) Repositories() *repository.Repositories {
	return e.repos
}

// Coordinator returns the sync coordinator.
func (e *Engine) Coordinator() *coordinator.Coordinator {
	return e.coord
}

// Docstore returns the remote document store client. It is nil when running local only.
func (e *Engine) Docstore() *docstore.Client {
	return e.docs
}

// Profile returns the profile service.
func (e *Engine) Profile() *profile.Service {
	return e.profile
}

// GetScheduler returns the scheduler instance for API access.
func (e *Engine) GetScheduler() *scheduler.Scheduler {
	return e.scheduler
}

// LocalEntries returns the raw entries of the local database.
func (e *Engine) LocalEntries(ctx context.Context) ([]localstore.Entry, error) {
	return e.db.Entries(ctx)
}

// CacheStats returns the hit and miss counters of the hot cache.
func (e *Engine) CacheStats() *localstore.Stats {
	return e.store.GetStats()
}
