package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/mirror"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/repository"
)

// ErrSyncInProgress is returned when a push or pull starts while another one is running.
var ErrSyncInProgress = errors.New("sync already in progress")

// Options configure a Coordinator.
type Options struct {
	// UserID is the id of the synchronization document in the users collection.
	UserID string
	// ProbeInterval and ProbeAttempts bound the availability probe of Initialize.
	ProbeInterval time.Duration
	ProbeAttempts int
}

// Coordinator decides when the local store, the remote document store and the
// file mirror are updated.
type Coordinator struct {
	repos   *repository.Repositories
	docs    *docstore.Client
	journal *mirror.Journal
	opts    Options

	syncInProgress   atomic.Bool
	cloudSyncEnabled atomic.Bool
	lastSync         atomic.Pointer[time.Time]

	mu        sync.RWMutex
	files     mirror.FileStore
	sub       *docstore.Subscription
	listeners []func(Views)
}

// New creates a new Coordinator. docs may be nil to run local only.
func New(repos *repository.Repositories, docs *docstore.Client, journal *mirror.Journal, opts Options) *Coordinator {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 500 * time.Millisecond
	}
	if opts.ProbeAttempts <= 0 {
		opts.ProbeAttempts = 10
	}
	if journal == nil {
		journal = mirror.NewJournal(mirror.DefaultJournalSize)
	}
	return &Coordinator{
		repos:   repos,
		docs:    docs,
		journal: journal,
		opts:    opts,
	}
}

// Journal returns the journal of best-effort mirror tasks.
func (c *Coordinator) Journal() *mirror.Journal {
	return c.journal
}

// SetMirror replaces the file mirror. Nil disables file mirroring.
func (c *Coordinator) SetMirror(fs mirror.FileStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = fs
}

func (c *Coordinator) fileStore() mirror.FileStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files
}

// OnRefresh registers a listener receiving the recomputed views after every pull and save.
func (c *Coordinator) OnRefresh(fn func(Views)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// CloudSyncEnabled reports whether the remote document store is in use.
func (c *Coordinator) CloudSyncEnabled() bool {
	return c.docs != nil && c.cloudSyncEnabled.Load() && c.docs.Available()
}

// SyncInProgress reports whether a push or pull is running.
func (c *Coordinator) SyncInProgress() bool {
	return c.syncInProgress.Load()
}

// LastSync returns the time of the last successful push or applied pull.
func (c *Coordinator) LastSync() *time.Time {
	return c.lastSync.Load()
}

// Initialize probes the remote document store. When it becomes available the
// sync document is subscribed and pulled once. Otherwise the coordinator stays local only.
func (c *Coordinator) Initialize(ctx context.Context) error {
	if c.docs == nil {
		log.Info("No remote document store configured, running local only")
		return docstore.ErrUnavailable
	}

	// the dial and the subscription outlive the caller, which may be a single request
	live := context.WithoutCancel(ctx)

	c.docs.Open(live)
	if err := c.docs.WaitAvailable(ctx, c.opts.ProbeInterval, c.opts.ProbeAttempts); err != nil {
		c.cloudSyncEnabled.Store(false)
		log.Warn("Cloud sync disabled, running local only", "backend", c.docs.Backend(), "error", err)
		return err
	}

	sub, err := c.docs.Subscribe(live, docstore.CollectionUsers, c.opts.UserID, c.handleChange, func(err error) {
		log.Error("Cloud sync listener error", "user", c.opts.UserID, "error", err)
	})
	if err != nil {
		c.cloudSyncEnabled.Store(false)
		return fmt.Errorf("failed to subscribe to sync document: %w", err)
	}

	c.mu.Lock()
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.sub = sub
	c.mu.Unlock()

	c.cloudSyncEnabled.Store(true)
	log.Info("Cloud sync enabled", "backend", c.docs.Backend(), "user", c.opts.UserID)

	snap, err := c.docs.Read(ctx, docstore.CollectionUsers, c.opts.UserID)
	if err != nil {
		log.Error("Failed to load initial data from remote", "error", err)
		return nil
	}
	if snap.Exists {
		if err := c.PullRemoteToLocal(ctx, snap.Data); err != nil {
			log.Error("Failed to apply initial remote data", "error", err)
		}
	}
	return nil
}

// Retry runs Initialize again. There is no automatic retry.
func (c *Coordinator) Retry(ctx context.Context) error {
	return c.Initialize(ctx)
}

// Close stops the subscription.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.cloudSyncEnabled.Store(false)
}

// syncDocument is the per user document holding the whole local state.
type syncDocument struct {
	Projects      []models.Project     `json:"projects"`
	Users         []models.User        `json:"users"`
	Backups       []models.Backup      `json:"backups"`
	AutoSaveState models.AutoSaveState `json:"autoSaveState"`
	LastSync      string               `json:"lastSync"`
}

// PushLocalToRemote writes the local projects, users, backups and auto-save
// state into the sync document with merge semantics.
func (c *Coordinator) PushLocalToRemote(ctx context.Context) error {
	if !c.CloudSyncEnabled() {
		return docstore.ErrUnavailable
	}
	if !c.syncInProgress.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer c.syncInProgress.Store(false)

	projects, err := c.repos.Projects.List(ctx)
	if err != nil {
		return err
	}
	users, err := c.repos.Users.List(ctx)
	if err != nil {
		return err
	}
	backups, err := c.repos.Backups.List(ctx)
	if err != nil {
		return err
	}
	state, err := c.repos.AutoSave.Get(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc, err := docstore.Encode(syncDocument{
		Projects:      projects,
		Users:         users,
		Backups:       backups,
		AutoSaveState: state,
		LastSync:      now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	if err := c.docs.Write(ctx, docstore.CollectionUsers, c.opts.UserID, doc, docstore.Merge()); err != nil {
		return fmt.Errorf("failed to push local data: %w", err)
	}
	c.lastSync.Store(&now)
	log.Debug("Data saved to remote", "user", c.opts.UserID)
	return nil
}

// PullRemoteToLocal overwrites the local projects, users and backups with the
// lists present in data. Fields that are missing or not a list are left alone.
func (c *Coordinator) PullRemoteToLocal(ctx context.Context, data docstore.Document) error {
	if !c.syncInProgress.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}

	errs := []error{
		pullSequence(ctx, data, "projects", c.repos.Projects.Replace),
		pullSequence(ctx, data, "users", c.repos.Users.Replace),
		pullSequence(ctx, data, "backups", c.repos.Backups.Replace),
	}
	if raw, ok := data["lastSync"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			c.lastSync.Store(&t)
		}
	}
	c.syncInProgress.Store(false)

	c.refresh(ctx)
	return errors.Join(errs...)
}

func pullSequence[T any](ctx context.Context, data docstore.Document, field string, replace func(context.Context, []T) error) error {
	seq, ok := data.Sequence(field)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("failed to encode remote %s: %w", field, err)
	}
	items := make([]T, 0, len(seq))
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("failed to decode remote %s: %w", field, err)
	}
	if err := replace(ctx, items); err != nil {
		return fmt.Errorf("failed to store remote %s: %w", field, err)
	}
	return nil
}

// handleChange applies remote notifications unless a sync is running,
// which filters out the echo of our own pushes.
func (c *Coordinator) handleChange(snap docstore.Snapshot) {
	if !snap.Exists {
		return
	}
	if c.syncInProgress.Load() {
		log.Debug("Ignoring remote change while sync is in progress", "id", snap.ID)
		return
	}
	if err := c.PullRemoteToLocal(context.Background(), snap.Data); err != nil {
		log.Error("Failed to sync from remote", "error", err)
		return
	}
	log.Debug("Data synced from remote", "id", snap.ID)
}

// Save is the side effect of a local mutation: push, then lookup documents, then files.
// Failures are logged and swallowed.
func (c *Coordinator) Save(ctx context.Context) {
	if _, err := c.save(ctx); err != nil {
		log.Warn("Background sync failed", "error", err)
	}
}

func (c *Coordinator) save(ctx context.Context) ([]error, error) {
	var pushErr error
	if err := c.PushLocalToRemote(ctx); err != nil && !errors.Is(err, docstore.ErrUnavailable) {
		pushErr = err
	}

	projects, err := c.repos.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := c.repos.Users.List(ctx)
	if err != nil {
		return nil, err
	}

	var mirrorErrs []error
	for _, err := range []error{
		c.MirrorProjectFiles(ctx, projects),
		c.MirrorUsers(ctx, users),
		c.MirrorFiles(ctx, projects, users),
	} {
		if err != nil {
			mirrorErrs = append(mirrorErrs, err)
		}
	}

	c.refresh(ctx)
	return mirrorErrs, pushErr
}

// Report is the outcome of an explicit sync.
type Report struct {
	CloudSyncEnabled bool          `json:"cloudSyncEnabled"`
	Pushed           bool          `json:"pushed"`
	PushError        string        `json:"pushError,omitempty"`
	MirrorErrors     []string      `json:"mirrorErrors,omitempty"`
	FailedTasks      []mirror.Task `json:"failedTasks,omitempty"`
	LastSync         *time.Time    `json:"lastSync"`
}

// SyncNow runs Save and surfaces every failure. The returned error is the push failure, if any.
func (c *Coordinator) SyncNow(ctx context.Context) (*Report, error) {
	report := &Report{CloudSyncEnabled: c.CloudSyncEnabled()}

	mirrorErrs, err := c.save(ctx)
	if err == nil && !report.CloudSyncEnabled {
		err = docstore.ErrUnavailable
	}
	for _, mirrorErr := range mirrorErrs {
		report.MirrorErrors = append(report.MirrorErrors, mirrorErr.Error())
	}
	report.FailedTasks = c.journal.Failed()
	report.LastSync = c.LastSync()
	if err != nil {
		report.PushError = err.Error()
		return report, err
	}
	report.Pushed = true
	return report, nil
}
