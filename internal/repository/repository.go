package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jon4hz/loaderdesk/internal/localstore"
)

// ChangeHook is called after a mutation has been persisted locally.
type ChangeHook func(ctx context.Context)

// Repositories groups the entity repositories over one local store.
// A shared mutex serializes every read-modify-write cycle.
type Repositories struct {
	store localstore.Store

	mu    sync.Mutex
	hooks []ChangeHook
	now   func() time.Time

	Users    *Users
	Projects *Projects
	Backups  *Backups
	AutoSave *AutoSave
	Settings *Settings
}

// New creates the repositories backed by store.
func New(store localstore.Store) *Repositories {
	r := &Repositories{
		store: store,
		now:   time.Now,
	}
	r.Users = &Users{r: r}
	r.Projects = &Projects{r: r}
	r.Backups = &Backups{r: r}
	r.AutoSave = &AutoSave{r: r}
	r.Settings = &Settings{r: r}
	return r
}

// OnChange registers a hook that runs after every user initiated mutation.
// Replace operations do not trigger hooks.
func (r *Repositories) OnChange(hook ChangeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Store returns the underlying local store.
func (r *Repositories) Store() localstore.Store {
	return r.store
}

func (r *Repositories) changed(ctx context.Context) {
	r.mu.Lock()
	hooks := append([]ChangeHook(nil), r.hooks...)
	r.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx)
	}
}

// update runs fn on the list stored under key and persists the result.
func update[T any](ctx context.Context, r *Repositories, key string, fn func([]T) ([]T, error)) ([]T, error) {
	return updateThen(ctx, r, key, fn, nil)
}

// updateThen is update with a step that runs under the same lock once the list is persisted.
func updateThen[T any](ctx context.Context, r *Repositories, key string, fn func([]T) ([]T, error), after func()) ([]T, error) {
	r.mu.Lock()
	items, err := localstore.Load[[]T](ctx, r.store, key)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	items, err = fn(items)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if err := localstore.Save(ctx, r.store, key, items); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if after != nil {
		after()
	}
	r.mu.Unlock()

	r.changed(ctx)
	return items, nil
}

// list loads the list stored under key, never returning nil.
func list[T any](ctx context.Context, r *Repositories, key string) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := localstore.Load[[]T](ctx, r.store, key)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// replace overwrites the list stored under key without triggering hooks.
func replace[T any](ctx context.Context, r *Repositories, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return localstore.Save(ctx, r.store, key, items)
}

// newSecureID returns 128 random bits, hex encoded.
func newSecureID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b) // never returns an error
	return hex.EncodeToString(b)
}

// Changed runs the change hooks. It is used after wholesale replacements
// that should be synchronized, like an archive import.
func (r *Repositories) Changed(ctx context.Context) {
	r.changed(ctx)
}
