package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/charmbracelet/log"
)

var errNotReady = errors.New("remote document store not ready yet")

// Client wraps a Backend with availability tracking, merge writes and typed errors.
type Client struct {
	backend Backend

	ready     chan struct{}
	available atomic.Bool
	closed    atomic.Bool

	mu      sync.Mutex
	dialing bool
	openErr error
	cancel  context.CancelFunc
}

// NewClient creates a new Client. The backend is not dialed before Open.
func NewClient(backend Backend) *Client {
	return &Client{
		backend: backend,
		ready:   make(chan struct{}),
	}
}

// Backend returns the name of the underlying backend.
func (c *Client) Backend() string {
	return c.backend.Name()
}

// Open dials the backend in the background. Available turns true once the dial succeeded.
// Calling Open again after a failed dial starts a new one.
func (c *Client) Open(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialing || c.available.Load() || c.closed.Load() {
		return
	}
	c.dialing = true
	c.openErr = nil

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		err := c.backend.Connect(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.dialing = false
		if err != nil {
			log.Error("failed to connect to remote document store", "backend", c.backend.Name(), "error", err)
			c.openErr = err
			return
		}
		c.available.Store(true)
		close(c.ready)
		log.Info("remote document store connected", "backend", c.backend.Name())
	}()
}

// Ready is closed once the backend is connected.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Available reports whether the backend signaled readiness and the client is not closed.
func (c *Client) Available() bool {
	return c.available.Load() && !c.closed.Load()
}

// WaitAvailable polls Available every interval, at most attempts times.
// It returns ErrUnavailable when the backend did not become ready in time or failed to connect.
func (c *Client) WaitAvailable(ctx context.Context, interval time.Duration, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		if c.closed.Load() {
			return backoff.Permanent(ErrClosed)
		}
		if c.Available() {
			return nil
		}
		c.mu.Lock()
		openErr := c.openErr
		c.mu.Unlock()
		if openErr != nil {
			return backoff.Permanent(openErr)
		}
		return errNotReady
	}, b, func(err error, next time.Duration) {
		log.Debug("waiting for remote document store", "backend", c.backend.Name(), "retryIn", next, "reason", err)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks the connection to the backend.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Available() {
		return ErrUnavailable
	}
	if err := c.backend.Ping(ctx); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

// Read returns a snapshot of collection/id. A missing document is not an error.
func (c *Client) Read(ctx context.Context, collection, id string) (Snapshot, error) {
	snap := Snapshot{Collection: collection, ID: id}
	if !c.Available() {
		return snap, ErrUnavailable
	}
	doc, exists, err := c.backend.Get(ctx, collection, id)
	if err != nil {
		return snap, &ConnectionError{Op: "read", Collection: collection, ID: id, Err: err}
	}
	snap.Exists = exists
	snap.Data = doc
	return snap, nil
}

// WriteOption configures a Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	merge bool
}

// Merge preserves the fields of the existing document that the write omits.
func Merge() WriteOption {
	return func(o *writeOptions) {
		o.merge = true
	}
}

// Write stores data as collection/id. Without the Merge option the document is replaced.
func (c *Client) Write(ctx context.Context, collection, id string, data Document, opts ...WriteOption) error {
	if !c.Available() {
		return ErrUnavailable
	}

	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc := data
	if o.merge {
		existing, exists, err := c.backend.Get(ctx, collection, id)
		if err != nil {
			return &ConnectionError{Op: "write", Collection: collection, ID: id, Err: err}
		}
		if exists {
			doc = MergeDocuments(existing, data)
		}
	}

	if err := c.backend.Put(ctx, collection, id, doc.Clone()); err != nil {
		return &ConnectionError{Op: "write", Collection: collection, ID: id, Err: err}
	}
	return nil
}

// Subscription is a live watch on one document.
type Subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

// Unsubscribe stops the watch.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe watches collection/id. onChange receives every change, onError receives watch failures.
func (c *Client) Subscribe(
	ctx context.Context,
	collection, id string,
	onChange func(Snapshot),
	onError func(error),
) (*Subscription, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if onError == nil {
		onError = func(err error) {
			log.Error("remote document subscription failed", "collection", collection, "id", id, "error", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	wrappedErr := func(err error) {
		onError(&ConnectionError{Op: "watch", Collection: collection, ID: id, Err: err})
	}
	if err := c.backend.Watch(ctx, collection, id, onChange, wrappedErr); err != nil {
		cancel()
		return nil, &ConnectionError{Op: "subscribe", Collection: collection, ID: id, Err: err}
	}
	return &Subscription{cancel: cancel}, nil
}

// Close stops pending dials and closes the backend.
func (c *Client) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if !c.available.Load() {
		return nil
	}
	return c.backend.Close(ctx)
}
