package memory

import (
	"context"
	"sync"

	"github.com/jon4hz/loaderdesk/internal/docstore"
)

var _ docstore.Backend = (*Store)(nil)

type watcher struct {
	id       int
	onChange func(docstore.Snapshot)
}

// Store is an in-process document database. Watchers are notified synchronously
// from the goroutine that performed the write.
type Store struct {
	mu       sync.Mutex
	docs     map[string]map[string]docstore.Document
	watchers map[string][]watcher
	nextID   int

	// Error simulation
	ConnectError error
	GetError     error
	PutError     error

	// Puts counts successful writes per "collection/id".
	Puts map[string]int
}

// New creates a new empty Store.
func New() *Store {
	return &Store{
		docs:     make(map[string]map[string]docstore.Document),
		watchers: make(map[string][]watcher),
		Puts:     make(map[string]int),
	}
}

func watchKey(collection, id string) string {
	return collection + "/" + id
}

func (s *Store) Name() string {
	return "memory"
}

func (s *Store) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ConnectError
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetError != nil {
		return nil, false, s.GetError
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (s *Store) Put(_ context.Context, collection, id string, doc docstore.Document) error {
	s.mu.Lock()
	if s.PutError != nil {
		err := s.PutError
		s.mu.Unlock()
		return err
	}
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]docstore.Document)
	}
	s.docs[collection][id] = doc.Clone()
	s.Puts[watchKey(collection, id)]++
	watchers := append([]watcher(nil), s.watchers[watchKey(collection, id)]...)
	s.mu.Unlock()

	for _, w := range watchers {
		w.onChange(docstore.Snapshot{
			Collection: collection,
			ID:         id,
			Exists:     true,
			Data:       doc.Clone(),
		})
	}
	return nil
}

// Watch registers onChange until ctx is canceled. Errors are never reported.
func (s *Store) Watch(ctx context.Context, collection, id string, onChange func(docstore.Snapshot), _ func(error)) error {
	key := watchKey(collection, id)

	s.mu.Lock()
	s.nextID++
	wid := s.nextID
	s.watchers[key] = append(s.watchers[key], watcher{id: wid, onChange: onChange})
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		ws := s.watchers[key]
		for i, w := range ws {
			if w.id == wid {
				s.watchers[key] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
	}()
	return nil
}

func (s *Store) Close(context.Context) error {
	return nil
}

// Seed stores doc without notifying watchers.
func (s *Store) Seed(collection, id string, doc docstore.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]docstore.Document)
	}
	s.docs[collection][id] = doc.Clone()
}

// Doc returns a copy of collection/id, or nil.
func (s *Store) Doc(collection, id string) docstore.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[collection][id].Clone()
}

// Watchers returns the number of active watchers on collection/id.
func (s *Store) Watchers(collection, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[watchKey(collection, id)])
}

// PutCount returns the number of successful writes to collection/id.
func (s *Store) PutCount(collection, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Puts[watchKey(collection, id)]
}
