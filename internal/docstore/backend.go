package docstore

import "context"

// Collections used by loaderdesk.
const (
	CollectionUsers     = "users"
	CollectionProjects  = "projects"
	CollectionProfiles  = "profiles"
	CollectionAnalytics = "analytics"
)

// Collections lists every collection a backend has to provide.
var Collections = []string{
	CollectionUsers,
	CollectionProjects,
	CollectionProfiles,
	CollectionAnalytics,
}

// Backend is a remote document database.
// Put always replaces the whole document; merging happens in the Client.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Connect dials the database. It is called once, asynchronously.
	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	Put(ctx context.Context, collection, id string, doc Document) error
	// Watch calls onChange for every change of the document until ctx is canceled.
	// It returns once the watch is established.
	Watch(ctx context.Context, collection, id string, onChange func(Snapshot), onError func(error)) error
	Close(ctx context.Context) error
}
