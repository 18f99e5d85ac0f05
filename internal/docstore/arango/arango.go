package arango

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/docstore"
)

var _ docstore.Backend = (*Store)(nil)

const defaultPollInterval = 2 * time.Second

// system attributes managed by ArangoDB
var systemFields = []string{"_key", "_id", "_rev"}

// Store is an ArangoDB backed document database. Subscriptions poll the document revision.
type Store struct {
	cfg    *config.ArangoConfig
	client arangodb.Client
	db     arangodb.Database
}

// New creates a new Store. The server is dialed by Connect.
func New(cfg *config.ArangoConfig) *Store {
	return &Store{cfg: cfg}
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
	}
}

func (s *Store) Name() string {
	return "arango"
}

func (s *Store) Connect(ctx context.Context) error {
	endpoint := connection.NewRoundRobinEndpoints([]string{s.cfg.URL})
	conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, s.cfg.Username, s.cfg.Password))
	client := arangodb.NewClient(conn)

	versionInfo, err := client.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach arangodb: %w", err)
	}
	log.Debug("connected to arangodb", "version", versionInfo.Version, "license", versionInfo.License)

	db, err := ensureDatabase(ctx, client, s.cfg.Database)
	if err != nil {
		return err
	}
	for _, name := range docstore.Collections {
		if err := ensureCollection(ctx, db, name); err != nil {
			return err
		}
	}

	s.client = client
	s.db = db
	return nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client, name string) (arangodb.Database, error) {
	dblist, err := client.Databases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	for _, dbinfo := range dblist {
		if dbinfo.Name() == name {
			var options arangodb.GetDatabaseOptions
			db, err := client.GetDatabase(ctx, name, &options)
			if err != nil {
				return nil, fmt.Errorf("failed to get database: %w", err)
			}
			return db, nil
		}
	}
	db, err := client.CreateDatabase(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	return db, nil
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) error {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := db.CreateCollectionV2(ctx, name, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Version(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	doc, _, exists, err := s.read(ctx, collection, id)
	return doc, exists, err
}

// read returns the document without system fields and its revision.
func (s *Store) read(ctx context.Context, collection, id string) (docstore.Document, string, bool, error) {
	query := `RETURN DOCUMENT(@col, @key)`
	bindVars := map[string]interface{}{
		"col": collection,
		"key": id,
	}

	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, "", false, err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return nil, "", false, nil
	}
	var doc docstore.Document
	if _, err := cursor.ReadDocument(ctx, &doc); err != nil {
		return nil, "", false, err
	}
	if doc == nil {
		return nil, "", false, nil
	}

	rev, _ := doc["_rev"].(string)
	for _, f := range systemFields {
		delete(doc, f)
	}
	return doc, rev, true, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	body := doc.Clone()
	if body == nil {
		body = docstore.Document{}
	}
	for _, f := range systemFields {
		delete(body, f)
	}

	query := `
		UPSERT { _key: @key }
		INSERT MERGE(@doc, { _key: @key })
		REPLACE MERGE(@doc, { _key: @key })
		IN @@col
	`
	bindVars := map[string]interface{}{
		"@col": collection,
		"key":  id,
		"doc":  map[string]any(body),
	}

	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// Watch polls the document revision and reports every change.
func (s *Store) Watch(ctx context.Context, collection, id string, onChange func(docstore.Snapshot), onError func(error)) error {
	_, lastRev, _, err := s.read(ctx, collection, id)
	if err != nil {
		return err
	}

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			doc, rev, exists, err := s.read(ctx, collection, id)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				continue
			}
			if rev == lastRev {
				continue
			}
			lastRev = rev
			onChange(docstore.Snapshot{
				Collection: collection,
				ID:         id,
				Exists:     exists,
				Data:       doc,
			})
		}
	}()
	return nil
}

// Close is a no-op, the HTTP connection holds no state. Watchers stop with their context.
func (s *Store) Close(context.Context) error {
	return nil
}
