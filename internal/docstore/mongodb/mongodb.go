package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ docstore.Backend = (*Store)(nil)

// Store is a MongoDB backed document database. Subscriptions use change streams,
// which require a replica set deployment.
type Store struct {
	cfg    *config.MongoConfig
	client *mongo.Client
	db     *mongo.Database
}

// New creates a new Store. The server is dialed by Connect.
func New(cfg *config.MongoConfig) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Name() string {
	return "mongo"
}

func (s *Store) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.cfg.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	s.client = client
	s.db = client.Database(s.cfg.Database)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	doc, err := fromBSON(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	body := doc.Clone()
	if body == nil {
		body = docstore.Document{}
	}
	body["_id"] = id
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": id},
		map[string]any(body),
		options.Replace().SetUpsert(true),
	)
	return err
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

func (s *Store) Watch(ctx context.Context, collection, id string, onChange func(docstore.Snapshot), onError func(error)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	stream, err := s.db.Collection(collection).Watch(
		ctx,
		pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup),
	)
	if err != nil {
		return fmt.Errorf("failed to open change stream: %w", err)
	}

	go func() {
		defer stream.Close(context.Background()) //nolint:errcheck

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				onError(fmt.Errorf("failed to decode change event: %w", err))
				continue
			}

			snap := docstore.Snapshot{Collection: collection, ID: id}
			if ev.OperationType != "delete" && len(ev.FullDocument) > 0 {
				doc, err := fromBSON(ev.FullDocument)
				if err != nil {
					onError(err)
					continue
				}
				snap.Exists = true
				snap.Data = doc
			}
			onChange(snap)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(err)
		}
		log.Debug("mongo change stream closed", "collection", collection, "id", id)
	}()
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// fromBSON converts a stored document into JSON types via relaxed extended JSON.
func fromBSON(raw bson.Raw) (docstore.Document, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}
