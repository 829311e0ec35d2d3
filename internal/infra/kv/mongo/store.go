// Package mongo stores key-value pairs as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invoicedesk/internal/kv/core"
)

const (
	defaultURI        = "mongodb://localhost:27017"
	defaultDatabase   = "invoicedesk"
	defaultCollection = "kv_state"
	connectTimeout    = 10 * time.Second
)

// Config configures the MongoDB connection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type document struct {
	Key     string `bson:"_id"`
	Payload []byte `bson:"payload"`
}

// Store keeps one document per key: {_id: key, payload: bytes}.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ core.Store = (*Store)(nil)

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		cfg.URI = defaultURI
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Get implements domain.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo find %s: %w", key, err)
	}
	if doc.Payload == nil {
		doc.Payload = []byte{}
	}
	return doc.Payload, true, nil
}

// Set implements domain.KeyValueStore.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, document{Key: key, Payload: value}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo replace %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.KeyValueStore.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Driver reports the mongo driver.
func (s *Store) Driver() core.Driver { return core.DriverMongo }
