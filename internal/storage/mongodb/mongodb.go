package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/pkg/config"
)

// Store implements MongoDB storage
type Store struct {
	client   *mongo.Client
	database *mongo.Database
	cfg      *config.MongoDBConfig

	servers *ServerStore
	configs *PortalConfigStore
	portals *PortalStore
}

// NewStore creates a new MongoDB store
func NewStore(ctx context.Context, cfg *config.MongoDBConfig) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetServerSelectionTimeout(time.Duration(cfg.Timeout) * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	seq := &sequence{collection: database.Collection("counters")}

	s := &Store{
		client:   client,
		database: database,
		cfg:      cfg,
	}

	// Portal configs and portals share one mutex for check-then-act reference rules
	refs := &sync.Mutex{}

	s.servers = &ServerStore{collection: database.Collection("servers"), seq: seq}
	s.portals = &PortalStore{collection: database.Collection("portals"), configs: database.Collection("portal_configs"), seq: seq, refs: refs}
	s.configs = &PortalConfigStore{collection: database.Collection("portal_configs"), portals: database.Collection("portals"), seq: seq, refs: refs}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.servers.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ip", Value: 1}, {Key: "port", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create server indexes: %w", err)
	}

	_, err = s.configs.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create portal config indexes: %w", err)
	}

	_, err = s.portals.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "config_id", Value: 1}}},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create portal indexes: %w", err)
	}

	return nil
}

func (s *Store) Servers() storage.ServerStore             { return s.servers }
func (s *Store) PortalConfigs() storage.PortalConfigStore { return s.configs }
func (s *Store) Portals() storage.PortalStore             { return s.portals }

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// sequence hands out monotonically increasing numbers used to list records
// in insertion order.
type sequence struct {
	collection *mongo.Collection
}

func (s *sequence) next(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to advance %s sequence: %v", storage.ErrDatabase, name, err)
	}
	return doc.Value, nil
}

func dbError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", storage.ErrDatabase, op, err)
}

var bySeq = options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
