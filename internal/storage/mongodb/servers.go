package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

type serverDoc struct {
	domain.Server `bson:",inline"`
	Seq           int64 `bson:"seq"`
}

// ServerStore implements MongoDB server storage
type ServerStore struct {
	collection *mongo.Collection
	seq        *sequence
}

func (s *ServerStore) Create(ctx context.Context, server *domain.Server) error {
	seq, err := s.seq.next(ctx, "servers")
	if err != nil {
		return err
	}

	_, err = s.collection.InsertOne(ctx, serverDoc{Server: *server, Seq: seq})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: server %s or endpoint %s already registered", storage.ErrConflict, server.ID, server.Endpoint())
		}
		return dbError("create server", err)
	}
	return nil
}

func (s *ServerStore) GetByID(ctx context.Context, id string) (*domain.Server, error) {
	var doc serverDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, dbError("get server", err)
	}
	return &doc.Server, nil
}

func (s *ServerStore) GetAll(ctx context.Context) ([]*domain.Server, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, bySeq)
	if err != nil {
		return nil, dbError("get servers", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []serverDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError("decode servers", err)
	}

	servers := make([]*domain.Server, 0, len(docs))
	for i := range docs {
		servers = append(servers, &docs[i].Server)
	}
	return servers, nil
}

func (s *ServerStore) Update(ctx context.Context, server *domain.Server) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": server.ID},
		bson.M{"$set": bson.M{"name": server.Name, "ip": server.IP, "port": server.Port}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: endpoint %s is already registered", storage.ErrConflict, server.Endpoint())
		}
		return dbError("update server", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ServerStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return dbError("delete server", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
