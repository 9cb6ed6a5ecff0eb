package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

type portalConfigDoc struct {
	domain.PortalConfig `bson:",inline"`
	Seq                 int64 `bson:"seq"`
}

type portalDoc struct {
	domain.Portal `bson:",inline"`
	Seq           int64 `bson:"seq"`
}

// PortalConfigStore implements MongoDB portal config storage
type PortalConfigStore struct {
	collection *mongo.Collection
	portals    *mongo.Collection
	seq        *sequence
	refs       *sync.Mutex
}

func (s *PortalConfigStore) Create(ctx context.Context, cfg *domain.PortalConfig) error {
	seq, err := s.seq.next(ctx, "portal_configs")
	if err != nil {
		return err
	}

	_, err = s.collection.InsertOne(ctx, portalConfigDoc{PortalConfig: *cfg, Seq: seq})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: portal config %s already exists", storage.ErrConflict, cfg.ID)
		}
		return dbError("create portal config", err)
	}
	return nil
}

func (s *PortalConfigStore) GetByID(ctx context.Context, id string) (*domain.PortalConfig, error) {
	var doc portalConfigDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, dbError("get portal config", err)
	}
	return &doc.PortalConfig, nil
}

func (s *PortalConfigStore) GetAll(ctx context.Context) ([]*domain.PortalConfig, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, bySeq)
	if err != nil {
		return nil, dbError("get portal configs", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []portalConfigDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError("decode portal configs", err)
	}

	configs := make([]*domain.PortalConfig, 0, len(docs))
	for i := range docs {
		configs = append(configs, &docs[i].PortalConfig)
	}
	return configs, nil
}

func (s *PortalConfigStore) Update(ctx context.Context, cfg *domain.PortalConfig) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": cfg.ID},
		bson.M{"$set": bson.M{
			"name":        cfg.Name,
			"description": cfg.Description,
			"destination": cfg.Destination,
			"enabled":     cfg.Enabled,
		}},
	)
	if err != nil {
		return dbError("update portal config", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PortalConfigStore) Delete(ctx context.Context, id string) error {
	s.refs.Lock()
	defer s.refs.Unlock()

	n, err := s.portals.CountDocuments(ctx, bson.M{"config_id": id})
	if err != nil {
		return dbError("count portals", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: portal config %s is referenced by %d portal(s)", storage.ErrReferentialConflict, id, n)
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return dbError("delete portal config", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PortalStore implements MongoDB portal storage
type PortalStore struct {
	collection *mongo.Collection
	configs    *mongo.Collection
	seq        *sequence
	refs       *sync.Mutex
}

// checkConfig must be called with refs held
func (s *PortalStore) checkConfig(ctx context.Context, configID string) error {
	n, err := s.configs.CountDocuments(ctx, bson.M{"_id": configID})
	if err != nil {
		return dbError("look up portal config", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: portal config %s does not exist", storage.ErrReferentialConflict, configID)
	}
	return nil
}

func (s *PortalStore) Create(ctx context.Context, portal *domain.Portal) error {
	s.refs.Lock()
	defer s.refs.Unlock()

	if err := s.checkConfig(ctx, portal.ConfigID); err != nil {
		return err
	}

	seq, err := s.seq.next(ctx, "portals")
	if err != nil {
		return err
	}

	_, err = s.collection.InsertOne(ctx, portalDoc{Portal: *portal, Seq: seq})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: portal index %d is already taken", storage.ErrConflict, portal.Index)
		}
		return dbError("create portal", err)
	}
	return nil
}

func (s *PortalStore) GetByID(ctx context.Context, index uint32) (*domain.Portal, error) {
	var doc portalDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": int64(index)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, dbError("get portal", err)
	}
	return &doc.Portal, nil
}

func (s *PortalStore) GetAll(ctx context.Context) ([]*domain.Portal, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, bySeq)
	if err != nil {
		return nil, dbError("get portals", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []portalDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError("decode portals", err)
	}

	portals := make([]*domain.Portal, 0, len(docs))
	for i := range docs {
		portals = append(portals, &docs[i].Portal)
	}
	return portals, nil
}

func (s *PortalStore) Update(ctx context.Context, portal *domain.Portal) error {
	s.refs.Lock()
	defer s.refs.Unlock()

	filter := bson.M{"_id": int64(portal.Index)}
	n, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return dbError("look up portal", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	if err := s.checkConfig(ctx, portal.ConfigID); err != nil {
		return err
	}

	_, err = s.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"frame_block_id":     portal.FrameBlockID,
		"light_with_item_id": portal.LightWithItemID,
		"color_b":            portal.ColorB,
		"color_g":            portal.ColorG,
		"color_r":            portal.ColorR,
		"config_id":          portal.ConfigID,
	}})
	if err != nil {
		return dbError("update portal", err)
	}
	return nil
}

func (s *PortalStore) Delete(ctx context.Context, index uint32) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": int64(index)})
	if err != nil {
		return dbError("delete portal", err)
	}
	if result.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
