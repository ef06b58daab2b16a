package cache

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/echo/pkg/api"
)

// MongoCache is an api.Cache backed by a MongoDB collection. Each entry is
// one document keyed by the cache key.
type MongoCache struct {
	coll *mongo.Collection
}

var _ api.Cache = (*MongoCache)(nil)

type mongoResultDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// NewMongoCache creates a Mongo-backed cache.
// dbName defaults to "echo" if empty, collName defaults to "results".
func NewMongoCache(client *mongo.Client, dbName, collName string) *MongoCache {
	if dbName == "" {
		dbName = "echo"
	}
	if collName == "" {
		collName = "results"
	}
	return &MongoCache{coll: client.Database(dbName).Collection(collName)}
}

func (c *MongoCache) Get(ctx context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	var doc mongoResultDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo find %q: %w", key, err)
	}
	v, err := DecodeValue(doc.Value)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *MongoCache) Set(ctx context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := EncodeValue(value)
	if err != nil {
		return err
	}
	_, err = c.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoResultDoc{Key: key, Value: data},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo upsert %q: %w", key, err)
	}
	return nil
}

func (c *MongoCache) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %q: %w", key, err)
	}
	return nil
}
