// Package mongo 在 MongoDB 上实现文档集合
package mongo

import (
	"context"
	stdErrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backoffice/data/query"
	"backoffice/data/store"
)

// Connect 建立客户端连接并做一次 ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return client, nil
}

// Collection MongoDB 文档集合
type Collection struct {
	coll *mongo.Collection
}

// NewCollection 包装数据库中的集合，并为 createdAt 建索引
func NewCollection(ctx context.Context, database *mongo.Database, name string) (*Collection, error) {
	coll := database.Collection(name)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	if err != nil {
		return nil, fmt.Errorf("mongo: create index on %s: %w", name, err)
	}
	return &Collection{coll: coll}, nil
}

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	stored := store.Clone(doc)
	id, _ := stored["id"].(string)
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	delete(stored, "id")
	stored["_id"] = id
	if _, err := c.coll.InsertOne(ctx, bson.M(stored)); err != nil {
		return nil, err
	}
	return fromBSON(stored), nil
}

func (c *Collection) FindOne(ctx context.Context, pred query.Predicate) (store.Document, error) {
	filter, err := filterDoc(pred)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	err = c.coll.FindOne(ctx, filter).Decode(&raw)
	if stdErrors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (c *Collection) FindMany(ctx context.Context, pred query.Predicate, opts store.FindOptions) ([]store.Document, error) {
	filter, err := filterDoc(pred)
	if err != nil {
		return nil, err
	}
	findOpts := options.Find().SetSort(sortDoc(opts.Sort))
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	cursor, err := c.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}

func (c *Collection) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	filter, err := filterDoc(pred)
	if err != nil {
		return 0, err
	}
	return c.coll.CountDocuments(ctx, filter)
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch store.Document) (store.Document, error) {
	update := updateDoc(patch)
	if len(update) == 0 {
		return c.FindOne(ctx, query.ByID(id))
	}
	var raw bson.M
	err := c.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&raw)
	if stdErrors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (c *Collection) SetField(ctx context.Context, id, field string, value any) (store.Document, error) {
	return c.UpdateByID(ctx, id, store.Document{field: value})
}

var _ store.ICollection = (*Collection)(nil)
