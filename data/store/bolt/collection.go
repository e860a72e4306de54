// Package bolt 在 bbolt 上实现文档集合
//
// 每个集合一个 bucket，键为文档 id，值为 JSON。bbolt 没有二级索引，
// 查询在只读事务内逐条求值谓词，适合中小规模的单机部署。
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"backoffice/codegen/snowflake"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/data/store/memory"
)

// Open 打开（或创建）bbolt 数据文件
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	return db, nil
}

// Collection bbolt 文档集合
type Collection struct {
	db     *bolt.DB
	bucket []byte
	newID  store.IDGenerator
}

// NewCollection 创建集合并确保 bucket 存在
func NewCollection(db *bolt.DB, name string) (*Collection, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return &Collection{db: db, bucket: []byte(name), newID: snowflake.NewString}, nil
}

func (c *Collection) Name() string { return string(c.bucket) }

func (c *Collection) Insert(ctx context.Context, doc store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := store.Clone(doc)
	id, _ := stored["id"].(string)
	if id == "" {
		id = c.newID()
		stored["id"] = id
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (c *Collection) FindOne(ctx context.Context, pred query.Predicate) (store.Document, error) {
	docs, err := c.FindMany(ctx, pred, store.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}
	return docs[0], nil
}

func (c *Collection) FindMany(ctx context.Context, pred query.Predicate, opts store.FindOptions) ([]store.Document, error) {
	matched, err := c.scan(ctx, pred)
	if err != nil {
		return nil, err
	}
	memory.SortDocuments(matched, opts.Sort)
	return memory.Window(matched, opts.Skip, opts.Limit), nil
}

func (c *Collection) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	matched, err := c.scan(ctx, pred)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var updated []byte
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(c.bucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return store.ErrNotFound
		}
		doc, err := decode(data)
		if err != nil {
			return err
		}
		store.Merge(doc, patch)
		doc["id"] = id
		updated, err = json.Marshal(doc)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), updated)
	})
	if err != nil {
		return nil, err
	}
	return decode(updated)
}

func (c *Collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	deleted := false
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(c.bucket)
		if bucket.Get([]byte(id)) == nil {
			return nil
		}
		deleted = true
		return bucket.Delete([]byte(id))
	})
	return deleted, err
}

func (c *Collection) SetField(ctx context.Context, id, field string, value any) (store.Document, error) {
	return c.UpdateByID(ctx, id, store.Document{field: value})
}

func (c *Collection) scan(ctx context.Context, pred query.Predicate) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := make([]store.Document, 0)
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).ForEach(func(_, v []byte) error {
			doc, err := decode(v)
			if err != nil {
				return err
			}
			if query.Match(pred, doc) {
				matched = append(matched, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func decode(data []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

var _ store.ICollection = (*Collection)(nil)
