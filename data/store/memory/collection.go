// Package memory 提供基于内存的文档集合，适用于开发与测试
package memory

import (
	"context"
	"sort"
	"sync"

	"backoffice/codegen/snowflake"
	"backoffice/data/query"
	"backoffice/data/store"
)

// Collection 内存文档集合，按插入顺序保存文档
type Collection struct {
	name  string
	newID store.IDGenerator

	mu    sync.RWMutex
	docs  map[string]store.Document
	order []string
}

// NewCollection 创建内存集合
func NewCollection(name string) *Collection {
	return &Collection{
		name:  name,
		newID: snowflake.NewString,
		docs:  make(map[string]store.Document),
	}
}

// WithIDGenerator 替换主键生成器（测试中使用确定性 ID）
func (c *Collection) WithIDGenerator(gen store.IDGenerator) *Collection {
	c.newID = gen
	return c
}

func (c *Collection) Name() string { return c.name }

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

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = stored
	return store.Clone(stored), nil
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	matched := make([]store.Document, 0)
	for _, id := range c.order {
		if doc := c.docs[id]; query.Match(pred, doc) {
			matched = append(matched, store.Clone(doc))
		}
	}
	c.mu.RUnlock()

	SortDocuments(matched, opts.Sort)
	return Window(matched, opts.Skip, opts.Limit), nil
}

func (c *Collection) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, doc := range c.docs {
		if query.Match(pred, doc) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	store.Merge(doc, store.Clone(patch))
	doc["id"] = id
	return store.Clone(doc), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return false, nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (c *Collection) SetField(ctx context.Context, id, field string, value any) (store.Document, error) {
	return c.UpdateByID(ctx, id, store.Document{field: value})
}

// SortDocuments 按排序规则稳定排序，bbolt 后端复用
func SortDocuments(docs []store.Document, sorts []query.Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			cmp := query.Compare(docs[i][s.Field], docs[j][s.Field])
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// Window 截取 [skip, skip+limit) 区间，limit <= 0 表示不限
func Window(docs []store.Document, skip, limit int64) []store.Document {
	n := int64(len(docs))
	if skip >= n {
		return []store.Document{}
	}
	if skip < 0 {
		skip = 0
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return docs[skip:end]
}

var _ store.ICollection = (*Collection)(nil)
