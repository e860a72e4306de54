// Package store 定义实体存储的集合抽象
//
// 每种实体对应一个文档集合，文档为字段名到值的映射。具体后端见
// memory、sqlite、bolt、mongo 子包。
package store

import (
	"context"

	"backoffice/data/query"
	"backoffice/errors"
)

// Document 存储文档
type Document = map[string]any

// ErrNotFound 目标文档不存在
var ErrNotFound = errors.NewError(errors.ErrCodeNotFound, "文档不存在")

// FindOptions 批量查询选项，Limit <= 0 表示不限制
type FindOptions struct {
	Skip  int64
	Limit int64
	Sort  []query.Sort
}

// ICollection 文档集合接口
type ICollection interface {
	// Name 集合名称
	Name() string

	// Insert 插入文档；id 为空时由后端生成，返回带 id 的文档
	Insert(ctx context.Context, doc Document) (Document, error)

	// FindOne 返回第一个匹配的文档，不存在时返回 ErrNotFound
	FindOne(ctx context.Context, pred query.Predicate) (Document, error)

	// FindMany 按谓词、排序、偏移与数量查询
	FindMany(ctx context.Context, pred query.Predicate, opts FindOptions) ([]Document, error)

	// Count 统计匹配数量
	Count(ctx context.Context, pred query.Predicate) (int64, error)

	// UpdateByID 合并部分字段，返回更新后的文档
	UpdateByID(ctx context.Context, id string, patch Document) (Document, error)

	// DeleteByID 物理删除，返回是否删除了文档
	DeleteByID(ctx context.Context, id string) (bool, error)

	// SetField 设置单个字段，value 为 nil 时移除该字段
	SetField(ctx context.Context, id, field string, value any) (Document, error)
}

// IDGenerator 文档主键生成器
type IDGenerator func() string

// Clone 浅拷贝文档，数组字段单独复制
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if items, ok := v.([]any); ok {
			v = append([]any(nil), items...)
		}
		out[k] = v
	}
	return out
}

// Merge 把 patch 合并进 doc，nil 值表示移除字段
func Merge(doc, patch Document) {
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
}
