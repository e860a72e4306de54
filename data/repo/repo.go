// Package repo 提供按实体类型参数化的通用仓储
//
// 所有实体共享同一套实现：过滤条件经 query.Translate 翻译为谓词，分页由
// page.Paginate 完成，软删除生命周期见 softdelete.go。
package repo

import (
	"context"
	"time"

	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/domain"
	"backoffice/errors"
)

// Repository 通用仓储，T 为带 json 标签、嵌入 domain.Entity 的实体结构体
type Repository[T any] struct {
	coll store.ICollection
	sort []query.Sort
	now  func() time.Time
}

// Option 仓储选项
type Option func(*options)

type options struct {
	sort []query.Sort
	now  func() time.Time
}

// WithSort 覆盖默认排序（创建时间倒序）
func WithSort(sorts ...query.Sort) Option {
	return func(o *options) { o.sort = sorts }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New 创建仓储
func New[T any](coll store.ICollection, opts ...Option) *Repository[T] {
	o := options{sort: []query.Sort{query.NewestFirst}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{coll: coll, sort: o.sort, now: o.now}
}

// Collection 底层集合
func (r *Repository[T]) Collection() store.ICollection { return r.coll }

// Now 仓储时钟的当前时间（UTC）
func (r *Repository[T]) Now() time.Time { return r.now().UTC() }

// Create 插入实体，填充时间戳；新记录总是有效状态
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	doc, err := store.Encode(entity)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "编码实体失败")
	}
	now := r.Now()
	delete(doc, domain.FieldDeletedAt)
	if id, _ := doc[domain.FieldID].(string); id == "" {
		delete(doc, domain.FieldID)
	}
	if t, ok := doc[domain.FieldCreatedAt].(time.Time); !ok || t.IsZero() {
		doc[domain.FieldCreatedAt] = now
	}
	doc[domain.FieldUpdatedAt] = now

	inserted, err := r.coll.Insert(ctx, doc)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "创建 "+r.coll.Name())
	}
	return r.Decode(inserted)
}

// FindAll 返回所有匹配记录，按仓储排序
func (r *Repository[T]) FindAll(ctx context.Context, f query.Filter) ([]*T, error) {
	docs, err := r.coll.FindMany(ctx, query.Translate(f), store.FindOptions{Sort: r.sort})
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "查询 "+r.coll.Name())
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		entity, err := r.Decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// FindAllPaginated 分页查询
func (r *Repository[T]) FindAllPaginated(ctx context.Context, f query.Filter, req page.Request) (*page.Response[*T], error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return page.Paginate(ctx, r.coll, query.Translate(f), req, r.sort, r.Decode)
}

// FindByID 按 id 查询；includeDeleted 为 false 时已软删除的记录视为不存在
func (r *Repository[T]) FindByID(ctx context.Context, id string, includeDeleted bool) (*T, error) {
	pred := query.ByID(id)
	if !includeDeleted {
		pred = pred.And(query.NotExists(domain.FieldDeletedAt))
	}
	return r.FindOne(ctx, pred)
}

// FindOne 返回第一个匹配谓词的记录
func (r *Repository[T]) FindOne(ctx context.Context, pred query.Predicate) (*T, error) {
	doc, err := r.coll.FindOne(ctx, pred)
	if err != nil {
		return nil, r.notFoundOr(ctx, err, "查询 "+r.coll.Name())
	}
	return r.Decode(doc)
}

// Count 统计匹配过滤条件的记录数
func (r *Repository[T]) Count(ctx context.Context, f query.Filter) (int64, error) {
	n, err := r.coll.Count(ctx, query.Translate(f))
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "统计 "+r.coll.Name())
	}
	return n, nil
}

// Update 合并部分字段；受保护字段被忽略，updatedAt 自动刷新
//
// 与查询不同，更新不区分软删除状态。
func (r *Repository[T]) Update(ctx context.Context, id string, patch store.Document) (*T, error) {
	clean := make(store.Document, len(patch)+1)
	for k, v := range patch {
		clean[k] = v
	}
	for _, f := range domain.ProtectedFields {
		delete(clean, f)
	}
	clean[domain.FieldUpdatedAt] = r.Now()

	doc, err := r.coll.UpdateByID(ctx, id, clean)
	if err != nil {
		return nil, r.notFoundOr(ctx, err, "更新 "+r.coll.Name())
	}
	return r.Decode(doc)
}

// Decode 文档转实体
func (r *Repository[T]) Decode(doc store.Document) (*T, error) {
	var entity T
	if err := store.Decode(doc, &entity); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "解码 "+r.coll.Name()+" 失败")
	}
	return &entity, nil
}

func (r *Repository[T]) notFoundOr(ctx context.Context, err error, operation string) error {
	if errors.IsNotFound(err) {
		return errors.Errorf(errors.ErrCodeNotFound, "%s 记录不存在", r.coll.Name())
	}
	return errors.WrapDatabaseError(ctx, err, operation)
}
