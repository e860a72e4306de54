// Package page 在谓词结果集之上实现 offset/limit 分页
package page

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Request 分页请求
type Request struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// WithDefaults 零值字段填充默认值
func (r Request) WithDefaults() Request {
	if r.Page == 0 {
		r.Page = DefaultPage
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Validate 检查 page >= 1 且 limit ∈ [1, 100]
func (r Request) Validate() error {
	if r.Page < 1 {
		return errors.NewError(errors.ErrCodeValidation, "page 必须大于等于 1").WithContext("field", "page")
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return errors.NewError(errors.ErrCodeValidation, "limit 必须在 1 到 100 之间").WithContext("field", "limit")
	}
	return nil
}

// Skip 起始偏移
func (r Request) Skip() int64 {
	if r.Page < 1 {
		return 0
	}
	return int64(r.Page-1) * int64(r.Limit)
}

// Response 分页响应信封
type Response[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewResponse 依据总数计算导航字段
func NewResponse[T any](data []T, total int64, req Request) *Response[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}
	return &Response[T]{
		Data:       data,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}
}

// Map 转换数据项类型，导航字段不变
func Map[T, U any](r *Response[T], fn func(T) U) *Response[U] {
	out := make([]U, len(r.Data))
	for i, item := range r.Data {
		out[i] = fn(item)
	}
	return &Response[U]{
		Data: out, Total: r.Total, Page: r.Page, Limit: r.Limit,
		TotalPages: r.TotalPages, HasNext: r.HasNext, HasPrev: r.HasPrev,
	}
}

// Paginate 查询一页数据并独立统计总数
//
// 数据与总数并发获取；total 是谓词匹配的未分页数量，与本页条数无固定关系。
func Paginate[T any](
	ctx context.Context,
	coll store.ICollection,
	pred query.Predicate,
	req Request,
	sort []query.Sort,
	decode func(store.Document) (T, error),
) (*Response[T], error) {
	var (
		docs  []store.Document
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = coll.FindMany(gctx, pred, store.FindOptions{Skip: req.Skip(), Limit: int64(req.Limit), Sort: sort})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = coll.Count(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "分页查询 "+coll.Name())
	}

	data := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeInternal, "解码文档失败")
		}
		data = append(data, item)
	}
	return NewResponse(data, total, req), nil
}
