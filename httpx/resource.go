package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"backoffice/audit"
	"backoffice/auth"
	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/domain"
	"backoffice/errors"
	"backoffice/model"
	"backoffice/resource"
)

// FilterParser 把查询字符串解析为通用过滤条件
type FilterParser func(url.Values) (query.Filter, error)

// Filters 把 model.ParseXFilter 适配为 FilterParser
func Filters[F interface{ Query() query.Filter }](parse func(url.Values) (F, error)) FilterParser {
	return func(values url.Values) (query.Filter, error) {
		f, err := parse(values)
		if err != nil {
			return query.Filter{}, err
		}
		return f.Query(), nil
	}
}

// Resource 一类记录的标准路由
type Resource[T any] struct {
	name     string
	priority int
	svc      *resource.Service[T]
	filters  FilterParser

	// 可选的创建与更新实现，未设置时使用通用服务
	create func(ctx context.Context, actor audit.ActorContext, r *http.Request) (*T, error)
	update func(ctx context.Context, actor audit.ActorContext, id string, patch store.Document) (*T, error)
	// 记录变更后的回调，例如清除缓存
	changed func(id string)
	extra   func(chi.Router)
	// 路径参数名，GET /{segment}/{param} 按同名查询参数过滤列表
	listBy []string
}

// ResourceOption 资源路由选项
type ResourceOption[T any] func(*Resource[T])

// WithCreate 替换创建逻辑
func WithCreate[T any](fn func(ctx context.Context, actor audit.ActorContext, r *http.Request) (*T, error)) ResourceOption[T] {
	return func(res *Resource[T]) { res.create = fn }
}

// WithUpdate 替换更新逻辑
func WithUpdate[T any](fn func(ctx context.Context, actor audit.ActorContext, id string, patch store.Document) (*T, error)) ResourceOption[T] {
	return func(res *Resource[T]) { res.update = fn }
}

// OnChange 记录被更新或删除后调用
func OnChange[T any](fn func(id string)) ResourceOption[T] {
	return func(res *Resource[T]) { res.changed = fn }
}

// WithRoutes 在 /{id} 之外挂载额外路由
func WithRoutes[T any](fn func(chi.Router)) ResourceOption[T] {
	return func(res *Resource[T]) { res.extra = fn }
}

// WithListBy 挂载 GET /{segment}/{param}，等价于 GET /?param=值
func WithListBy[T any](segment, param string) ResourceOption[T] {
	return func(res *Resource[T]) { res.listBy = append(res.listBy, segment, param) }
}

// NewResource 创建资源路由，name 同时作为路径段
func NewResource[T any](name string, priority int, svc *resource.Service[T], filters FilterParser, opts ...ResourceOption[T]) *Resource[T] {
	res := &Resource[T]{name: name, priority: priority, svc: svc, filters: filters}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (res *Resource[T]) GetName() string  { return res.name }
func (res *Resource[T]) GetPriority() int { return res.priority }

// RegisterRoutes 挂载 /{name} 下的 CRUD 路由
func (res *Resource[T]) RegisterRoutes(r chi.Router) {
	r.Route("/"+res.name, func(r chi.Router) {
		r.Post("/", res.handleCreate)
		r.Get("/", res.handleList)
		r.Get("/paginated", res.handlePaginated)
		for i := 0; i+1 < len(res.listBy); i += 2 {
			param := res.listBy[i+1]
			r.Get("/"+res.listBy[i]+"/{"+param+"}", res.handleListBy(param))
		}
		if res.extra != nil {
			res.extra(r)
		}
		r.Get("/{id}", res.handleGet)
		r.Patch("/{id}", res.handleUpdate)
		r.Delete("/{id}", res.handleSoftDelete)
		r.Delete("/{id}/hard", res.handleHardDelete)
		r.Patch("/{id}/restore", res.handleRestore)
	})
}

func (res *Resource[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := auth.ActorFrom(ctx)

	var created *T
	var err error
	if res.create != nil {
		created, err = res.create(ctx, actor, r)
	} else {
		var entity *T
		if entity, err = decodeEntity[T](r); err == nil {
			created, err = res.svc.Create(ctx, actor, entity)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, present(created))
}

func (res *Resource[T]) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := res.filters(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := res.svc.FindAll(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentAll(items))
}

// handleListBy 把路径参数并入查询参数后按普通列表处理
func (res *Resource[T]) handleListBy(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		values.Set(param, chi.URLParam(r, param))
		u := *r.URL
		u.RawQuery = values.Encode()
		scoped := r.WithContext(r.Context())
		scoped.URL = &u
		res.handleList(w, scoped)
	}
}

func (res *Resource[T]) handlePaginated(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	f, err := res.filters(values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := model.ParsePage(values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := res.svc.FindAllPaginated(r.Context(), f, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page.Map(resp, func(item *T) any { return present(item) }))
}

func (res *Resource[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	includeDeleted, err := includeDeletedParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity, err := res.svc.FindByID(r.Context(), chi.URLParam(r, "id"), includeDeleted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present(entity))
}

func (res *Resource[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	patch, err := decodeDocument(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var updated *T
	if res.update != nil {
		updated, err = res.update(ctx, auth.ActorFrom(ctx), id, patch)
	} else {
		updated, err = res.svc.Update(ctx, auth.ActorFrom(ctx), id, patch)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	res.notify(id)
	writeJSON(w, http.StatusOK, present(updated))
}

func (res *Resource[T]) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := res.svc.SoftDelete(ctx, auth.ActorFrom(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}
	res.notify(id)
	w.WriteHeader(http.StatusNoContent)
}

func (res *Resource[T]) handleHardDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := res.svc.HardDelete(ctx, auth.ActorFrom(ctx), id); err != nil {
		writeError(w, r, err)
		return
	}
	res.notify(id)
	w.WriteHeader(http.StatusNoContent)
}

func (res *Resource[T]) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	restored, err := res.svc.Restore(ctx, auth.ActorFrom(ctx), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res.notify(id)
	writeJSON(w, http.StatusOK, present(restored))
}

func (res *Resource[T]) notify(id string) {
	if res.changed != nil {
		res.changed(id)
	}
}

// decodeEntity 读取创建请求体，忽略客户端提供的 id 与时间戳
func decodeEntity[T any](r *http.Request) (*T, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	for _, f := range domain.ProtectedFields {
		delete(doc, f)
	}
	var entity T
	if err := store.Decode(doc, &entity); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeValidation, "请求字段类型不正确")
	}
	return &entity, nil
}

func includeDeletedParam(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("includeDeleted")
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewError(errors.ErrCodeValidation, "includeDeleted 必须是布尔值").WithContext("field", "includeDeleted")
	}
	return b, nil
}
