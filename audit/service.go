package audit

import (
	"context"
	"time"

	"backoffice/data/page"
	"backoffice/data/query"
)

// Service 审计日志只读查询，结果均按创建时间倒序
type Service struct {
	store *Store
}

// NewService 创建查询服务
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// FindAll 按过滤条件列出
func (s *Service) FindAll(ctx context.Context, f LogFilter) ([]*Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, query.Translate(f.Query()))
}

// FindAllPaginated 按过滤条件分页列出
func (s *Service) FindAllPaginated(ctx context.Context, f LogFilter, req page.Request) (*page.Response[*Entry], error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.Paginate(ctx, query.Translate(f.Query()), req)
}

// FindByID 按条目 id 查询，不存在时返回 NotFound
func (s *Service) FindByID(ctx context.Context, id string) (*Entry, error) {
	return s.store.Get(ctx, id)
}

// FindByEntityID 某条记录的全部历史
func (s *Service) FindByEntityID(ctx context.Context, entityID string) ([]*Entry, error) {
	return s.FindAll(ctx, LogFilter{EntityID: entityID})
}

// FindByUserID 某用户的全部操作
func (s *Service) FindByUserID(ctx context.Context, userID string) ([]*Entry, error) {
	return s.FindAll(ctx, LogFilter{UserID: userID})
}

// FindByEntityType 某类实体的全部变更
func (s *Service) FindByEntityType(ctx context.Context, entityType EntityType) ([]*Entry, error) {
	return s.FindAll(ctx, LogFilter{EntityType: entityType})
}

// FindByDateRange 创建时间落在 [start, end] 内的条目
func (s *Service) FindByDateRange(ctx context.Context, start, end time.Time) ([]*Entry, error) {
	return s.FindAll(ctx, LogFilter{Start: &start, End: &end})
}
