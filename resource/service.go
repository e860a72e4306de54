// Package resource 实现六类记录共享的 CRUD 编排
//
// Service 组合仓储、分页、软删除状态机与审计写入：变更先提交到存储，然后
// 计算前后快照的差异并异步派发审计条目。
package resource

import (
	"context"
	"slices"

	"backoffice/audit"
	"backoffice/data/page"
	"backoffice/data/query"
	"backoffice/data/repo"
	"backoffice/data/store"
	"backoffice/domain"
	"backoffice/errors"
)

// IDefaulter 创建前填充默认值
type IDefaulter interface {
	ApplyDefaults()
}

// Service 通用资源服务
type Service[T any] struct {
	repo       *repo.Repository[T]
	entityType audit.EntityType
	audit      *audit.Writer
}

// New 创建资源服务
func New[T any](r *repo.Repository[T], entityType audit.EntityType, w *audit.Writer) *Service[T] {
	return &Service[T]{
		repo:       r,
		entityType: entityType,
		audit:      w,
	}
}

// Repository 底层仓储
func (s *Service[T]) Repository() *repo.Repository[T] { return s.repo }

// EntityType 审计实体类别
func (s *Service[T]) EntityType() audit.EntityType { return s.entityType }

// Prepare 填充默认值并校验
func (s *Service[T]) Prepare(entity *T) error {
	if d, ok := any(entity).(IDefaulter); ok {
		d.ApplyDefaults()
	}
	if v, ok := any(entity).(domain.IValidatable); ok {
		return v.Validate()
	}
	return nil
}

// Create 创建记录并审计 CREATE
func (s *Service[T]) Create(ctx context.Context, actor audit.ActorContext, entity *T) (*T, error) {
	if err := s.Prepare(entity); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, actor, audit.ActionCreate, created, nil, created)
	return created, nil
}

// FindAll 按过滤条件查询全部匹配记录
func (s *Service[T]) FindAll(ctx context.Context, f query.Filter) ([]*T, error) {
	return s.repo.FindAll(ctx, f)
}

// FindAllPaginated 分页查询
func (s *Service[T]) FindAllPaginated(ctx context.Context, f query.Filter, req page.Request) (*page.Response[*T], error) {
	return s.repo.FindAllPaginated(ctx, f, req)
}

// FindByID 按 id 查询
func (s *Service[T]) FindByID(ctx context.Context, id string, includeDeleted bool) (*T, error) {
	return s.repo.FindByID(ctx, id, includeDeleted)
}

// Update 部分更新并审计 UPDATE
//
// patch 与当前记录合并后整体校验；未知字段被忽略，null 表示清除字段。
func (s *Service[T]) Update(ctx context.Context, actor audit.ActorContext, id string, patch store.Document) (*T, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	typed, err := s.MergePatch(current, patch)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, id, typed)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, actor, audit.ActionUpdate, updated, current, updated)
	return updated, nil
}

// SoftDelete 软删除并审计 DELETE
func (s *Service[T]) SoftDelete(ctx context.Context, actor audit.ActorContext, id string) (*T, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, actor, audit.ActionDelete, current, current, nil)
	return deleted, nil
}

// HardDelete 物理删除并审计 DELETE
func (s *Service[T]) HardDelete(ctx context.Context, actor audit.ActorContext, id string) error {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return err
	}
	if err := s.repo.HardDelete(ctx, id); err != nil {
		return err
	}
	s.dispatch(ctx, actor, audit.ActionDelete, current, current, nil)
	return nil
}

// Restore 恢复软删除的记录；原本已删除时审计为 UPDATE
func (s *Service[T]) Restore(ctx context.Context, actor audit.ActorContext, id string) (*T, error) {
	current, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if repo.StateOf(asSoftDeletable(current)) == repo.StateDeleted {
		s.dispatch(ctx, actor, audit.ActionUpdate, restored, current, restored)
	}
	return restored, nil
}

// MergePatch 把 patch 合并到当前记录并校验，返回按实体字段类型规范化后的 patch
func (s *Service[T]) MergePatch(current *T, patch store.Document) (store.Document, error) {
	base, err := store.Encode(current)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "编码当前记录失败")
	}
	merged := store.Clone(base)
	for k, v := range patch {
		if isProtected(k) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	var next T
	if err := store.Decode(merged, &next); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeValidation, "请求字段类型不正确")
	}
	if v, ok := any(&next).(domain.IValidatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	encoded, err := store.Encode(&next)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "编码更新记录失败")
	}

	typed := make(store.Document, len(patch))
	for k := range patch {
		if isProtected(k) {
			continue
		}
		if v, ok := encoded[k]; ok {
			typed[k] = v
		} else if _, existed := base[k]; existed {
			typed[k] = nil
		}
	}
	return typed, nil
}

func (s *Service[T]) dispatch(ctx context.Context, actor audit.ActorContext, action audit.Action, subject, before, after *T) {
	if s.audit == nil {
		return
	}
	rec := audit.Record{
		Actor:      actor,
		Action:     action,
		EntityType: s.entityType,
		EntityID:   entityID(subject),
	}
	if before != nil {
		rec.OldData = audit.SnapshotOf(before)
	}
	if after != nil {
		rec.NewData = audit.SnapshotOf(after)
	}
	if action == audit.ActionUpdate {
		rec.Changes = audit.Diff(rec.OldData, rec.NewData)
		if _, had := rec.OldData[domain.FieldDeletedAt]; had {
			if _, has := rec.NewData[domain.FieldDeletedAt]; !has {
				rec.Changes = append(rec.Changes, domain.FieldDeletedAt)
				slices.Sort(rec.Changes)
			}
		}
	}
	s.audit.Dispatch(ctx, rec)
}

func entityID(entity any) string {
	if o, ok := entity.(domain.IObject); ok {
		return o.GetID()
	}
	return ""
}

func asSoftDeletable(entity any) domain.ISoftDeletable {
	if sd, ok := entity.(domain.ISoftDeletable); ok {
		return sd
	}
	return nil
}

func isProtected(field string) bool {
	return slices.Contains(domain.ProtectedFields, field)
}
