package repo

import (
	"context"

	"backoffice/data/query"
	"backoffice/domain"
	"backoffice/errors"
)

// State 软删除生命周期状态
type State string

const (
	StateLive    State = "live"
	StateDeleted State = "deleted"
	StatePurged  State = "purged"
)

// StateOf 实体当前状态；nil 表示记录已被物理删除
func StateOf(e domain.ISoftDeletable) State {
	if e == nil {
		return StatePurged
	}
	if e.IsDeleted() {
		return StateDeleted
	}
	return StateLive
}

// SoftDelete Live|Deleted -> Deleted
//
// 已软删除的记录同样会被找到，deletedAt 被重新设置；id 不存在时返回 NotFound。
func (r *Repository[T]) SoftDelete(ctx context.Context, id string) (*T, error) {
	doc, err := r.coll.SetField(ctx, id, domain.FieldDeletedAt, r.Now())
	if err != nil {
		return nil, r.notFoundOr(ctx, err, "软删除 "+r.coll.Name())
	}
	return r.Decode(doc)
}

// Restore Deleted|Live -> Live，对有效记录是无副作用的成功
func (r *Repository[T]) Restore(ctx context.Context, id string) (*T, error) {
	doc, err := r.coll.SetField(ctx, id, domain.FieldDeletedAt, nil)
	if err != nil {
		return nil, r.notFoundOr(ctx, err, "恢复 "+r.coll.Name())
	}
	return r.Decode(doc)
}

// HardDelete Live|Deleted -> Purged，不可逆；重复调用返回 NotFound
func (r *Repository[T]) HardDelete(ctx context.Context, id string) error {
	deleted, err := r.coll.DeleteByID(ctx, id)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "删除 "+r.coll.Name())
	}
	if !deleted {
		return errors.Errorf(errors.ErrCodeNotFound, "%s 记录不存在", r.coll.Name())
	}
	return nil
}

// Exists id 是否存在（不区分软删除状态）
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.coll.Count(ctx, query.ByID(id))
	if err != nil {
		return false, errors.WrapDatabaseError(ctx, err, "查询 "+r.coll.Name())
	}
	return n > 0, nil
}
