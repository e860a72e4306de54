// Package domain 定义后台记录实体共享的基础字段与接口
package domain

import "time"

// IObject 最基础的对象接口
type IObject interface {
	GetID() string
}

// ISoftDeletable 软删除接口，DeletedAt 为 nil 表示记录仍然有效
type ISoftDeletable interface {
	GetDeletedAt() *time.Time
	IsDeleted() bool
}

// IValidatable 可验证接口
type IValidatable interface {
	Validate() error
}

// IRedactable 可脱敏接口；返回的字段不会出现在审计快照中
type IRedactable interface {
	RedactedFields() []string
}

// Entity 通用实体字段（用于嵌入）
type Entity struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (e *Entity) GetID() string            { return e.ID }
func (e *Entity) GetDeletedAt() *time.Time { return e.DeletedAt }
func (e *Entity) IsDeleted() bool          { return e.DeletedAt != nil }

// 基础字段名，对应存储文档中的键
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldDeletedAt = "deletedAt"
)

// ProtectedFields 不允许通过部分更新修改的字段
var ProtectedFields = []string{FieldID, FieldCreatedAt, FieldUpdatedAt, FieldDeletedAt}
