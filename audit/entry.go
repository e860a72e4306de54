// Package audit 记录谁在何时对哪条记录做了什么修改
//
// 审计子系统只依赖快照（map[string]any），与具体实体类型解耦。资源服务在变更
// 提交后调用 Writer.Dispatch，条目经消息传输异步写入审计集合。
package audit

import (
	"time"

	"backoffice/errors"
)

// Action 审计动作
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid 是否为已知动作
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// EntityType 被审计的实体类别
type EntityType string

const (
	EntityNote           EntityType = "Note"
	EntityProject        EntityType = "Project"
	EntityClientCharge   EntityType = "ClientCharge"
	EntityPartnerPayment EntityType = "PartnerPayment"
	EntityPartner        EntityType = "Partner"
	EntityUser           EntityType = "User"
)

// EntityTypes 全部实体类别
var EntityTypes = []EntityType{
	EntityNote, EntityProject, EntityClientCharge, EntityPartnerPayment, EntityPartner, EntityUser,
}

// Valid 是否为已知实体类别
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Snapshot 实体在某一时刻的无模式快照
type Snapshot = map[string]any

// Entry 审计条目，写入后不可修改
type Entry struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Action     Action     `json:"action"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	OldData    Snapshot   `json:"oldData,omitempty"`
	NewData    Snapshot   `json:"newData,omitempty"`
	Changes    []string   `json:"changes,omitempty"`
	IPAddress  string     `json:"ipAddress,omitempty"`
	UserAgent  string     `json:"userAgent,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ActorContext 发起变更的请求方
type ActorContext struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// Authenticated 是否存在已认证用户
func (a ActorContext) Authenticated() bool { return a.UserID != "" }

// Record 一次待审计的变更
type Record struct {
	Actor      ActorContext
	Action     Action
	EntityType EntityType
	EntityID   string
	OldData    Snapshot
	NewData    Snapshot
	Changes    []string
}

// ErrNoActor 未认证请求不产生审计条目
var ErrNoActor = errors.NewError(errors.ErrCodeUnauthorized, "审计记录缺少操作者")

func (r Record) entry(id string, now time.Time) *Entry {
	return &Entry{
		ID:         id,
		UserID:     r.Actor.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		OldData:    r.OldData,
		NewData:    r.NewData,
		Changes:    r.Changes,
		IPAddress:  r.Actor.IPAddress,
		UserAgent:  r.Actor.UserAgent,
		CreatedAt:  now.UTC(),
	}
}
