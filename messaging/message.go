// Package messaging 提供进程内外的消息投递抽象
//
// 审计日志等“发出即忘”的副作用通过 Transport 投递，写入失败不会影响发布方。
package messaging

import (
	"encoding/json"
	"time"
)

// IMessage 消息接口
type IMessage interface {
	GetID() string
	GetType() string
	GetTimestamp() time.Time
	GetPayload() any
	GetMetadata() map[string]any
}

// Message 消息基础实现
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   any            `json:"payload"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (m *Message) GetID() string           { return m.ID }
func (m *Message) GetType() string         { return m.Type }
func (m *Message) GetTimestamp() time.Time { return m.Timestamp }
func (m *Message) GetPayload() any         { return m.Payload }

// GetMetadata 获取元数据，必要时初始化
func (m *Message) GetMetadata() map[string]any {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	return m.Metadata
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key string, value any) {
	m.GetMetadata()[key] = value
}

// NewMessage 创建新消息
func NewMessage(id, messageType string, payload any) *Message {
	return &Message{
		ID:        id,
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
		Metadata:  make(map[string]any),
	}
}

// DecodePayload 把消息负载解码到 out
//
// 进程内传输保留原始负载类型；跨进程传输解码后负载为通用 JSON 结构，
// 两种情况都经 JSON 转换到目标类型。
func DecodePayload(message IMessage, out any) error {
	raw, err := json.Marshal(message.GetPayload())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
