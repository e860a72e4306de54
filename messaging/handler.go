package messaging

import "context"

// IMessageHandler 消息处理器接口
type IMessageHandler interface {
	// Handle 处理消息
	Handle(ctx context.Context, message IMessage) error

	// Type 处理器名称（用于日志）
	Type() string
}

// HandlerFunc 处理函数
type HandlerFunc func(ctx context.Context, message IMessage) error

type funcHandler struct {
	name string
	fn   HandlerFunc
}

func (h *funcHandler) Handle(ctx context.Context, message IMessage) error { return h.fn(ctx, message) }
func (h *funcHandler) Type() string                                        { return h.name }

// NewHandler 把函数包装为具名处理器
func NewHandler(name string, fn HandlerFunc) IMessageHandler {
	return &funcHandler{name: name, fn: fn}
}

// Handlers 按消息类型收集处理器，"*" 订阅全部类型
//
// 各传输实现共享同一份订阅表逻辑。调用方负责加锁。
type Handlers map[string][]IMessageHandler

// Add 添加处理器
func (h Handlers) Add(messageType string, handler IMessageHandler) {
	h[messageType] = append(h[messageType], handler)
}

// Remove 移除处理器，返回是否找到
func (h Handlers) Remove(messageType string, handler IMessageHandler) bool {
	handlers := h[messageType]
	for i, existing := range handlers {
		if existing == handler {
			h[messageType] = append(handlers[:i:i], handlers[i+1:]...)
			return true
		}
	}
	return false
}

// For 返回某消息类型的处理器副本（精确匹配在前，通配符在后）
func (h Handlers) For(messageType string) []IMessageHandler {
	exact := h[messageType]
	wildcard := h["*"]
	out := make([]IMessageHandler, 0, len(exact)+len(wildcard))
	out = append(out, exact...)
	if messageType != "*" {
		out = append(out, wildcard...)
	}
	return out
}

// Stats 汇总订阅信息
func (h Handlers) Stats() (count int, types []string) {
	types = make([]string, 0, len(h))
	for mt, hs := range h {
		count += len(hs)
		types = append(types, mt)
	}
	return count, types
}
