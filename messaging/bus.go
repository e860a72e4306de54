package messaging

import (
	"context"
	"fmt"
	"sync"
)

// IMiddleware 发布链中间件
type IMiddleware interface {
	Handle(ctx context.Context, message IMessage, next HandlerFunc) error
	Name() string
}

// MiddlewareFunc 函数式中间件
type MiddlewareFunc func(ctx context.Context, message IMessage, next HandlerFunc) error

type namedMiddleware struct {
	name string
	fn   MiddlewareFunc
}

func (m *namedMiddleware) Handle(ctx context.Context, message IMessage, next HandlerFunc) error {
	return m.fn(ctx, message, next)
}
func (m *namedMiddleware) Name() string { return m.name }

// NewMiddleware 包装函数式中间件
func NewMiddleware(name string, fn MiddlewareFunc) IMiddleware {
	return &namedMiddleware{name: name, fn: fn}
}

// MessageBus 在 Transport 之上执行发布中间件
type MessageBus struct {
	transport   Transport
	middlewares []IMiddleware
	mutex       sync.RWMutex
}

// NewMessageBus 创建消息总线
func NewMessageBus(transport Transport) *MessageBus {
	return &MessageBus{transport: transport}
}

// Transport 底层传输
func (bus *MessageBus) Transport() Transport { return bus.transport }

// Use 注册中间件，按注册顺序由外到内执行
func (bus *MessageBus) Use(middleware IMiddleware) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.middlewares = append(bus.middlewares, middleware)
}

// Subscribe 订阅消息处理器
func (bus *MessageBus) Subscribe(messageType string, handler IMessageHandler) error {
	return bus.transport.Subscribe(messageType, handler)
}

// Publish 执行中间件后交给 Transport
func (bus *MessageBus) Publish(ctx context.Context, message IMessage) error {
	return bus.chain(func(ctx context.Context, msg IMessage) error {
		return bus.transport.Publish(ctx, msg)
	})(ctx, message)
}

// PublishAll 逐条执行中间件，最后批量交给 Transport
func (bus *MessageBus) PublishAll(ctx context.Context, messages []IMessage) error {
	if len(messages) == 0 {
		return nil
	}
	batched := make([]IMessage, 0, len(messages))
	collect := bus.chain(func(ctx context.Context, msg IMessage) error {
		batched = append(batched, msg)
		return nil
	})
	for _, message := range messages {
		if err := collect(ctx, message); err != nil {
			return fmt.Errorf("failed to publish message %s: %w", message.GetID(), err)
		}
	}
	if len(batched) == 0 {
		return nil
	}
	return bus.transport.PublishAll(ctx, batched)
}

func (bus *MessageBus) chain(final HandlerFunc) HandlerFunc {
	bus.mutex.RLock()
	middlewares := append([]IMiddleware(nil), bus.middlewares...)
	bus.mutex.RUnlock()

	next := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw, inner := middlewares[i], next
		next = func(ctx context.Context, msg IMessage) error {
			return mw.Handle(ctx, msg, inner)
		}
	}
	return next
}
