// Package sync 提供同步消息传输：Publish 在调用方 goroutine 中执行所有处理器
//
// 审计写入在测试与单进程部署中使用它，保证请求返回时条目已落库。
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"backoffice/messaging"
)

var (
	ErrNotRunning     = errors.New("sync transport is not running")
	ErrAlreadyRunning = errors.New("sync transport is already running")
)

// Transport 同步传输
type Transport struct {
	mu       sync.RWMutex
	handlers messaging.Handlers
	running  atomic.Bool
}

func NewTransport() *Transport {
	return &Transport{handlers: make(messaging.Handlers)}
}

// Publish 依次执行匹配的处理器，全部错误合并返回；没有订阅者不是错误
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	if !t.running.Load() {
		return ErrNotRunning
	}
	t.mu.RLock()
	handlers := t.handlers.For(message.GetType())
	t.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := h.Handle(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// PublishAll 依次发布，遇错即停
func (t *Transport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, m := range messages {
		if err := t.Publish(ctx, m); err != nil {
			return fmt.Errorf("publish %s: %w", m.GetID(), err)
		}
	}
	return nil
}

func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	t.handlers.Add(messageType, handler)
	t.mu.Unlock()
	return nil
}

func (t *Transport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handlers.Remove(messageType, handler) {
		return nil
	}
	return fmt.Errorf("no %s handler for %s", handler.Type(), messageType)
}

func (t *Transport) Start(context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (t *Transport) Close() error {
	if !t.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	return nil
}

func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	count, types := t.handlers.Stats()
	t.mu.RUnlock()
	return messaging.TransportStats{Running: t.running.Load(), HandlerCount: count, MessageTypes: types}
}
