// Package memory 提供基于内存队列与 worker 池的异步消息传输
package memory

import (
	"context"
	"fmt"
	"sync"

	"backoffice/logging"
	"backoffice/messaging"
)

const (
	defaultQueueSize   = 1000
	defaultWorkerCount = 4
)

// Transport 内存消息传输
//
// Publish 只负责入队，处理器错误由 worker 记录日志后丢弃，不回传给发布方。
type Transport struct {
	handlers    messaging.Handlers
	queue       chan messaging.IMessage
	queueSize   int
	workerCount int
	logger      logging.Logger

	running bool
	mutex   sync.RWMutex
	wg      sync.WaitGroup
}

// Option 传输选项
type Option func(*Transport)

// WithLogger 设置日志器
func WithLogger(logger logging.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// NewTransport 创建内存传输；queueSize、workerCount <= 0 时使用默认值
func NewTransport(queueSize, workerCount int, opts ...Option) *Transport {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return newTransport(queueSize, workerCount, opts...)
}

// NewTransportForTest 创建没有 worker 的传输，用于验证关闭时的排空语义
func NewTransportForTest(queueSize int) *Transport {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return newTransport(queueSize, 0)
}

func newTransport(queueSize, workerCount int, opts ...Option) *Transport {
	t := &Transport{
		handlers:    make(messaging.Handlers),
		queue:       make(chan messaging.IMessage, queueSize),
		queueSize:   queueSize,
		workerCount: workerCount,
		logger:      logging.ComponentLogger("transport.memory"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Publish 入队；队列已满时立即返回错误
func (t *Transport) Publish(ctx context.Context, message messaging.IMessage) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.running {
		return fmt.Errorf("memory transport is not running")
	}
	return t.enqueue(ctx, message)
}

// PublishAll 批量入队，遇到第一个错误即返回
func (t *Transport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if !t.running {
		return fmt.Errorf("memory transport is not running")
	}
	for _, message := range messages {
		if err := t.enqueue(ctx, message); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) enqueue(ctx context.Context, message messaging.IMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case t.queue <- message:
		return nil
	default:
		return fmt.Errorf("message queue is full")
	}
}

// Subscribe 订阅，"*" 订阅全部类型
func (t *Transport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.handlers.Add(messageType, handler)
	return nil
}

// Unsubscribe 取消订阅
func (t *Transport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.handlers.Remove(messageType, handler) {
		return fmt.Errorf("handler not found for message type %s", messageType)
	}
	return nil
}

// Stats 统计信息
func (t *Transport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	count, types := t.handlers.Stats()
	return messaging.TransportStats{
		Running:      t.running,
		HandlerCount: count,
		MessageTypes: types,
		QueueSize:    t.queueSize,
		QueueDepth:   len(t.queue),
		WorkerCount:  t.workerCount,
	}
}

func (t *Transport) dispatch(ctx context.Context, message messaging.IMessage) {
	t.mutex.RLock()
	handlers := t.handlers.For(message.GetType())
	t.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("handler", handler.Type()),
				logging.String("message_type", message.GetType()),
				logging.String("message_id", message.GetID()),
				logging.Error(err))
		}
	}
}
