package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"backoffice/logging"
	"backoffice/messaging"
	"backoffice/metrics"
)

// MessageType 审计条目在消息传输上的类型
const MessageType = "audit.entry"

// Publisher 发布审计消息，messaging.Transport 与 messaging.MessageBus 均满足
type Publisher interface {
	Publish(ctx context.Context, message messaging.IMessage) error
}

// Subscriber 订阅审计消息
type Subscriber interface {
	Subscribe(messageType string, handler messaging.IMessageHandler) error
}

// Writer 审计写入器
type Writer struct {
	store     *Store
	publisher Publisher
	logger    logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
}

// WriterOption 写入器选项
type WriterOption func(*Writer)

// WithPublisher 设置异步发布通道；未设置时 Dispatch 直接写入存储
func WithPublisher(p Publisher) WriterOption {
	return func(w *Writer) { w.publisher = p }
}

// WithLogger 设置日志器
func WithLogger(l logging.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter 创建写入器
func NewWriter(store *Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		logger: logging.ComponentLogger("audit"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write 同步追加一条审计条目；没有操作者时返回 ErrNoActor 且不写入
func (w *Writer) Write(ctx context.Context, rec Record) (*Entry, error) {
	if !rec.Actor.Authenticated() {
		return nil, ErrNoActor
	}
	entry := rec.entry(w.newID(), w.now())
	if err := w.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	w.metrics.IncAuditWritten(string(entry.EntityType), string(entry.Action))
	return entry, nil
}

// Dispatch 发出即忘的审计写入
//
// 没有操作者时静默跳过。条目的 id 与 createdAt 在此刻确定，之后经发布通道
// 异步追加。任何失败只记录日志与指标，不会影响调用方。
func (w *Writer) Dispatch(ctx context.Context, rec Record) {
	if !rec.Actor.Authenticated() {
		w.metrics.IncAuditSkipped()
		return
	}
	entry := rec.entry(w.newID(), w.now())

	if w.publisher == nil {
		w.appendEntry(ctx, entry)
		return
	}
	msg := messaging.NewMessage(entry.ID, MessageType, entry)
	msg.SetMetadata("entityType", string(entry.EntityType))
	if err := w.publisher.Publish(ctx, msg); err != nil {
		w.metrics.IncAuditFailed("publish")
		w.logger.Error(ctx, "publish audit entry failed",
			logging.String("entry_id", entry.ID),
			logging.String("entity_type", string(entry.EntityType)),
			logging.String("entity_id", entry.EntityID),
			logging.Error(err))
	}
}

// Handler 消费审计消息并追加到存储的处理器
func (w *Writer) Handler() messaging.IMessageHandler {
	return messaging.NewHandler("audit.append", func(ctx context.Context, message messaging.IMessage) error {
		entry, ok := message.GetPayload().(*Entry)
		if !ok {
			entry = &Entry{}
			if err := messaging.DecodePayload(message, entry); err != nil {
				w.metrics.IncAuditFailed("decode")
				return err
			}
		}
		return w.appendEntry(ctx, entry)
	})
}

// Subscribe 把追加处理器注册到订阅方
func (w *Writer) Subscribe(sub Subscriber) error {
	return sub.Subscribe(MessageType, w.Handler())
}

func (w *Writer) appendEntry(ctx context.Context, entry *Entry) error {
	if err := w.store.Append(ctx, entry); err != nil {
		w.metrics.IncAuditFailed("append")
		w.logger.Error(ctx, "append audit entry failed",
			logging.String("entry_id", entry.ID),
			logging.String("entity_type", string(entry.EntityType)),
			logging.String("entity_id", entry.EntityID),
			logging.Error(err))
		return err
	}
	w.metrics.IncAuditWritten(string(entry.EntityType), string(entry.Action))
	w.logger.Debug(ctx, "audit entry written",
		logging.String("action", string(entry.Action)),
		logging.String("entity_type", string(entry.EntityType)),
		logging.String("entity_id", entry.EntityID),
		logging.String("user_id", entry.UserID))
	return nil
}
