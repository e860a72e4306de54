package messaging

import "context"

// Publisher 发布消息；审计写入器经它把条目交给传输层
type Publisher interface {
	Publish(ctx context.Context, message IMessage) error
	PublishAll(ctx context.Context, messages []IMessage) error
}

// Subscriber 按消息类型注册处理器，"*" 匹配全部类型
type Subscriber interface {
	Subscribe(messageType string, handler IMessageHandler) error
	Unsubscribe(messageType string, handler IMessageHandler) error
}

// Transport 审计条目的投递通道
//
// memory 与 sync 在进程内投递，natsjetstream 与 redisstreams 跨进程持久投递。
// Start 之前发布会失败；Close 之后不再投递。
type Transport interface {
	Publisher
	Subscriber

	Start(ctx context.Context) error
	Close() error
	Stats() TransportStats
}

// TransportStats 运行状态，/health 依据 Running 判断审计通道是否可用
type TransportStats struct {
	Running      bool     `json:"running"`
	HandlerCount int      `json:"handler_count"`
	MessageTypes []string `json:"message_types"`

	// 以下仅 memory 传输填写
	QueueSize   int `json:"queue_size,omitempty"`
	QueueDepth  int `json:"queue_depth,omitempty"`
	WorkerCount int `json:"worker_count,omitempty"`
}
