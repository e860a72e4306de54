package memory

import (
	"context"
	"fmt"
	"time"

	"backoffice/messaging"
)

// Start 启动 worker 池
//
// worker 不随 ctx 取消退出，只在队列关闭并排空后结束，保证已入队消息被处理。
func (t *Transport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("memory transport is already running")
	}
	t.running = true
	workerCtx := context.WithoutCancel(ctx)
	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.worker(workerCtx)
	}
	return nil
}

// Close 停止接收新消息并等待队列排空
func (t *Transport) Close() error {
	_, err := t.CloseWithContext(context.Background())
	return err
}

// CloseWithTimeout 带超时的 Close
func (t *Transport) CloseWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := t.CloseWithContext(ctx)
	return err
}

// CloseWithContext 关闭传输并等待 worker 结束
//
// 没有 worker 时返回仍留在队列中的消息；ctx 到期时返回 ctx 错误。
func (t *Transport) CloseWithContext(ctx context.Context) ([]messaging.IMessage, error) {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return nil, fmt.Errorf("memory transport is not running")
	}
	t.running = false
	close(t.queue)
	workers := t.workerCount
	t.mutex.Unlock()

	if workers == 0 {
		pending := make([]messaging.IMessage, 0, len(t.queue))
		for message := range t.queue {
			pending = append(pending, message)
		}
		return pending, nil
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) worker(ctx context.Context) {
	defer t.wg.Done()
	for message := range t.queue {
		t.dispatch(ctx, message)
	}
}
