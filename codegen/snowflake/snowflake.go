// Package snowflake 生成按时间递增的实体主键（雪花算法）
package snowflake

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

const (
	// 起始时间戳 (2024-01-01 00:00:00 UTC)
	epoch int64 = 1704067200000

	nodeBits     = 10
	sequenceBits = 12

	maxNode     = -1 ^ (-1 << nodeBits)     // 1023
	maxSequence = -1 ^ (-1 << sequenceBits) // 4095

	nodeShift = sequenceBits
	timeShift = sequenceBits + nodeBits
)

// ErrClockBackwards 系统时钟回拨
var ErrClockBackwards = errors.New("snowflake: clock moved backwards")

// Generator 雪花 ID 生成器，并发安全
type Generator struct {
	mu       sync.Mutex
	node     int64
	sequence int64
	lastMs   int64
	now      func() time.Time
}

// NewGenerator 创建生成器，node 取值 [0, 1023]
func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > maxNode {
		return nil, errors.New("snowflake: node out of range")
	}
	return &Generator{node: node, lastMs: -1, now: time.Now}, nil
}

// NextID 生成下一个 ID
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms < g.lastMs {
		return 0, ErrClockBackwards
	}
	if ms == g.lastMs {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for ms <= g.lastMs {
				ms = g.now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = ms

	return ((ms - epoch) << timeShift) | (g.node << nodeShift) | g.sequence, nil
}

// NextString 以十进制字符串返回下一个 ID；时钟回拨时等待追上
func (g *Generator) NextString() string {
	for {
		id, err := g.NextID()
		if err == nil {
			return strconv.FormatInt(id, 10)
		}
		time.Sleep(time.Millisecond)
	}
}

// Timestamp 解析 ID 中的毫秒时间戳
func Timestamp(id int64) time.Time {
	return time.UnixMilli((id >> timeShift) + epoch)
}

var defaultGenerator, _ = NewGenerator(1)

// NewString 使用默认生成器生成字符串 ID
func NewString() string {
	return defaultGenerator.NextString()
}
