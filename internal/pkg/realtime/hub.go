package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// 事件类型，对应数据库变更
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
)

// 事件来源表
const (
	TableOrders        = "orders"
	TableStatusHistory = "order_status_history"
)

// Event 单条变更事件，携带变更前后的行快照
type Event struct {
	Event   string          `json:"event"`
	Table   string          `json:"table"`
	OrderID string          `json:"orderId"`
	Old     json.RawMessage `json:"old,omitempty"`
	New     json.RawMessage `json:"new,omitempty"`
}

// Hub 按订单 ID 分发变更事件
type Hub interface {
	Publish(ctx context.Context, orderID string, ev Event) error

	// Subscribe 返回的 Subscription 必须在视图销毁时 Close，否则泄漏连接
	Subscribe(ctx context.Context, orderID string) (*Subscription, error)
}

// Subscription 一条订单变更订阅
// Close 幂等，重复调用无副作用
type Subscription struct {
	ch      chan Event
	release func()
	once    sync.Once
}

func newSubscription(buffer int, release func()) *Subscription {
	return &Subscription{
		ch:      make(chan Event, buffer),
		release: release,
	}
}

// Events 事件通道，订阅关闭后通道关闭
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close 释放订阅资源
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}
