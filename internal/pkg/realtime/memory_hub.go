package realtime

import (
	"context"
	"sync"
)

// memoryHub 进程内实现，单元测试用
type memoryHub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewMemoryHub 创建内存事件中心
func NewMemoryHub() Hub {
	return &memoryHub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *memoryHub) Publish(_ context.Context, orderID string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[orderID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

func (h *memoryHub) Subscribe(_ context.Context, orderID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sub *Subscription
	sub = newSubscription(16, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[orderID], sub)
		close(sub.ch)
	})

	if h.subs[orderID] == nil {
		h.subs[orderID] = make(map[*Subscription]struct{})
	}
	h.subs[orderID][sub] = struct{}{}

	return sub, nil
}
