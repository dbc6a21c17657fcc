package realtime

import (
	"encoding/json"
	"sync"
)

// 状态到用户提示文案的静态映射
var statusMessages = map[string]string{
	"review":     "您的订单已提交，等待卖家确认",
	"processing": "卖家已接单，正在备货",
	"deliver":    "订单已发货",
	"received":   "订单已签收",
	"completed":  "订单已完成",
	"cancelled":  "订单已取消",
}

// StatusMessage 返回状态对应的提示文案，未知状态返回空串
func StatusMessage(status string) string {
	return statusMessages[status]
}

// OrderListener 把订单变更事件合并进本地快照
// status 字段变化时回调用户提示；状态历史新增时回调整单重取
type OrderListener struct {
	orderID string

	mu       sync.Mutex
	snapshot map[string]json.RawMessage
	status   string

	onStatusChange func(status, message string)
	onHistory      func(orderID string)
}

// NewOrderListener 创建监听器，currentStatus 是订阅时刻的订单状态
func NewOrderListener(orderID, currentStatus string, onStatusChange func(status, message string), onHistory func(orderID string)) *OrderListener {
	return &OrderListener{
		orderID:        orderID,
		snapshot:       make(map[string]json.RawMessage),
		status:         currentStatus,
		onStatusChange: onStatusChange,
		onHistory:      onHistory,
	}
}

// Handle 处理一条变更事件
func (l *OrderListener) Handle(ev Event) {
	switch {
	case ev.Table == TableOrders && ev.Event == EventUpdate:
		l.mergeOrderUpdate(ev)
	case ev.Table == TableStatusHistory && ev.Event == EventInsert:
		// 事件载荷不带关联数据，触发整单重取
		if l.onHistory != nil {
			l.onHistory(l.orderID)
		}
	}
}

// Run 消费订阅直到其关闭
func (l *OrderListener) Run(sub *Subscription) {
	for ev := range sub.Events() {
		l.Handle(ev)
	}
}

// Status 当前已知状态
func (l *OrderListener) Status() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Snapshot 返回已合并字段的副本
func (l *OrderListener) Snapshot() map[string]json.RawMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]json.RawMessage, len(l.snapshot))
	for k, v := range l.snapshot {
		out[k] = v
	}
	return out
}

func (l *OrderListener) mergeOrderUpdate(ev Event) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(ev.New, &fields); err != nil {
		return
	}

	l.mu.Lock()
	for k, v := range fields {
		l.snapshot[k] = v
	}

	var changed string
	if raw, ok := fields["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err == nil && status != l.status {
			l.status = status
			changed = status
		}
	}
	l.mu.Unlock()

	if changed != "" && l.onStatusChange != nil {
		l.onStatusChange(changed, StatusMessage(changed))
	}
}
