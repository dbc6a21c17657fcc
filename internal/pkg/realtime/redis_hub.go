package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"barter_market/pkg/logger"
	"barter_market/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisHub Redis Pub/Sub 实现，跨实例分发订单变更
type redisHub struct {
	rdb *redis.Client
}

// NewRedisHub 创建 Redis 实现的事件中心
func NewRedisHub(rdb *redis.Client) Hub {
	return &redisHub{rdb: rdb}
}

func channelFor(orderID string) string {
	return fmt.Sprintf("orders:%s", orderID)
}

func (h *redisHub) Publish(ctx context.Context, orderID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, channelFor(orderID), payload).Err()
}

func (h *redisHub) Subscribe(ctx context.Context, orderID string) (*Subscription, error) {
	ps := h.rdb.Subscribe(ctx, channelFor(orderID))

	// 等待订阅确认，失败时立即暴露
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := newSubscription(16, func() {
		// 关闭 pubsub 后 Channel() 会结束，由转发协程关闭事件通道
		_ = ps.Close()
	})

	metrics.GetGlobalCollector().RealtimeSubscriptionOpened()

	go func() {
		defer func() {
			close(sub.ch)
			metrics.GetGlobalCollector().RealtimeSubscriptionClosed()
		}()

		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Log.Warn("realtime: dropping malformed event",
					zap.String("order_id", orderID),
					zap.Error(err),
				)
				continue
			}

			select {
			case sub.ch <- ev:
			default:
				// 消费者跟不上时丢弃，历史变更可通过重新拉取订单补齐
				logger.Log.Warn("realtime: subscriber too slow, event dropped",
					zap.String("order_id", orderID),
				)
			}
		}
	}()

	return sub, nil
}
