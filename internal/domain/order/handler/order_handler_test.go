package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"barter_market/internal/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamOrderEventsForwardsStatusChange(t *testing.T) {
	hub := realtime.NewMemoryHub()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, "order-1")
	require.NoError(t, err)
	defer sub.Close()

	out := streamOrderEvents(ctx, sub, "order-1", "review")

	payload, _ := json.Marshal(map[string]string{"id": "order-1", "status": "processing"})
	require.NoError(t, hub.Publish(ctx, "order-1", realtime.Event{
		Event:   realtime.EventUpdate,
		Table:   realtime.TableOrders,
		OrderID: "order-1",
		New:     payload,
	}))

	select {
	case ev := <-out:
		assert.Equal(t, "status", ev.name)
	case <-time.After(2 * time.Second):
		t.Fatal("no status event received")
	}
}

func TestStreamOrderEventsClosesAfterClientGone(t *testing.T) {
	hub := realtime.NewMemoryHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, "order-1")
	require.NoError(t, err)

	out := streamOrderEvents(ctx, sub, "order-1", "review")

	// 不读 out，让事件在下游积压到缓冲之外
	historyPayload, _ := json.Marshal(map[string]string{"order_id": "order-1"})
	for i := 0; i < 40; i++ {
		require.NoError(t, hub.Publish(ctx, "order-1", realtime.Event{
			Event:   realtime.EventInsert,
			Table:   realtime.TableStatusHistory,
			OrderID: "order-1",
			New:     historyPayload,
		}))
	}

	// 客户端断开后关闭订阅，带着积压的事件流也必须收尾并关闭 out
	cancel()
	sub.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel never closed after client disconnect")
		}
	}
}
