package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func orderUpdateEvent(orderID string, fields map[string]interface{}) Event {
	payload, _ := json.Marshal(fields)
	return Event{
		Event:   EventUpdate,
		Table:   TableOrders,
		OrderID: orderID,
		New:     payload,
	}
}

func TestOrderListener(t *testing.T) {
	t.Run("Status change triggers message from static mapping", func(t *testing.T) {
		var gotStatus, gotMessage string
		l := NewOrderListener("order-1", "review", func(status, message string) {
			gotStatus = status
			gotMessage = message
		}, nil)

		l.Handle(orderUpdateEvent("order-1", map[string]interface{}{
			"status": "processing",
		}))

		assert.Equal(t, "processing", gotStatus)
		assert.Equal(t, StatusMessage("processing"), gotMessage)
		assert.Equal(t, "processing", l.Status())
	})

	t.Run("Same status does not re-notify", func(t *testing.T) {
		calls := 0
		l := NewOrderListener("order-1", "review", func(string, string) { calls++ }, nil)

		l.Handle(orderUpdateEvent("order-1", map[string]interface{}{
			"status": "review",
			"notes":  "updated notes",
		}))

		assert.Equal(t, 0, calls)
	})

	t.Run("Update merges fields into snapshot", func(t *testing.T) {
		l := NewOrderListener("order-1", "review", nil, nil)

		l.Handle(orderUpdateEvent("order-1", map[string]interface{}{
			"payment_status": "paid",
		}))
		l.Handle(orderUpdateEvent("order-1", map[string]interface{}{
			"notes": "leave at door",
		}))

		snap := l.Snapshot()
		assert.JSONEq(t, `"paid"`, string(snap["payment_status"]))
		assert.JSONEq(t, `"leave at door"`, string(snap["notes"]))
	})

	t.Run("History insert triggers refetch", func(t *testing.T) {
		var refetched string
		l := NewOrderListener("order-1", "review", nil, func(orderID string) {
			refetched = orderID
		})

		l.Handle(Event{
			Event:   EventInsert,
			Table:   TableStatusHistory,
			OrderID: "order-1",
		})

		assert.Equal(t, "order-1", refetched)
	})
}

func TestMemoryHub(t *testing.T) {
	ctx := context.Background()

	t.Run("Publish reaches subscriber", func(t *testing.T) {
		hub := NewMemoryHub()
		sub, err := hub.Subscribe(ctx, "order-1")
		assert.NoError(t, err)
		defer sub.Close()

		ev := orderUpdateEvent("order-1", map[string]interface{}{"status": "deliver"})
		assert.NoError(t, hub.Publish(ctx, "order-1", ev))

		select {
		case got := <-sub.Events():
			assert.Equal(t, EventUpdate, got.Event)
			assert.Equal(t, "order-1", got.OrderID)
		case <-time.After(time.Second):
			t.Fatal("expected event")
		}
	})

	t.Run("Events are scoped to one order", func(t *testing.T) {
		hub := NewMemoryHub()
		sub, err := hub.Subscribe(ctx, "order-1")
		assert.NoError(t, err)
		defer sub.Close()

		_ = hub.Publish(ctx, "order-2", orderUpdateEvent("order-2", map[string]interface{}{"status": "deliver"}))

		select {
		case <-sub.Events():
			t.Fatal("should not receive events for another order")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("Close is idempotent and ends the channel", func(t *testing.T) {
		hub := NewMemoryHub()
		sub, err := hub.Subscribe(ctx, "order-1")
		assert.NoError(t, err)

		sub.Close()
		sub.Close() // 第二次不触发 panic

		_, open := <-sub.Events()
		assert.False(t, open)
	})

	t.Run("Listener runs over subscription until close", func(t *testing.T) {
		hub := NewMemoryHub()
		sub, err := hub.Subscribe(ctx, "order-1")
		assert.NoError(t, err)

		statusCh := make(chan string, 1)
		l := NewOrderListener("order-1", "review", func(status, _ string) {
			statusCh <- status
		}, nil)

		done := make(chan struct{})
		go func() {
			l.Run(sub)
			close(done)
		}()

		_ = hub.Publish(ctx, "order-1", orderUpdateEvent("order-1", map[string]interface{}{"status": "processing"}))

		select {
		case status := <-statusCh:
			assert.Equal(t, "processing", status)
		case <-time.After(time.Second):
			t.Fatal("expected status change")
		}

		sub.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("listener should stop after close")
		}
	})
}
