package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barter_market/internal/domain/notification/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRepo 记录落库的通知，可配置失败
type recordingRepo struct {
	mu      sync.Mutex
	created []model.Notification
	failErr error
	done    chan struct{}
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{done: make(chan struct{}, 16)}
}

func (r *recordingRepo) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { r.done <- struct{}{} }()
	if r.failErr != nil {
		return r.failErr
	}
	r.created = append(r.created, *n)
	return nil
}

func (r *recordingRepo) GetList(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	return nil, 0, nil
}

func (r *recordingRepo) MarkRead(ctx context.Context, id, recipientID string) error { return nil }

func (r *recordingRepo) MarkAllRead(ctx context.Context, recipientID string) error { return nil }

func (r *recordingRepo) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return 0, nil
}

func (r *recordingRepo) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification delivery")
	}
}

func TestNotificationPoolDeliversTask(t *testing.T) {
	repo := newRecordingRepo()
	pool := NewNotificationPool(repo, nil, 2, 8)
	pool.Start()

	pool.Dispatch(NotificationTask{
		RecipientID: "seller-1",
		Type:        model.TypeNewOrderReceived,
		Title:       "新订单",
		Message:     "您有一笔新订单",
		Payload:     map[string]string{"orderId": "order-1"},
	})

	repo.wait(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.created, 1)
	n := repo.created[0]
	assert.Equal(t, "seller-1", n.RecipientID)
	assert.Equal(t, model.TypeNewOrderReceived, n.Type)
	assert.JSONEq(t, `{"orderId":"order-1"}`, string(n.Payload))
}

func TestNotificationPoolDispatchNeverBlocks(t *testing.T) {
	// 未启动 worker，队列容量 1：第二次入队必须立即丢弃而不是阻塞
	repo := newRecordingRepo()
	pool := NewNotificationPool(repo, nil, 0, 1)

	done := make(chan struct{})
	go func() {
		pool.Dispatch(NotificationTask{RecipientID: "u1", Type: model.TypeNewFollower})
		pool.Dispatch(NotificationTask{RecipientID: "u2", Type: model.TypeNewFollower})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
	assert.Len(t, pool.TaskQueue, 1)
}

func TestNotificationPoolRetriesFailedTask(t *testing.T) {
	repo := newRecordingRepo()
	repo.failErr = errors.New("db down")
	pool := NewNotificationPool(repo, nil, 1, 8)
	pool.Start()

	pool.Dispatch(NotificationTask{RecipientID: "u1", Type: model.TypePaymentUpdate})

	// 首次尝试失败
	repo.wait(t)

	// 任务应进入重试队列，修复后下一次尝试成功
	repo.mu.Lock()
	repo.failErr = nil
	repo.mu.Unlock()

	repo.wait(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.created, 1)
	assert.Equal(t, model.TypePaymentUpdate, repo.created[0].Type)
}
