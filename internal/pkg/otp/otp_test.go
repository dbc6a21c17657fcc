package otp

import (
	"context"
	"testing"

	"barter_market/pkg/kvstore"

	"github.com/stretchr/testify/assert"
)

func TestOTPService(t *testing.T) {
	ctx := context.Background()

	t.Run("Send then verify succeeds once", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		svc := NewOTPService(store)

		code, err := svc.Send(ctx, "13800138000")
		assert.NoError(t, err)
		assert.Len(t, code, 6)

		assert.True(t, svc.Verify(ctx, "13800138000", code))
		// 验证成功后验证码删除，防止重放
		assert.False(t, svc.Verify(ctx, "13800138000", code))
	})

	t.Run("Wrong code fails", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		svc := NewOTPService(store)

		_, err := svc.Send(ctx, "13800138001")
		assert.NoError(t, err)

		assert.False(t, svc.Verify(ctx, "13800138001", "000000"))
	})

	t.Run("Resend within window rejected", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		svc := NewOTPService(store)

		_, err := svc.Send(ctx, "13800138002")
		assert.NoError(t, err)

		_, err = svc.Send(ctx, "13800138002")
		assert.Error(t, err)
	})

	t.Run("Verify unknown mobile fails", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		svc := NewOTPService(store)

		assert.False(t, svc.Verify(ctx, "13900000000", "123456"))
	})
}
