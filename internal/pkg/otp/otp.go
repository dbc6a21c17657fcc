package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"barter_market/internal/pkg/config"
	"barter_market/pkg/kvstore"
)

const (
	codeTTL      = 5 * time.Minute
	resendWindow = time.Minute // 1分钟内不允许重发
)

type OTPService interface {
	Send(ctx context.Context, mobile string) (string, error)
	Verify(ctx context.Context, mobile, code string) bool
}

type otpService struct {
	store kvstore.Store
}

// NewOTPService 创建验证码服务，验证码保存在带 TTL 的键值存储中
func NewOTPService(store kvstore.Store) OTPService {
	return &otpService{store: store}
}

func otpKey(mobile string) string {
	return fmt.Sprintf("otp:%s", mobile)
}

// Send 生成并发送验证码
// 真实场景下应调用短信服务商接口，这里生成 6 位随机数并打印到日志
func (s *otpService) Send(ctx context.Context, mobile string) (string, error) {
	key := otpKey(mobile)

	// 频率限制：剩余 TTL 超过 (有效期 - 重发窗口) 说明刚发不久
	if ttl, err := s.store.TTL(ctx, key); err == nil && ttl > codeTTL-resendWindow {
		return "", fmt.Errorf("please wait before sending again")
	}

	code := generateCode()
	if test := config.GlobalConfig.App.TestOTPCode; test != "" && config.GlobalConfig.App.Env != "production" {
		code = test
	}

	if err := s.store.Set(ctx, key, code, codeTTL); err != nil {
		return "", err
	}

	// 发送 (Mock: 打印日志)
	log.Printf("[OTP] Sending code %s to %s", code, mobile)

	return code, nil
}

// Verify 验证验证码
// 验证成功后立即删除，防止重放
func (s *otpService) Verify(ctx context.Context, mobile, code string) bool {
	key := otpKey(mobile)
	val, err := s.store.Get(ctx, key)
	if err != nil {
		return false
	}

	if val == code {
		_ = s.store.Delete(ctx, key)
		return true
	}
	return false
}

func generateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand 失败时退回固定码，仅理论上可能
		return "123456"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
