package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"barter_market/internal/pkg/config"
	"barter_market/pkg/logger"

	"go.uber.org/zap"
)

// Sender 事务邮件发送器，对接第三方模板发送 API
// 调用方对失败只记录日志，不重试（由通知分发队列决定是否整体重试）
type Sender interface {
	SendTemplate(to string, templateID int64, params map[string]string) error
}

type apiSender struct {
	client *http.Client
	cfg    config.EmailConfig
}

// NewSender 创建邮件发送器
func NewSender() Sender {
	return &apiSender{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    config.GlobalConfig.Email,
	}
}

type templateRequest struct {
	TemplateID int64             `json:"templateId"`
	To         []recipient       `json:"to"`
	Sender     recipient         `json:"sender"`
	Params     map[string]string `json:"params,omitempty"`
}

type recipient struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// SendTemplate 以模板 ID + 扁平参数表发送一封邮件
func (s *apiSender) SendTemplate(to string, templateID int64, params map[string]string) error {
	if s.cfg.APIURL == "" || s.cfg.APIKey == "" {
		return fmt.Errorf("email config is missing")
	}

	body, err := json.Marshal(templateRequest{
		TemplateID: templateID,
		To:         []recipient{{Email: to}},
		Sender:     recipient{Name: s.cfg.FromName, Email: s.cfg.FromEmail},
		Params:     params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Log.Warn("email API rejected request",
			zap.Int("status", resp.StatusCode),
			zap.Int64("template_id", templateID),
		)
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}
