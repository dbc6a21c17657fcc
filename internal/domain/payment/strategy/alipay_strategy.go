package strategy

import (
	"errors"
	"net/url"

	"barter_market/internal/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/smartwalle/alipay/v3"
)

type AlipayStrategy struct {
	client *alipay.Client
	config config.AlipayConfig
}

func NewAlipayStrategy() (*AlipayStrategy, error) {
	cfg := config.GlobalConfig.Alipay
	if cfg.AppID == "" {
		return nil, errors.New("alipay config missing")
	}

	client, err := alipay.New(cfg.AppID, cfg.PrivateKey, cfg.IsProduction)
	if err != nil {
		return nil, err
	}

	// 加载支付宝公钥用于验签
	if err = client.LoadAliPayPublicKey(cfg.PublicKey); err != nil {
		return nil, err
	}

	return &AlipayStrategy{
		client: client,
		config: cfg,
	}, nil
}

// Pay 发起 App 支付
func (s *AlipayStrategy) Pay(paymentNo string, amount decimal.Decimal, subject string) (string, error) {
	p := alipay.TradeAppPay{}
	p.NotifyURL = s.config.NotifyURL
	p.Subject = subject
	p.OutTradeNo = paymentNo
	p.TotalAmount = amount.StringFixed(2)
	p.ProductCode = "QUICK_MSECURITY_PAY"

	return s.client.TradeAppPay(p)
}

// Notify 处理回调，params 预期是 url.Values
func (s *AlipayStrategy) Notify(params interface{}) (string, decimal.Decimal, bool, error) {
	values, ok := params.(url.Values)
	if !ok {
		return "", decimal.Zero, false, errors.New("invalid params type, expected url.Values")
	}

	noti, err := s.client.DecodeNotification(values)
	if err != nil {
		return "", decimal.Zero, false, err
	}

	success := noti.TradeStatus == alipay.TradeStatusSuccess || noti.TradeStatus == alipay.TradeStatusFinished

	amount, err := decimal.NewFromString(noti.TotalAmount)
	if err != nil {
		return "", decimal.Zero, false, err
	}

	return noti.OutTradeNo, amount, success, nil
}

var _ PaymentStrategy = (*AlipayStrategy)(nil)
