package strategy

import (
	"context"
	"errors"
	"net/http"

	"barter_market/internal/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/app"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

type WechatStrategy struct {
	client  *core.Client
	config  config.WechatPayConfig
	certMgr core.CertificateVisitor
	handler *notify.Handler
}

func NewWechatStrategy() (*WechatStrategy, error) {
	cfg := config.GlobalConfig.Wechat
	if cfg.MchID == "" {
		return nil, errors.New("wechat pay config missing")
	}

	mchPrivateKey, err := utils.LoadPrivateKey(cfg.MchPrivateKey)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	opts := []core.ClientOption{
		option.WithWechatPayAutoAuthCipher(cfg.MchID, cfg.MchCertificateSerial, mchPrivateKey, cfg.APIv3Key),
	}

	client, err := core.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	certVisitor := downloader.MgrInstance().GetCertificateVisitor(cfg.MchID)
	handler := notify.NewNotifyHandler(cfg.APIv3Key, verifiers.NewSHA256WithRSAVerifier(certVisitor))

	return &WechatStrategy{
		client:  client,
		config:  cfg,
		certMgr: certVisitor,
		handler: handler,
	}, nil
}

func (s *WechatStrategy) Pay(paymentNo string, amount decimal.Decimal, subject string) (string, error) {
	// 微信计价单位为分
	amountFen := amount.Mul(decimal.NewFromInt(100)).IntPart()

	req := app.PrepayRequest{
		Appid:       core.String(s.config.AppID),
		Mchid:       core.String(s.config.MchID),
		Description: core.String(subject),
		OutTradeNo:  core.String(paymentNo),
		NotifyUrl:   core.String(s.config.NotifyURL),
		Amount: &app.Amount{
			Total: core.Int64(amountFen),
		},
	}

	svc := app.AppApiService{Client: s.client}
	resp, _, err := svc.Prepay(context.Background(), req)
	if err != nil {
		return "", err
	}

	return *resp.PrepayId, nil
}

// Notify 处理回调，params 预期是 *http.Request（验签需要 Header）
func (s *WechatStrategy) Notify(params interface{}) (string, decimal.Decimal, bool, error) {
	req, ok := params.(*http.Request)
	if !ok {
		return "", decimal.Zero, false, errors.New("invalid params type, expected *http.Request")
	}

	transaction := new(payments.Transaction)
	_, err := s.handler.ParseNotifyRequest(context.Background(), req, transaction)
	if err != nil {
		return "", decimal.Zero, false, err
	}

	success := *transaction.TradeState == "SUCCESS"
	amount := decimal.NewFromInt(*transaction.Amount.Total).Div(decimal.NewFromInt(100))

	return *transaction.OutTradeNo, amount, success, nil
}

var _ PaymentStrategy = (*WechatStrategy)(nil)
