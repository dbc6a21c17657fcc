package strategy

import "github.com/shopspring/decimal"

// PaymentStrategy 支付网关抽象
type PaymentStrategy interface {
	// Pay 发起支付，返回网关支付参数（URL、预支付单号等）
	Pay(paymentNo string, amount decimal.Decimal, subject string) (string, error)

	// Notify 处理网关回调，返回支付单号、金额、是否成功
	Notify(params interface{}) (string, decimal.Decimal, bool, error)
}
