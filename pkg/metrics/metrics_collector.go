package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 订单指标
	ordersCreatedTotal     prometheus.Counter
	orderCreateFailures    *prometheus.CounterVec
	statusTransitionsTotal *prometheus.CounterVec

	// 通知指标
	notificationsTotal *prometheus.CounterVec

	// 实时订阅指标
	realtimeSubscriptions prometheus.Gauge
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器（单例）
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = newMetricsCollector()
	})
	return globalCollector
}

func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		ordersCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Total number of orders successfully created",
			},
		),
		orderCreateFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_create_failures_total",
				Help: "Order creation failures by reason",
			},
			[]string{"reason"},
		),
		statusTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "Order status transitions by target status and result",
			},
			[]string{"status", "result"},
		),
		notificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_emitted_total",
				Help: "Notifications emitted by type and result",
			},
			[]string{"type", "result"},
		),
		realtimeSubscriptions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "realtime_subscriptions_active",
				Help: "Currently open realtime order subscriptions",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordOrderCreated 记录订单创建成功
func (m *MetricsCollector) RecordOrderCreated() {
	m.ordersCreatedTotal.Inc()
}

// RecordOrderCreateFailure 记录订单创建失败
func (m *MetricsCollector) RecordOrderCreateFailure(reason string) {
	m.orderCreateFailures.WithLabelValues(reason).Inc()
}

// RecordStatusTransition 记录状态流转
func (m *MetricsCollector) RecordStatusTransition(status, result string) {
	m.statusTransitionsTotal.WithLabelValues(status, result).Inc()
}

// RecordNotification 记录通知发送
func (m *MetricsCollector) RecordNotification(notifType, result string) {
	m.notificationsTotal.WithLabelValues(notifType, result).Inc()
}

// RealtimeSubscriptionOpened 实时订阅打开
func (m *MetricsCollector) RealtimeSubscriptionOpened() {
	m.realtimeSubscriptions.Inc()
}

// RealtimeSubscriptionClosed 实时订阅关闭
func (m *MetricsCollector) RealtimeSubscriptionClosed() {
	m.realtimeSubscriptions.Dec()
}
