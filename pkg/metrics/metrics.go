// Package metrics 注册 Prometheus 指标，由 /metrics 暴露。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 应用指标集合
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Notifications     *prometheus.CounterVec
	AttendanceScans   *prometheus.CounterVec
	SessionsExpired   prometheus.Counter
	NotificationQueue prometheus.Gauge
}

// New 创建并注册指标；reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classpad",
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "classpad",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classpad",
			Name:      "notifications_total",
			Help:      "通知分发结果计数（sent/failed/dropped）",
		}, []string{"result"}),
		AttendanceScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classpad",
			Name:      "attendance_scans_total",
			Help:      "扫码签到结果计数",
		}, []string{"result"}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "classpad",
			Name:      "attendance_sessions_expired_total",
			Help:      "被定时任务关闭的过期签到场次",
		}),
		NotificationQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "classpad",
			Name:      "notification_queue_depth",
			Help:      "通知队列当前积压数",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Notifications,
		m.AttendanceScans,
		m.SessionsExpired,
		m.NotificationQueue,
	)

	return m
}

// NewNop 返回注册到独立注册表的指标，供测试使用
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
