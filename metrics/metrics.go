// Package metrics 定义服务的 Prometheus 指标
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics 服务指标集合，使用独立 registry
type Metrics struct {
	// 审计
	AuditWrittenTotal *prometheus.CounterVec
	AuditSkippedTotal prometheus.Counter
	AuditFailedTotal  *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	// 用户缓存
	UserCacheHitsTotal   prometheus.Counter
	UserCacheMissesTotal prometheus.Counter

	registry *prometheus.Registry
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		AuditWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_audit_entries_written_total",
				Help: "Audit entries appended to the audit log",
			},
			[]string{"entity_type", "action"},
		),
		AuditSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backoffice_audit_entries_skipped_total",
				Help: "Audit records dropped because no actor was present",
			},
		),
		AuditFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_audit_failures_total",
				Help: "Audit records lost to publish or append failures",
			},
			[]string{"stage"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backoffice_http_requests_total",
				Help: "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backoffice_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		UserCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backoffice_user_cache_hits_total",
				Help: "Authenticated user lookups served from cache",
			},
		),
		UserCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backoffice_user_cache_misses_total",
				Help: "Authenticated user lookups that hit the store",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.AuditWrittenTotal,
		m.AuditSkippedTotal,
		m.AuditFailedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.UserCacheHitsTotal,
		m.UserCacheMissesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetGlobal 设置全局指标实例
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global 全局指标实例，可能为 nil
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// 以下方法允许 nil 接收者，未配置指标的组件可以直接调用

// IncAuditWritten 审计条目写入成功
func (m *Metrics) IncAuditWritten(entityType, action string) {
	if m != nil {
		m.AuditWrittenTotal.WithLabelValues(entityType, action).Inc()
	}
}

// IncAuditSkipped 无操作者，跳过审计
func (m *Metrics) IncAuditSkipped() {
	if m != nil {
		m.AuditSkippedTotal.Inc()
	}
}

// IncAuditFailed 审计失败，stage 为 publish 或 append
func (m *Metrics) IncAuditFailed(stage string) {
	if m != nil {
		m.AuditFailedTotal.WithLabelValues(stage).Inc()
	}
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}

// IncUserCache 用户缓存命中或未命中
func (m *Metrics) IncUserCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.UserCacheHitsTotal.Inc()
	} else {
		m.UserCacheMissesTotal.Inc()
	}
}
