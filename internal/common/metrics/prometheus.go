// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	cacheHitsTotal       *prometheus.CounterVec
	cacheMissesTotal     *prometheus.CounterVec
	mqttMessagesTotal    *prometheus.CounterVec
	promotionQuotesTotal *prometheus.CounterVec
	ticketTransitions    *prometheus.CounterVec
	paymentsTotal        *prometheus.CounterVec
	pointsAwardedTotal   *prometheus.CounterVec
	rewardsIssuedTotal   prometheus.Counter
	schedulerRunsTotal   *prometheus.CounterVec
	schedulerDuration    *prometheus.HistogramVec
}

var (
	httpBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	schedulerBuckets = []float64{.01, .05, .25, 1, 5, 30, 120}
)

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Init 在默认注册表上创建收集器，重复调用返回同一实例
func Init(namespace string) *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(namespace, prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New 在指定注册表上创建收集器，测试用独立的 Registry
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "funzone"
	}
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	return &Metrics{
		httpRequestsTotal:    counter("http_requests_total", "HTTP requests by route and status", "method", "path", "status"),
		httpRequestDuration:  histogram("http_request_duration_seconds", "HTTP request latency", httpBuckets, "method", "path"),
		httpRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_in_flight", Help: "HTTP requests currently being served"}),
		cacheHitsTotal:       counter("cache_hits_total", "Redis cache hits", "cache"),
		cacheMissesTotal:     counter("cache_misses_total", "Redis cache misses", "cache"),
		mqttMessagesTotal:    counter("mqtt_messages_total", "MQTT credit publications", "topic", "result"),
		promotionQuotesTotal: counter("promotion_quotes_total", "Promotion resolutions by outcome", "outcome"),
		ticketTransitions:    counter("ticket_transitions_total", "Ticket status transitions", "from", "to"),
		paymentsTotal:        counter("payments_total", "Gateway payment confirmations", "channel", "status"),
		pointsAwardedTotal:   counter("points_awarded_total", "Loyalty points credited", "source"),
		rewardsIssuedTotal:   f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "challenge_rewards_total", Help: "Weekly challenge rewards issued"}),
		schedulerRunsTotal:   counter("scheduler_runs_total", "Scheduled task runs by result", "task", "result"),
		schedulerDuration:    histogram("scheduler_run_duration_seconds", "Scheduled task run time", schedulerBuckets, "task"),
	}
}

// Middleware 按路由模板统计请求，skip 中的路径不计入
func (m *Metrics) Middleware(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露默认注册表
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// 以下记录方法均允许 nil 接收者，便于测试中不注入指标

// RecordCacheHit 记录缓存命中
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordMQTTMessage 记录 MQTT 发布结果
func (m *Metrics) RecordMQTTMessage(topic, result string) {
	if m == nil {
		return
	}
	m.mqttMessagesTotal.WithLabelValues(topic, result).Inc()
}

// RecordPromotionQuote 记录促销解析结果 (applied / none / rejected)
func (m *Metrics) RecordPromotionQuote(outcome string) {
	if m == nil {
		return
	}
	m.promotionQuotesTotal.WithLabelValues(outcome).Inc()
}

// RecordTicketTransition 记录票据状态迁移
func (m *Metrics) RecordTicketTransition(from, to string) {
	if m == nil {
		return
	}
	m.ticketTransitions.WithLabelValues(from, to).Inc()
}

// RecordPayment 记录支付确认
func (m *Metrics) RecordPayment(channel, status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(channel, status).Inc()
}

// RecordPointsAwarded 记录积分入账
func (m *Metrics) RecordPointsAwarded(source string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwardedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordRewardIssued 记录周挑战奖励发放
func (m *Metrics) RecordRewardIssued() {
	if m == nil {
		return
	}
	m.rewardsIssuedTotal.Inc()
}

// RecordSchedulerRun 记录定时任务执行，result 为 ok、error 或 panic
func (m *Metrics) RecordSchedulerRun(task, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.schedulerRunsTotal.WithLabelValues(task, result).Inc()
	m.schedulerDuration.WithLabelValues(task).Observe(d.Seconds())
}
