package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New("test", prometheus.NewRegistry())
}

func TestInit_ReturnsSingleton(t *testing.T) {
	m1 := Init("")
	m2 := Init("other")
	require.NotNil(t, m1)
	assert.Same(t, m1, m2)
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPromotionQuote("applied")
	m.RecordPromotionQuote("applied")
	m.RecordPromotionQuote("none")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.promotionQuotesTotal.WithLabelValues("applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promotionQuotesTotal.WithLabelValues("none")))

	m.RecordTicketTransition("PENDING", "PAID")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticketTransitions.WithLabelValues("PENDING", "PAID")))

	m.RecordPointsAwarded("purchase", 24)
	m.RecordPointsAwarded("purchase", 0)
	assert.Equal(t, float64(24), testutil.ToFloat64(m.pointsAwardedTotal.WithLabelValues("purchase")))

	m.RecordRewardIssued()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rewardsIssuedTotal))

	m.RecordPayment("vnpay", "success")
	m.RecordCacheHit("promotion")
	m.RecordCacheMiss("promotion")
	m.RecordMQTTMessage("game/1/credit", "ok")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("promotion")))

	m.RecordSchedulerRun("expire_stale_bookings", "ok", 20*time.Millisecond)
	m.RecordSchedulerRun("expire_stale_bookings", "error", time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.schedulerRunsTotal.WithLabelValues("expire_stale_bookings", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.schedulerDuration))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPromotionQuote("applied")
		m.RecordTicketTransition("BOOKED", "PENDING")
		m.RecordPointsAwarded("purchase", 3)
		m.RecordRewardIssued()
		m.RecordPayment("vnpay", "success")
		m.RecordCacheHit("x")
		m.RecordCacheMiss("x")
		m.RecordMQTTMessage("t", "ok")
		m.RecordSchedulerRun("t", "ok", time.Second)
	})
}

func TestMetrics_Middleware(t *testing.T) {
	m := newTestMetrics(t)

	router := gin.New()
	router.Use(m.Middleware("/metrics"))
	router.GET("/api/v1/promotions/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/promotions/open", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/promotions/open", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpRequestsTotal), "/metrics 不应计入")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.httpRequestsInFlight))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/tickets/77", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestHandler(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_")
}
