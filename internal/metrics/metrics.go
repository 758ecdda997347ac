// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// jibble.MetricsRecorderおよびtimeclock.Metricsを満たす。
type Collector struct {
	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   prometheus.Histogram
	tokenInvalidation prometheus.Counter
	clockIns          prometheus.Counter
	clockOuts         prometheus.Counter
	clockErrors       *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dakoku_upstream_requests_total",
			Help: "Jibble API呼び出しの操作・ステータスコード別の合計数",
		}, []string{"operation", "status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dakoku_upstream_latency_seconds",
			Help:    "Jibble API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokenInvalidation: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dakoku_token_invalidations_total",
			Help: "認証エラーによる資格情報無効化の合計数",
		}),
		clockIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dakoku_clockins_total",
			Help: "クロックイン成功の合計数",
		}),
		clockOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dakoku_clockouts_total",
			Help: "クロックアウト成功の合計数",
		}),
		clockErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dakoku_clock_errors_total",
			Help: "打刻失敗の種別別の合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dakoku_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dakoku_rate_limited_total",
			Help: "レート制限により拒否されたリクエストの合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.tokenInvalidation,
		c.clockIns,
		c.clockOuts,
		c.clockErrors,
		c.httpStatus,
		c.rateLimited,
	)

	return c
}

// RecordUpstreamRequest はJibble API呼び出しを記録する。
func (c *Collector) RecordUpstreamRequest(operation string, statusCode int) {
	c.upstreamRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency はJibble API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(operation string, duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordTokenInvalidation は資格情報の無効化を記録する。
func (c *Collector) RecordTokenInvalidation() {
	c.tokenInvalidation.Inc()
}

// RecordClockIn はクロックイン成功を記録する。
func (c *Collector) RecordClockIn() {
	c.clockIns.Inc()
}

// RecordClockOut はクロックアウト成功を記録する。
func (c *Collector) RecordClockOut() {
	c.clockOuts.Inc()
}

// RecordClockError は打刻失敗を記録する。kindにはclockin/clockoutを渡す。
func (c *Collector) RecordClockError(kind string) {
	c.clockErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
