// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// remote.Recorder、duty.Recorder、HTTPミドルウェアの記録先を兼ねる。
type Collector struct {
	cacheLookups    *prometheus.CounterVec
	remoteCalls     *prometheus.CounterVec
	remoteLatency   *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	sessionsStarted prometheus.Counter
	sessionsEnded   prometheus.Counter
	sessionHours    prometheus.Histogram
	sessionPieces   prometheus.Histogram
	entriesCreated  prometheus.Counter
	notifications   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_cache_lookups_total",
			Help: "操作別・結果別のキャッシュ参照数",
		}, []string{"op", "result"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_remote_calls_total",
			Help: "操作別・結果別のリモート呼び出し数",
		}, []string{"op", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hrportal_remote_call_duration_seconds",
			Help:    "リモート呼び出し1回あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_remote_retries_total",
			Help: "操作別のリトライ数",
		}, []string{"op"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_rate_limited_total",
			Help: "リミッター別の拒否数",
		}, []string{"limiter"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrportal_duty_sessions_started_total",
			Help: "開始された勤務セッションの合計数",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrportal_duty_sessions_ended_total",
			Help: "終了した勤務セッションの合計数",
		}),
		sessionHours: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hrportal_duty_session_hours",
			Help:    "終了した勤務セッションの長さ（時間）",
			Buckets: []float64{1, 2, 4, 6, 8, 10, 12, 24, 48, 72},
		}),
		sessionPieces: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hrportal_duty_session_pieces",
			Help:    "勤務終了時に保存された記録数",
			Buckets: []float64{1, 2, 3, 5, 10},
		}),
		entriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrportal_working_hours_created_total",
			Help: "手動登録された勤務記録の合計数",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_notifications_total",
			Help: "種類別・結果別の通知送信数",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hrportal_http_requests_total",
			Help: "ルート別・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hrportal_http_request_duration_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.cacheLookups,
		c.remoteCalls,
		c.remoteLatency,
		c.retries,
		c.rateLimited,
		c.sessionsStarted,
		c.sessionsEnded,
		c.sessionHours,
		c.sessionPieces,
		c.entriesCreated,
		c.notifications,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordCacheLookup はキャッシュ参照の結果を記録する。
func (c *Collector) RecordCacheLookup(op string, hit bool) {
	c.cacheLookups.WithLabelValues(opLabel(op), outcome(hit, "hit", "miss")).Inc()
}

// RecordRemoteCall はリモート呼び出し1回の結果と所要時間を記録する。
func (c *Collector) RecordRemoteCall(op string, result string, duration time.Duration) {
	op = opLabel(op)
	c.remoteCalls.WithLabelValues(op, result).Inc()
	c.remoteLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRetry はリトライを記録する。
func (c *Collector) RecordRetry(op string) {
	c.retries.WithLabelValues(opLabel(op)).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limiter string) {
	c.rateLimited.WithLabelValues(limiter).Inc()
}

// RecordSessionStarted は勤務開始を記録する。
func (c *Collector) RecordSessionStarted() {
	c.sessionsStarted.Inc()
}

// RecordSessionEnded は勤務終了を記録する。
func (c *Collector) RecordSessionEnded(hours float64, pieces int) {
	c.sessionsEnded.Inc()
	c.sessionHours.Observe(hours)
	c.sessionPieces.Observe(float64(pieces))
}

// RecordEntriesCreated は手動登録された記録数を記録する。
func (c *Collector) RecordEntriesCreated(count int) {
	c.entriesCreated.Add(float64(count))
}

// RecordNotification は通知送信の結果を記録する。
func (c *Collector) RecordNotification(kind string, ok bool) {
	c.notifications.WithLabelValues(kind, outcome(ok, "ok", "failed")).Inc()
}

// RecordHTTPRequest はHTTPリクエストを記録する。routeはchiのルートパターン。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// opLabel は従業員IDを含む操作名をラベル用に正規化する。
// "working_hours.list:<id>" は "working_hours.list" になる。
func opLabel(op string) string {
	name, _, _ := strings.Cut(op, ":")
	return name
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
