// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// クリーンアップ実行結果のラベル値
const (
	CleanupResultSuccess = "success"
	CleanupResultFailure = "failure"
	CleanupResultSkipped = "skipped"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェアやクリーンアップワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordCleanupRun(result string, purged int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	cleanupRuns    *prometheus.CounterVec
	usersPurged    prometheus.Counter
	cleanupLastRun prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_http_requests_total",
			Help: "ルート・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accounts_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cleanupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_cleanup_runs_total",
			Help: "結果別のクリーンアップ実行回数",
		}, []string{"result"}),
		usersPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounts_cleanup_users_purged_total",
			Help: "クリーンアップで物理削除したユーザーの合計数",
		}),
		cleanupLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accounts_cleanup_last_success_timestamp_seconds",
			Help: "最後にクリーンアップが成功した時刻（UNIX秒）",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.cleanupRuns,
		c.usersPurged,
		c.cleanupLastRun,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはURLではなくルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCleanupRun はクリーンアップの実行結果を記録する。
func (c *Collector) RecordCleanupRun(result string, purged int64) {
	c.cleanupRuns.WithLabelValues(result).Inc()
	if result != CleanupResultSuccess {
		return
	}
	c.usersPurged.Add(float64(purged))
	c.cleanupLastRun.SetToCurrentTime()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカープロセス単体でスクレイプを受けるために使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
