// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AI呼び出しの結果ラベル
const (
	AIOutcomeOK       = "ok"
	AIOutcomeRejected = "rejected"
	AIOutcomeError    = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordSignIn(success bool)
	RecordAIRequest(operation, outcome string, duration time.Duration)
	RecordComplimentCreated(anonymous bool)
	RecordConfessionCreated()
	RecordLeaderboardBuild(duration time.Duration, users int)
	RecordCleanupDeleted(kind string, count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIns            *prometheus.CounterVec
	aiRequests         *prometheus.CounterVec
	aiLatency          *prometheus.HistogramVec
	compliments        *prometheus.CounterVec
	confessions        prometheus.Counter
	leaderboardLatency prometheus.Histogram
	leaderboardUsers   prometheus.Gauge
	cleanupDeleted     *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kudos_sign_in_total",
			Help: "サインイン試行の合計数",
		}, []string{"result"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kudos_ai_requests_total",
			Help: "AIモデレーション呼び出しの合計数",
		}, []string{"operation", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kudos_ai_latency_seconds",
			Help:    "AIモデレーション呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		compliments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kudos_compliments_created_total",
			Help: "投稿された賞賛の合計数",
		}, []string{"anonymous"}),
		confessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kudos_confessions_created_total",
			Help: "投稿された告白の合計数",
		}),
		leaderboardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kudos_leaderboard_build_seconds",
			Help:    "リーダーボード集計の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		leaderboardUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kudos_leaderboard_users",
			Help: "直近のリーダーボード集計で対象となったユーザー数",
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kudos_cleanup_deleted_total",
			Help: "クリーンアップで削除された行の合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kudos_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signIns,
		c.aiRequests,
		c.aiLatency,
		c.compliments,
		c.confessions,
		c.leaderboardLatency,
		c.leaderboardUsers,
		c.cleanupDeleted,
		c.httpStatus,
	)

	return c
}

// RecordSignIn はサインインの成否を記録する。
func (c *Collector) RecordSignIn(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.signIns.WithLabelValues(result).Inc()
}

// RecordAIRequest はAI呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordAIRequest(operation, outcome string, duration time.Duration) {
	c.aiRequests.WithLabelValues(operation, outcome).Inc()
	c.aiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordComplimentCreated は賞賛の投稿を記録する。
func (c *Collector) RecordComplimentCreated(anonymous bool) {
	c.compliments.WithLabelValues(strconv.FormatBool(anonymous)).Inc()
}

// RecordConfessionCreated は告白の投稿を記録する。
func (c *Collector) RecordConfessionCreated() {
	c.confessions.Inc()
}

// RecordLeaderboardBuild はリーダーボード集計の所要時間と対象ユーザー数を記録する。
func (c *Collector) RecordLeaderboardBuild(duration time.Duration, users int) {
	c.leaderboardLatency.Observe(duration.Seconds())
	c.leaderboardUsers.Set(float64(users))
}

// RecordCleanupDeleted はクリーンアップで削除された行数を記録する。
func (c *Collector) RecordCleanupDeleted(kind string, count int64) {
	c.cleanupDeleted.WithLabelValues(kind).Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
