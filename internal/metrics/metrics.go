// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、bootstrap、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordBootstrap(success bool)
	RecordTableCreated(table string)
	RecordLogin(success bool)
	RecordResetEmail(success bool)
	RecordResetCodesPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	bootstrapRuns    *prometheus.CounterVec
	tablesCreated    *prometheus.CounterVec
	loginAttempts    *prometheus.CounterVec
	resetEmails      *prometheus.CounterVec
	resetCodesPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fechamento_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fechamento_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bootstrapRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fechamento_bootstrap_runs_total",
			Help: "起動時初期化の実行回数",
		}, []string{"result"}),
		tablesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fechamento_tables_created_total",
			Help: "起動時初期化で作成したテーブル数",
		}, []string{"table"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fechamento_login_attempts_total",
			Help: "ログイン試行数",
		}, []string{"result"}),
		resetEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fechamento_reset_emails_total",
			Help: "パスワードリセットメールの送信数",
		}, []string{"result"}),
		resetCodesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fechamento_reset_codes_purged_total",
			Help: "クリーンアップで削除した期限切れリセットコードの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.bootstrapRuns,
		c.tablesCreated,
		c.loginAttempts,
		c.resetEmails,
		c.resetCodesPurged,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはパスではなくルートパターンを渡し、ラベルのカーディナリティを抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBootstrap は起動時初期化の結果を記録する。
func (c *Collector) RecordBootstrap(success bool) {
	c.bootstrapRuns.WithLabelValues(result(success)).Inc()
}

// RecordTableCreated はテーブル作成を記録する。
func (c *Collector) RecordTableCreated(table string) {
	c.tablesCreated.WithLabelValues(table).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.loginAttempts.WithLabelValues(result(success)).Inc()
}

// RecordResetEmail はリセットメール送信の結果を記録する。
func (c *Collector) RecordResetEmail(success bool) {
	c.resetEmails.WithLabelValues(result(success)).Inc()
}

// RecordResetCodesPurged は削除した期限切れコード数を記録する。
func (c *Collector) RecordResetCodesPurged(count int64) {
	c.resetCodesPurged.Add(float64(count))
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
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

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを必要としないサブコマンドやテストで利用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordBootstrap(bool)                                 {}
func (NopCollector) RecordTableCreated(string)                            {}
func (NopCollector) RecordLogin(bool)                                     {}
func (NopCollector) RecordResetEmail(bool)                                {}
func (NopCollector) RecordResetCodesPurged(int64)                         {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
