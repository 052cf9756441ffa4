// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ターン種別のラベル値
const (
	TurnText     = "text"
	TurnBatch    = "task_batch"
	TurnDegraded = "degraded"
)

// モデル呼び出し失敗理由のラベル値
const (
	FailureTimeout = "timeout"
	FailureError   = "error"
)

// タスク書き込み経路のラベル値
const (
	PathAccept = "accept"
	PathManual = "manual"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 会話サービス、タスク登録エンジン、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordTurn(kind string)
	RecordModelLatency(duration time.Duration)
	RecordModelFailure(reason string)
	RecordTasksAppended(source string, count int)
	RecordValidationFailure(path string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	turns              *prometheus.CounterVec
	modelLatency       prometheus.Histogram
	modelFailures      *prometheus.CounterVec
	tasksAppended      *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planmate_turns_total",
			Help: "応答種別ごとの会話ターン数",
		}, []string{"kind"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planmate_model_latency_seconds",
			Help:    "モデル呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),
		modelFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planmate_model_failures_total",
			Help: "モデル呼び出し失敗の合計数",
		}, []string{"reason"}),
		tasksAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planmate_tasks_appended_total",
			Help: "スケジュールに追記されたタスクの合計数",
		}, []string{"source"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planmate_validation_failures_total",
			Help: "タスクの検証に失敗した回数",
		}, []string{"path"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planmate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.turns,
		c.modelLatency,
		c.modelFailures,
		c.tasksAppended,
		c.validationFailures,
		c.httpStatus,
	)

	return c
}

// RecordTurn は会話ターンを応答種別付きで記録する。
func (c *Collector) RecordTurn(kind string) {
	c.turns.WithLabelValues(kind).Inc()
}

// RecordModelLatency はモデル呼び出しのレイテンシを記録する。
func (c *Collector) RecordModelLatency(duration time.Duration) {
	c.modelLatency.Observe(duration.Seconds())
}

// RecordModelFailure はモデル呼び出しの失敗を記録する。
func (c *Collector) RecordModelFailure(reason string) {
	c.modelFailures.WithLabelValues(reason).Inc()
}

// RecordTasksAppended は追記したタスク数を記録する。
func (c *Collector) RecordTasksAppended(source string, count int) {
	if count <= 0 {
		return
	}
	c.tasksAppended.WithLabelValues(source).Add(float64(count))
}

// RecordValidationFailure はタスク検証の失敗を記録する。
func (c *Collector) RecordValidationFailure(path string) {
	c.validationFailures.WithLabelValues(path).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordTurn(string) {}
func (NopCollector) RecordModelLatency(time.Duration) {}
func (NopCollector) RecordModelFailure(string) {}
func (NopCollector) RecordTasksAppended(string, int) {}
func (NopCollector) RecordValidationFailure(string) {}
func (NopCollector) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
