// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 実行結果のラベル値
const (
	RunStatusOK          = "ok"
	RunStatusConfigError = "config_error"
	RunStatusRetrieval   = "retrieval_error"
	RunStatusStorage     = "storage_error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやディスパッチ層から利用する。
type MetricsCollector interface {
	RecordRun(account, status string)
	RecordCandidates(account string, count int)
	RecordAction(account, kind string, succeeded bool)
	RecordRunDuration(account string, duration time.Duration)
	RecordLedgerSize(account string, size int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	runs        *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	actions     *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	ledgerSize  *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedboost_runs_total",
			Help: "アカウント別・結果別の実行回数",
		}, []string{"account", "status"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedboost_candidates_total",
			Help: "抽出された候補の合計数",
		}, []string{"account"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedboost_actions_total",
			Help: "アクション種別・結果別の実行数",
		}, []string{"account", "kind", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedboost_run_duration_seconds",
			Help:    "1回の実行に要した時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"account"}),
		ledgerSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedboost_ledger_size",
			Help: "台帳に記録された処理済みIDの数",
		}, []string{"account"}),
	}

	reg.MustRegister(
		c.runs,
		c.candidates,
		c.actions,
		c.runDuration,
		c.ledgerSize,
	)

	return c
}

// RecordRun は実行結果を記録する。
func (c *Collector) RecordRun(account, status string) {
	c.runs.WithLabelValues(account, status).Inc()
}

// RecordCandidates は抽出された候補数を記録する。
func (c *Collector) RecordCandidates(account string, count int) {
	c.candidates.WithLabelValues(account).Add(float64(count))
}

// RecordAction はアクション1件の結果を記録する。
func (c *Collector) RecordAction(account, kind string, succeeded bool) {
	result := "failed"
	if succeeded {
		result = "succeeded"
	}
	c.actions.WithLabelValues(account, kind, result).Inc()
}

// RecordRunDuration は実行時間を記録する。
func (c *Collector) RecordRunDuration(account string, duration time.Duration) {
	c.runDuration.WithLabelValues(account).Observe(duration.Seconds())
}

// RecordLedgerSize は保存後の台帳サイズを記録する。
func (c *Collector) RecordLedgerSize(account string, size int) {
	c.ledgerSize.WithLabelValues(account).Set(float64(size))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
