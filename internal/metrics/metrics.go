// ============================================================================
// simjobs Metrics - Prometheus 指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 記錄單次產生/提交流程的統計，於結束時寫出 textfile
//
// 指標分類:
//
//   1. 計數器 (Counter):
//      - simjobs_units_planned_total:       列舉出的工作單元數
//      - simjobs_units_satisfied_total:     輸出已正確而跳過的單元數
//      - simjobs_scripts_written_total:     寫出的 job 腳本數
//      - simjobs_audit_verdicts_total:      依審核結果分類 (label: verdict)
//
//   2. 狀態指標 (Gauge):
//      - simjobs_submit_exit_code:          排程器提交命令的退出碼（未提交為 -1）
//      - simjobs_run_duration_seconds:      整個流程耗時
//      - simjobs_last_run_timestamp_seconds 最近一次執行時間
//
// 輸出方式:
//   本工具是一次性 CLI，不常駐 HTTP 端點；改用 node_exporter 的
//   textfile collector，流程結束時 WriteTextfile 寫出 .prom 檔。
//
// 所有指標註冊在私有 Registry，避免污染 DefaultRegisterer。
//
// ============================================================================

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChuLiYu/simjobs/pkg/types"
)

// Collector Prometheus 指標收集器
type Collector struct {
	registry *prometheus.Registry

	unitsPlanned   prometheus.Counter
	unitsSatisfied prometheus.Counter
	scriptsWritten prometheus.Counter
	verdicts       *prometheus.CounterVec

	submitExitCode prometheus.Gauge
	runDuration    prometheus.Gauge
	lastRun        prometheus.Gauge
}

// NewCollector 創建新的指標收集器，runID 作為常數標籤
func NewCollector(runID string) *Collector {
	labels := prometheus.Labels{"run_id": runID}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		unitsPlanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simjobs_units_planned_total",
			Help:        "Total number of job units enumerated",
			ConstLabels: labels,
		}),
		unitsSatisfied: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simjobs_units_satisfied_total",
			Help:        "Total number of job units skipped because their output is complete",
			ConstLabels: labels,
		}),
		scriptsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simjobs_scripts_written_total",
			Help:        "Total number of job scripts written",
			ConstLabels: labels,
		}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "simjobs_audit_verdicts_total",
			Help:        "Output audit verdicts by kind",
			ConstLabels: labels,
		}, []string{"verdict"}),
		submitExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "simjobs_submit_exit_code",
			Help:        "Exit code of the scheduler submit command, -1 if not run",
			ConstLabels: labels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "simjobs_run_duration_seconds",
			Help:        "Wall time of the last run in seconds",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "simjobs_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: labels,
		}),
	}

	c.registry.MustRegister(
		c.unitsPlanned,
		c.unitsSatisfied,
		c.scriptsWritten,
		c.verdicts,
		c.submitExitCode,
		c.runDuration,
		c.lastRun,
	)
	c.submitExitCode.Set(-1)

	return c
}

// Registry 回傳底層 Registry（用於測試與 Gather）
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordPlanned 記錄列舉出的單元數
func (c *Collector) RecordPlanned(n int) {
	c.unitsPlanned.Add(float64(n))
}

// RecordVerdict 記錄單一審核結果
func (c *Collector) RecordVerdict(v types.Verdict) {
	c.verdicts.WithLabelValues(string(v)).Inc()
	if v == types.VerdictSatisfied {
		c.unitsSatisfied.Inc()
	}
}

// RecordScriptWritten 記錄寫出一個腳本
func (c *Collector) RecordScriptWritten() {
	c.scriptsWritten.Inc()
}

// RecordSubmit 記錄提交命令的退出碼
func (c *Collector) RecordSubmit(exitCode int) {
	c.submitExitCode.Set(float64(exitCode))
}

// RecordRun 記錄整體耗時與完成時間
func (c *Collector) RecordRun(d time.Duration, finished time.Time) {
	c.runDuration.Set(d.Seconds())
	c.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile 將所有指標以 Prometheus 文字格式寫入檔案
//
// 參數：
//   - path: 輸出檔路徑，通常位於 node_exporter textfile 目錄
//
// 返回值：
//   - error: 寫入失敗的錯誤
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
