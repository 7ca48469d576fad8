// Package metrics holds the run metrics and writes them as a node_exporter textfile.
// Package metrics 保存运行指标并以 node_exporter 文本文件格式写出。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every gunlog metric. It is separate from the default
// registry so the textfile carries no Go runtime metrics.
// Registry 保存所有 gunlog 指标，与默认注册表分离，文本文件中不包含 Go 运行时指标。
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Line metrics
	LinesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunlog_lines_total",
			Help: "Log lines read, by project and log kind",
		},
		[]string{"project", "kind"},
	)
	ParseFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunlog_parse_failures_total",
			Help: "Log lines that failed to parse, by project, log kind and reason",
		},
		[]string{"project", "kind", "reason"},
	)

	// Report metrics
	ReportsWrittenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gunlog_reports_written_total",
			Help: "Report files written, by project and report type",
		},
		[]string{"project", "type"},
	)

	// Project metrics
	ProjectDuration = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gunlog_project_duration_seconds",
			Help: "Time spent on the last run of a project",
		},
		[]string{"project"},
	)
	ProjectSuccess = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gunlog_project_success",
			Help: "1 if the last run of a project succeeded, 0 otherwise",
		},
		[]string{"project"},
	)

	// Run metrics
	ProjectsTotal = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gunlog_projects",
			Help: "Projects of the last run by status",
		},
		[]string{"status"},
	)
	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gunlog_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)
	LastRunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gunlog_last_run_duration_seconds",
			Help: "Wall time of the last run",
		},
	)
)

// ObserveProject records the outcome of one project.
// ObserveProject 记录单个项目的运行结果。
func ObserveProject(project string, ok bool, took time.Duration) {
	ProjectDuration.WithLabelValues(project).Set(took.Seconds())
	v := 0.0
	if ok {
		v = 1
	}
	ProjectSuccess.WithLabelValues(project).Set(v)
}

// ObserveRun records the totals of a run.
// ObserveRun 记录一次运行的汇总。
func ObserveRun(succeeded, failed int, finished time.Time, took time.Duration) {
	ProjectsTotal.WithLabelValues("succeeded").Set(float64(succeeded))
	ProjectsTotal.WithLabelValues("failed").Set(float64(failed))
	LastRunTimestamp.Set(float64(finished.Unix()))
	LastRunDuration.Set(took.Seconds())
}

// WriteTextfile writes every metric to path atomically, in the format read by
// the node_exporter textfile collector.
// WriteTextfile 以 node_exporter 文本文件收集器的格式原子写出全部指标。
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
