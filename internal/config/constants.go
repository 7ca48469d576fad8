package config

const (
	// DefaultConfigPath is where gunlog looks for its configuration when no --config flag is given.
	// DefaultConfigPath 是未指定 --config 时 gunlog 查找配置文件的位置。
	DefaultConfigPath = "gunlog.yaml"

	// DefaultProjectsCSV is the project list read when projects_csv is not set.
	// DefaultProjectsCSV 是未设置 projects_csv 时读取的项目列表。
	DefaultProjectsCSV = "projects.csv"

	// DefaultOutputDir is the report root.
	// DefaultOutputDir 是报告输出根目录。
	DefaultOutputDir = "reports"

	// DefaultDateFormat names the per-run report directory (YYYYMMDD).
	// DefaultDateFormat 决定每次运行的报告目录名（YYYYMMDD）。
	DefaultDateFormat = "%Y%m%d"

	// DefaultWorkers is the number of projects processed in parallel.
	// DefaultWorkers 是并行处理的项目数。
	DefaultWorkers = 4

	// MaxWorkers is the largest worker count accepted without a warning.
	MaxWorkers = 64

	// DefaultTextfilePath is the node_exporter textfile the run metrics are written to.
	// DefaultTextfilePath 是运行指标写入的 node_exporter 文本文件。
	DefaultTextfilePath = "/var/lib/node_exporter/textfile_collector/gunlog.prom"

	// backupsKept is the number of config backups kept by Upgrade.
	backupsKept = 3
)
