package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netxfw/gunlog/internal/utils/fileutil"
	"github.com/netxfw/gunlog/internal/utils/logger"
	"github.com/netxfw/gunlog/pkg/errors"
)

// DefaultConfigTemplate is written by `gunlog init` and is the source of
// structure and comments when an existing file is upgraded.
// DefaultConfigTemplate 由 `gunlog init` 写出，升级已有配置时作为结构与注释的来源。
const DefaultConfigTemplate = `# GunLog Configuration File / GunLog 配置文件
#

# Project list: CSV with columns project,log_file,error_log_file.
# Optional columns format and error_format override the parser formats per project.
# 项目列表：包含 project,log_file,error_log_file 列的 CSV 文件。
# 可选列 format 与 error_format 可按项目覆盖解析格式。
projects_csv: "projects.csv"

# Output directory: reports go to <output_dir>/<project>/<date>/.
# 输出目录：报告写入 <output_dir>/<project>/<date>/。
output_dir: "reports"

# Date format (strftime) of the per-run report directory.
# 每次运行的报告目录日期格式（strftime）。
date_format: "%Y%m%d"

# Workers: number of projects processed in parallel.
# 并发数：并行处理的项目数量。
workers: 4

# Parser Configuration / 解析配置
parser:
  # Access log format: combined or common.
  # A trailing request time in seconds is picked up when present.
  # 访问日志格式：combined 或 common。
  # 行尾的请求耗时（秒）存在时会被读取。
  access_format: "combined"

  # Access timestamp pattern (strftime). Empty uses %d/%b/%Y:%H:%M:%S %z.
  # 访问日志时间戳模式（strftime），为空时使用 %d/%b/%Y:%H:%M:%S %z。
  access_timestamp: ""

  # Error log format: error (Apache), nginx_error or php_error.
  # 错误日志格式：error（Apache）、nginx_error 或 php_error。
  error_format: "error"

  # Error timestamp pattern (strftime). Empty uses the format's default.
  # 错误日志时间戳模式（strftime），为空时使用该格式的默认值。
  error_timestamp: ""

# Classifier Configuration / 分类配置
classifier:
  # Bot signatures: case-insensitive user agent substrings.
  # Empty uses the built-in list.
  # 爬虫特征：不区分大小写的 UA 子串，为空时使用内置列表。
  bot_signatures: []

  # Extra signatures appended to the list above.
  # 追加到上述列表的额外特征。
  extra_bot_signatures: []

# Report Configuration / 报告配置
reports:
  # Report types: error, daily, ip, popular, performance, content,
  # security, seo, traffic, custom. Empty runs all of them.
  # 报告类型，为空时生成全部报告。
  types: []

  # Rows per table. 0 renders every row.
  # 每张表显示的行数，0 表示全部。
  top_n: 25

  # Requests slower than this many seconds are listed as slow.
  # 耗时超过该秒数的请求被列为慢请求。
  slow_threshold: 1.0

  # Maximum number of events listed per report.
  # 每份报告列出的最大事件数。
  max_events: 100

  # Rate limit: more than rate_limit requests per rate_window seconds from one IP.
  # 速率限制：单个 IP 在 rate_window 秒内请求超过 rate_limit 次。
  rate_limit: 60
  rate_window: 60

  # 401/403 responses per IP before an authentication failure is reported.
  # 单个 IP 的 401/403 次数达到该值时报告认证失败。
  auth_failure_threshold: 3

  # Output formats / 输出格式
  html: true
  text: true

# Custom Reports / 自定义报告
# Each entry adds one table to the "custom" report. key and where are expressions
# over the record fields (IP, Method, Path, Status, Bytes, UserAgent, IsBot, ...).
# 每一项向 "custom" 报告添加一张表，key 与 where 为基于记录字段的表达式。
custom_reports: []
#  - name: "api_errors"
#    title: "API Server Errors"
#    key: "Path"
#    where: 'Status >= 500 && Path startsWith "/api/"'
#    metric: "count"
#    limit: 20

# Metrics Configuration / 指标配置
metrics:
  # Write run metrics as a node_exporter textfile after each run.
  # 每次运行后将运行指标写入 node_exporter 文本文件。
  enabled: false
  textfile_path: "/var/lib/node_exporter/textfile_collector/gunlog.prom"

# Logging Configuration / 日志配置
logging:
  # Level: debug, info, warn, error / 日志级别
  level: "info"
  # Encoding: console or json / 输出编码
  encoding: "console"
  # Optional log file; empty logs to stderr only.
  # 可选日志文件，为空时只输出到 stderr。
  path: ""
  max_size: 10 # MB
  max_backups: 3
  max_age: 30 # days
  compress: true
`

// GlobalConfig is the gunlog configuration file.
// GlobalConfig 为 gunlog 配置文件结构。
type GlobalConfig struct {
	ProjectsCSV   string               `yaml:"projects_csv"`
	OutputDir     string               `yaml:"output_dir"`
	DateFormat    string               `yaml:"date_format"`
	Workers       int                  `yaml:"workers"`
	Parser        ParserConfig         `yaml:"parser"`
	Classifier    ClassifierConfig     `yaml:"classifier"`
	Reports       ReportsConfig        `yaml:"reports"`
	CustomReports []CustomReportConfig `yaml:"custom_reports"`
	Metrics       MetricsConfig        `yaml:"metrics"`
	Logging       logger.LoggingConfig `yaml:"logging"`
}

// ParserConfig selects the log formats and timestamp patterns.
// ParserConfig 选择日志格式与时间戳模式。
type ParserConfig struct {
	AccessFormat    string `yaml:"access_format"`
	AccessTimestamp string `yaml:"access_timestamp"`
	ErrorFormat     string `yaml:"error_format"`
	ErrorTimestamp  string `yaml:"error_timestamp"`
}

// ClassifierConfig configures bot detection.
// ClassifierConfig 配置爬虫识别。
type ClassifierConfig struct {
	BotSignatures      []string `yaml:"bot_signatures"`
	ExtraBotSignatures []string `yaml:"extra_bot_signatures"`
}

// ReportsConfig selects report types and their thresholds.
// ReportsConfig 选择报告类型及其阈值。
type ReportsConfig struct {
	Types                []string `yaml:"types"`
	TopN                 int      `yaml:"top_n"`
	SlowThreshold        float64  `yaml:"slow_threshold"`
	MaxEvents            int      `yaml:"max_events"`
	RateLimit            int      `yaml:"rate_limit"`
	RateWindow           int      `yaml:"rate_window"`
	AuthFailureThreshold int      `yaml:"auth_failure_threshold"`
	HTML                 bool     `yaml:"html"`
	Text                 bool     `yaml:"text"`
}

// CustomReportConfig is one user-defined table.
// CustomReportConfig 为一张用户自定义表。
type CustomReportConfig struct {
	Name   string `yaml:"name"`
	Title  string `yaml:"title,omitempty"`
	Key    string `yaml:"key"`
	Where  string `yaml:"where,omitempty"`
	Metric string `yaml:"metric,omitempty"`
	Limit  int    `yaml:"limit,omitempty"`
}

// MetricsConfig controls the textfile export of run metrics.
// MetricsConfig 控制运行指标的文本文件导出。
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// DefaultConfig returns the configuration used for keys missing from the file.
// DefaultConfig 返回文件中缺失键时使用的默认配置。
func DefaultConfig() *GlobalConfig {
	return &GlobalConfig{
		ProjectsCSV: DefaultProjectsCSV,
		OutputDir:   DefaultOutputDir,
		DateFormat:  DefaultDateFormat,
		Workers:     DefaultWorkers,
		Parser: ParserConfig{
			AccessFormat: "combined",
			ErrorFormat:  "error",
		},
		Reports: ReportsConfig{
			TopN:                 25,
			SlowThreshold:        1.0,
			MaxEvents:            100,
			RateLimit:            60,
			RateWindow:           60,
			AuthFailureThreshold: 3,
			HTML:                 true,
			Text:                 true,
		},
		Metrics: MetricsConfig{
			Enabled:      false,
			TextfilePath: DefaultTextfilePath,
		},
		Logging: logger.LoggingConfig{
			Level:      "info",
			Encoding:   "console",
			MaxSize:    10, // 10MB
			MaxBackups: 3,
			MaxAge:     30, // 30 days
			Compress:   true,
		},
	}
}

// Parse decodes data over the defaults. An empty document yields the defaults.
// Parse 在默认值之上解码 data，空文档返回默认配置。
func Parse(data []byte) (*GlobalConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

// LoadGlobalConfig reads, decodes and validates the configuration at path.
// Every failure is an invalid configuration and aborts the run.
// LoadGlobalConfig 读取、解码并校验配置，任何失败都视为无效配置并终止运行。
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	safePath := filepath.Clean(path) // Sanitize path to prevent directory traversal
	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, errors.NewFileError(safePath, err))
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Validate configuration / 验证配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate returns the first validation error, wrapped as ErrInvalidConfiguration.
// Warnings are logged.
// Validate 返回第一个校验错误（包装为 ErrInvalidConfiguration），警告仅记录日志。
func (c *GlobalConfig) Validate() error {
	result := NewConfigValidator().Validate(c)
	log := logger.Get(nil)
	for _, w := range result.Warnings {
		log.Warnf("[WARN]  %s: %s", w.Field, w.Message)
	}
	if result.Valid {
		return nil
	}
	first := result.Errors[0]
	return fmt.Errorf("%w (%s)", errors.NewConfigError(first.Field, first.Value), first.Message)
}

// SaveGlobalConfig writes cfg to path, keeping the comments of an existing file.
// SaveGlobalConfig 将 cfg 写入 path，并保留已有文件中的注释。
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var newNode yaml.Node
	if unmarshalErr := yaml.Unmarshal(data, &newNode); unmarshalErr != nil {
		return unmarshalErr
	}

	safePath := filepath.Clean(path)
	fileData, readErr := os.ReadFile(safePath)
	if readErr == nil {
		var fileNode yaml.Node
		if unmarshalErr := yaml.Unmarshal(fileData, &fileNode); unmarshalErr == nil && len(fileNode.Content) > 0 {
			// Merge new values INTO the file (preserving comments)
			// 将新值合并到文件中（保留注释）
			MergeYamlNodes(&fileNode, &newNode)
			out, encodeErr := encodeNode(&fileNode)
			if encodeErr != nil {
				return encodeErr
			}
			return fileutil.AtomicWriteFile(safePath, out, 0600)
		}
	}

	// Fallback if file doesn't exist or is malformed: just write the new config
	return fileutil.AtomicWriteFile(safePath, data, 0600)
}

// Upgrade rewrites the file at path on the structure and comments of
// DefaultConfigTemplate, keeping every user value and extra key. The original
// is backed up first. It returns false when nothing changed.
// Upgrade 以 DefaultConfigTemplate 的结构与注释重写配置文件，保留用户的值与额外键，
// 写入前先备份原文件。未发生变化时返回 false。
func Upgrade(path string) (bool, error) {
	log := logger.Get(nil)
	safePath := filepath.Clean(path)
	data, err := os.ReadFile(safePath)
	if err != nil {
		return false, errors.NewFileError(safePath, err)
	}

	var defaultNode yaml.Node
	if err := yaml.Unmarshal([]byte(DefaultConfigTemplate), &defaultNode); err != nil {
		return false, fmt.Errorf("parse default config template: %w", err)
	}
	var fileNode yaml.Node
	if err := yaml.Unmarshal(data, &fileNode); err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrInvalidConfiguration, err)
	}
	if len(fileNode.Content) > 0 {
		MergeYamlNodes(&defaultNode, &fileNode)
	}

	out, err := encodeNode(&defaultNode)
	if err != nil {
		return false, err
	}
	if bytes.Equal(out, data) {
		return false, nil
	}

	backupPath := safePath + ".bak." + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return false, fmt.Errorf("backup config file: %w", err)
	}
	cleanupBackups(safePath, backupsKept)

	if err := fileutil.AtomicWriteFile(safePath, out, 0600); err != nil {
		return false, err
	}
	log.Infof("[OK] Configuration file %s upgraded (backup: %s)", safePath, backupPath)
	return true, nil
}

func encodeNode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MergeYamlNodes updates target with the values of source. Target keeps its key
// order and comments; keys only present in source are appended.
// MergeYamlNodes 用 source 的值更新 target，target 保留键顺序与注释，仅存在于 source 的键被追加。
func MergeYamlNodes(target, source *yaml.Node) {
	if target.Kind == yaml.DocumentNode {
		if source.Kind == yaml.DocumentNode && len(target.Content) > 0 && len(source.Content) > 0 {
			MergeYamlNodes(target.Content[0], source.Content[0])
		}
		return
	}

	if target.Kind != yaml.MappingNode || source.Kind != yaml.MappingNode {
		// Replace target with source, keeping target comments when source has none
		if source.HeadComment == "" {
			source.HeadComment = target.HeadComment
		}
		if source.LineComment == "" {
			source.LineComment = target.LineComment
		}
		if source.FootComment == "" {
			source.FootComment = target.FootComment
		}
		*target = *source
		return
	}

	sourceIdx := make(map[string]int, len(source.Content)/2)
	for i := 0; i+1 < len(source.Content); i += 2 {
		sourceIdx[source.Content[i].Value] = i
	}

	content := make([]*yaml.Node, 0, len(target.Content))
	seen := make(map[string]bool)
	for i := 0; i+1 < len(target.Content); i += 2 {
		tKey, tVal := target.Content[i], target.Content[i+1]
		if sIdx, ok := sourceIdx[tKey.Value]; ok {
			MergeYamlNodes(tVal, source.Content[sIdx+1])
			seen[tKey.Value] = true
		}
		content = append(content, tKey, tVal)
	}
	for i := 0; i+1 < len(source.Content); i += 2 {
		if !seen[source.Content[i].Value] {
			content = append(content, source.Content[i], source.Content[i+1])
		}
	}
	target.Content = content
}

// cleanupBackups keeps only the latest keep backup files.
func cleanupBackups(originalPath string, keep int) {
	log := logger.Get(nil)
	matches, err := filepath.Glob(originalPath + ".bak.*")
	if err != nil || len(matches) <= keep {
		return
	}

	// Timestamps sort chronologically
	slices.Sort(matches)
	for _, f := range matches[:len(matches)-keep] {
		if err := os.Remove(f); err == nil {
			log.Infof("[DELETE] Removed old backup: %s", f)
		}
	}
}
