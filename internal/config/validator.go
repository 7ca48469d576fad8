package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netxfw/gunlog/internal/aggregate"
	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/utils/logger"
)

// ValidationError represents a single validation error.
// ValidationError 表示单个验证错误。
type ValidationError struct {
	Field   string `json:"field"`   // Field path (e.g., "reports.top_n")
	Message string `json:"message"` // Error message
	Value   any    `json:"value"`   // The invalid value (optional)
}

// ValidationWarning represents a potential issue that's not critical.
// ValidationWarning 表示非关键的潜在问题。
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationResult contains all validation errors and warnings.
// ValidationResult 包含所有验证错误和警告。
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// AddError adds a validation error.
// AddError 添加验证错误。
func (r *ValidationResult) AddError(field, message string, value any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
	r.Valid = false
}

// AddWarning adds a validation warning.
// AddWarning 添加验证警告。
func (r *ValidationResult) AddWarning(field, message string, value any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Value: value})
}

func newResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
}

// ConfigValidator provides configuration validation functionality.
// ConfigValidator 提供配置验证功能。
type ConfigValidator struct {
	// Limits for range checks / 范围检查的限制
	MaxWorkers      int
	MaxTopN         int
	MaxEvents       int
	MinSignatureLen int
}

// NewConfigValidator creates a new ConfigValidator with default limits.
// NewConfigValidator 创建具有默认限制的新 ConfigValidator。
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		MaxWorkers:      MaxWorkers,
		MaxTopN:         1000,
		MaxEvents:       10000,
		MinSignatureLen: 3,
	}
}

// ValidateSyntax validates the YAML syntax of the configuration.
// ValidateSyntax 验证配置的 YAML 语法。
func (v *ConfigValidator) ValidateSyntax(configData []byte) *ValidationResult {
	result := newResult()
	var raw map[string]any
	if err := yaml.Unmarshal(configData, &raw); err != nil {
		result.AddError("config", fmt.Sprintf("YAML syntax error: %v", err), nil)
	}
	return result
}

// Validate validates the entire configuration.
// Validate 验证整个配置。
func (v *ConfigValidator) Validate(cfg *GlobalConfig) *ValidationResult {
	result := newResult()

	v.validatePaths(cfg, result)
	v.validateParserConfig(&cfg.Parser, result)
	v.validateClassifierConfig(&cfg.Classifier, result)
	v.validateReportsConfig(&cfg.Reports, result)
	v.validateCustomReports(cfg.CustomReports, result)
	v.validateMetricsConfig(&cfg.Metrics, result)
	v.validateLoggingConfig(&cfg.Logging, result)

	// Cross-section validation / 跨部分验证
	v.detectConflicts(cfg, result)

	return result
}

func (v *ConfigValidator) validatePaths(cfg *GlobalConfig, result *ValidationResult) {
	if strings.TrimSpace(cfg.ProjectsCSV) == "" {
		result.AddError("projects_csv", "Project list path is required", nil)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		result.AddError("output_dir", "Output directory is required", nil)
	}

	// Validate date format / 验证日期格式
	if _, err := logengine.StrftimeToLayout(cfg.DateFormat); err != nil {
		result.AddError("date_format", fmt.Sprintf("Invalid date format: %v", err), cfg.DateFormat)
	} else if strings.ContainsAny(cfg.DateFormat, `/\`) {
		result.AddError("date_format", "Date format names a directory and cannot contain path separators", cfg.DateFormat)
	}

	// Validate workers / 验证并发数
	if cfg.Workers < 1 {
		result.AddError("workers", "Workers must be at least 1", cfg.Workers)
	} else if cfg.Workers > v.MaxWorkers {
		result.AddWarning("workers",
			fmt.Sprintf("More than %d workers rarely helps; projects are disk bound", v.MaxWorkers), cfg.Workers)
	}
}

// validateParserConfig checks formats against the log kind they are used for.
// validateParserConfig 按日志类型校验格式。
func (v *ConfigValidator) validateParserConfig(cfg *ParserConfig, result *ValidationResult) {
	if f, err := logengine.ParseFormat(cfg.AccessFormat); err != nil {
		result.AddError("parser.access_format",
			fmt.Sprintf("Unknown format, expected one of: %v", logengine.Formats), cfg.AccessFormat)
	} else if !f.IsAccess() {
		result.AddError("parser.access_format", "Format does not describe access logs", cfg.AccessFormat)
	}

	if cfg.ErrorFormat != "" {
		if f, err := logengine.ParseFormat(cfg.ErrorFormat); err != nil {
			result.AddError("parser.error_format",
				fmt.Sprintf("Unknown format, expected one of: %v", logengine.Formats), cfg.ErrorFormat)
		} else if f.IsAccess() {
			result.AddError("parser.error_format", "Format does not describe error logs", cfg.ErrorFormat)
		}
	}

	for _, p := range []struct{ field, pattern string }{
		{"parser.access_timestamp", cfg.AccessTimestamp},
		{"parser.error_timestamp", cfg.ErrorTimestamp},
	} {
		if p.pattern == "" {
			continue
		}
		if _, err := logengine.StrftimeToLayout(p.pattern); err != nil {
			result.AddError(p.field, fmt.Sprintf("Invalid timestamp pattern: %v", err), p.pattern)
		}
	}
}

func (v *ConfigValidator) validateClassifierConfig(cfg *ClassifierConfig, result *ValidationResult) {
	check := func(field string, sigs []string) {
		for i, s := range sigs {
			s = strings.TrimSpace(s)
			switch {
			case s == "":
				result.AddWarning(fmt.Sprintf("%s[%d]", field, i), "Empty signature is ignored", nil)
			case len(s) < v.MinSignatureLen:
				result.AddWarning(fmt.Sprintf("%s[%d]", field, i),
					"Very short signature may classify most browsers as bots", s)
			}
		}
	}
	check("classifier.bot_signatures", cfg.BotSignatures)
	check("classifier.extra_bot_signatures", cfg.ExtraBotSignatures)
}

// validateReportsConfig validates report types and thresholds.
// validateReportsConfig 验证报告类型与阈值。
func (v *ConfigValidator) validateReportsConfig(cfg *ReportsConfig, result *ValidationResult) {
	for i, name := range cfg.Types {
		if _, err := analysis.ParseType(name); err != nil {
			result.AddError(fmt.Sprintf("reports.types[%d]", i),
				fmt.Sprintf("Unknown report type, expected one of: %v", analysis.Types), name)
		}
	}

	if cfg.TopN < 0 {
		result.AddError("reports.top_n", "Top N cannot be negative", cfg.TopN)
	} else if cfg.TopN > v.MaxTopN {
		result.AddWarning("reports.top_n", "Very long tables make reports hard to read", cfg.TopN)
	}
	if cfg.SlowThreshold < 0 {
		result.AddError("reports.slow_threshold", "Slow threshold cannot be negative", cfg.SlowThreshold)
	}
	if cfg.MaxEvents < 0 {
		result.AddError("reports.max_events", "Max events cannot be negative", cfg.MaxEvents)
	} else if cfg.MaxEvents > v.MaxEvents {
		result.AddWarning("reports.max_events", "Very long event lists make reports large", cfg.MaxEvents)
	}
	if cfg.RateLimit < 0 {
		result.AddError("reports.rate_limit", "Rate limit cannot be negative", cfg.RateLimit)
	}
	if cfg.RateWindow < 0 {
		result.AddError("reports.rate_window", "Rate window cannot be negative", cfg.RateWindow)
	}
	if cfg.AuthFailureThreshold < 0 {
		result.AddError("reports.auth_failure_threshold", "Threshold cannot be negative", cfg.AuthFailureThreshold)
	}

	if !cfg.HTML && !cfg.Text {
		result.AddError("reports", "At least one of html and text output must be enabled", nil)
	}
}

// validateCustomReports compiles every custom report once.
// validateCustomReports 逐个编译自定义报告。
func (v *ConfigValidator) validateCustomReports(reports []CustomReportConfig, result *ValidationResult) {
	seen := make(map[string]bool)
	for i, cr := range reports {
		field := fmt.Sprintf("custom_reports[%d]", i)
		if _, err := aggregate.BuildSpec(cr.Spec()); err != nil {
			result.AddError(field, err.Error(), cr.Name)
			continue
		}
		if seen[cr.Name] {
			result.AddError(field+".name", "Duplicate custom report name", cr.Name)
		}
		seen[cr.Name] = true
	}
}

func (v *ConfigValidator) validateMetricsConfig(cfg *MetricsConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}
	if cfg.TextfilePath == "" {
		result.AddError("metrics.textfile_path", "Textfile path is required when metrics are enabled", nil)
	} else if !strings.HasSuffix(cfg.TextfilePath, ".prom") {
		result.AddWarning("metrics.textfile_path", "node_exporter only reads files ending in .prom", cfg.TextfilePath)
	}
}

// validateLoggingConfig validates logging configuration.
// validateLoggingConfig 验证日志配置。
func (v *ConfigValidator) validateLoggingConfig(cfg *logger.LoggingConfig, result *ValidationResult) {
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Level != "" && !slices.Contains(validLevels, strings.ToLower(cfg.Level)) {
		result.AddError("logging.level", fmt.Sprintf("Log level must be one of: %v", validLevels), cfg.Level)
	}
	if cfg.Encoding != "" && cfg.Encoding != "console" && cfg.Encoding != "json" {
		result.AddError("logging.encoding", "Encoding must be console or json", cfg.Encoding)
	}
	if cfg.MaxSize < 0 {
		result.AddError("logging.max_size", "Max size cannot be negative", cfg.MaxSize)
	} else if cfg.MaxSize > 1000 {
		result.AddWarning("logging.max_size", "Very large log file size may cause disk space issues", cfg.MaxSize)
	}
	if cfg.MaxBackups < 0 {
		result.AddError("logging.max_backups", "Max backups cannot be negative", cfg.MaxBackups)
	}
	if cfg.MaxAge < 0 {
		result.AddError("logging.max_age", "Max age cannot be negative", cfg.MaxAge)
	}
}

// detectConflicts detects conflicts between different configuration sections.
// detectConflicts 检测不同配置部分之间的冲突。
func (v *ConfigValidator) detectConflicts(cfg *GlobalConfig, result *ValidationResult) {
	// "custom" without custom reports produces nothing
	// 未配置自定义报告时请求 "custom" 不会产生任何输出
	if len(cfg.CustomReports) == 0 {
		for i, name := range cfg.Reports.Types {
			if t, err := analysis.ParseType(name); err == nil && t.IsCustom() {
				result.AddError(fmt.Sprintf("reports.types[%d]", i),
					"Custom report requested but custom_reports is empty", name)
			}
		}
	}

	// Custom report names must exist / 自定义报告名称必须存在
	if len(cfg.CustomReports) > 0 && result.Valid {
		if cat, err := analysis.NewCatalog(cfg.AnalysisOptions()); err == nil {
			if _, err := cat.Resolve(cfg.Reports.Types); err != nil {
				result.AddError("reports.types", err.Error(), cfg.Reports.Types)
			}
		}
	}

	// A log file inside the output directory is published with the reports
	// 日志文件位于输出目录内时会随报告一同发布
	if cfg.Logging.Path != "" && cfg.OutputDir != "" {
		if rel, err := filepath.Rel(cfg.OutputDir, cfg.Logging.Path); err == nil && !strings.HasPrefix(rel, "..") {
			result.AddWarning("logging.path", "Log file is inside the output directory", cfg.Logging.Path)
		}
	}
}

// ValidateConfig validates a configuration from raw YAML data.
// ValidateConfig 从原始 YAML 数据验证配置。
func ValidateConfig(configData []byte) (*ValidationResult, error) {
	validator := NewConfigValidator()

	// First validate syntax / 首先验证语法
	syntaxResult := validator.ValidateSyntax(configData)
	if !syntaxResult.Valid {
		return syntaxResult, nil
	}

	cfg, err := Parse(configData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return validator.Validate(cfg), nil
}
