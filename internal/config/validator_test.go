package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorFields(r *ValidationResult) []string {
	var out []string
	for _, e := range r.Errors {
		out = append(out, e.Field)
	}
	return out
}

func warningFields(r *ValidationResult) []string {
	var out []string
	for _, w := range r.Warnings {
		out = append(out, w.Field)
	}
	return out
}

// TestConfigValidator_Defaults tests that the defaults are valid
// TestConfigValidator_Defaults 测试默认配置有效
func TestConfigValidator_Defaults(t *testing.T) {
	result := NewConfigValidator().Validate(DefaultConfig())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

// TestConfigValidator_Errors tests each invalid setting
// TestConfigValidator_Errors 测试各项无效配置
func TestConfigValidator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GlobalConfig)
		field  string
	}{
		{"empty projects csv", func(c *GlobalConfig) { c.ProjectsCSV = " " }, "projects_csv"},
		{"empty output dir", func(c *GlobalConfig) { c.OutputDir = "" }, "output_dir"},
		{"bad date format", func(c *GlobalConfig) { c.DateFormat = "%Q" }, "date_format"},
		{"date format with slash", func(c *GlobalConfig) { c.DateFormat = "%Y/%m" }, "date_format"},
		{"zero workers", func(c *GlobalConfig) { c.Workers = 0 }, "workers"},
		{"unknown access format", func(c *GlobalConfig) { c.Parser.AccessFormat = "json" }, "parser.access_format"},
		{"error format for access", func(c *GlobalConfig) { c.Parser.AccessFormat = "nginx_error" }, "parser.access_format"},
		{"access format for errors", func(c *GlobalConfig) { c.Parser.ErrorFormat = "common" }, "parser.error_format"},
		{"bad timestamp", func(c *GlobalConfig) { c.Parser.ErrorTimestamp = "%Y %" }, "parser.error_timestamp"},
		{"unknown report", func(c *GlobalConfig) { c.Reports.Types = []string{"ip", "weather"} }, "reports.types[1]"},
		{"negative top n", func(c *GlobalConfig) { c.Reports.TopN = -1 }, "reports.top_n"},
		{"negative slow threshold", func(c *GlobalConfig) { c.Reports.SlowThreshold = -0.5 }, "reports.slow_threshold"},
		{"no output format", func(c *GlobalConfig) { c.Reports.HTML, c.Reports.Text = false, false }, "reports"},
		{"bad custom key", func(c *GlobalConfig) {
			c.CustomReports = []CustomReportConfig{{Name: "x", Key: "Path +"}}
		}, "custom_reports[0]"},
		{"bad custom metric", func(c *GlobalConfig) {
			c.CustomReports = []CustomReportConfig{{Name: "x", Key: "Path", Metric: "median"}}
		}, "custom_reports[0]"},
		{"duplicate custom", func(c *GlobalConfig) {
			c.CustomReports = []CustomReportConfig{{Name: "x", Key: "Path"}, {Name: "x", Key: "IP"}}
		}, "custom_reports[1].name"},
		{"custom without reports", func(c *GlobalConfig) { c.Reports.Types = []string{"custom"} }, "reports.types[0]"},
		{"unknown custom name", func(c *GlobalConfig) {
			c.CustomReports = []CustomReportConfig{{Name: "x", Key: "Path"}}
			c.Reports.Types = []string{"custom:y"}
		}, "reports.types"},
		{"metrics without path", func(c *GlobalConfig) { c.Metrics = MetricsConfig{Enabled: true} }, "metrics.textfile_path"},
		{"bad log level", func(c *GlobalConfig) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log encoding", func(c *GlobalConfig) { c.Logging.Encoding = "xml" }, "logging.encoding"},
		{"negative backups", func(c *GlobalConfig) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			result := NewConfigValidator().Validate(cfg)
			assert.False(t, result.Valid)
			assert.Contains(t, errorFields(result), tc.field)
		})
	}
}

// TestConfigValidator_Warnings tests non-critical findings
// TestConfigValidator_Warnings 测试非关键问题
func TestConfigValidator_Warnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 500
	cfg.Classifier.ExtraBotSignatures = []string{"ua", ""}
	cfg.Metrics = MetricsConfig{Enabled: true, TextfilePath: "/tmp/gunlog.txt"}
	cfg.Logging.Path = cfg.OutputDir + "/gunlog.log"

	result := NewConfigValidator().Validate(cfg)
	assert.True(t, result.Valid)
	assert.ElementsMatch(t, []string{
		"workers",
		"classifier.extra_bot_signatures[0]",
		"classifier.extra_bot_signatures[1]",
		"metrics.textfile_path",
		"logging.path",
	}, warningFields(result))
}

// TestConfigValidator_CustomReportTypes tests resolving configured custom reports
// TestConfigValidator_CustomReportTypes 测试解析已配置的自定义报告
func TestConfigValidator_CustomReportTypes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomReports = []CustomReportConfig{{Name: "api", Key: "Path", Where: `Path startsWith "/api/"`}}
	cfg.Reports.Types = []string{"custom", "custom:api", "ip"}
	assert.True(t, NewConfigValidator().Validate(cfg).Valid)
}

// TestValidateConfig tests validation from raw YAML
// TestValidateConfig 测试从原始 YAML 验证
func TestValidateConfig(t *testing.T) {
	result, err := ValidateConfig([]byte("workers: [\n"))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"config"}, errorFields(result))

	result, err = ValidateConfig([]byte("workers: -2\nreports:\n  top_n: -1\n"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"workers", "reports.top_n"}, errorFields(result))

	result, err = ValidateConfig([]byte(DefaultConfigTemplate))
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
