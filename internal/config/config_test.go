package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netxfw/gunlog/internal/analysis"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gunlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestDefaultConfigTemplate tests that the template decodes to the defaults
// TestDefaultConfigTemplate 测试模板解码结果与默认配置一致
func TestDefaultConfigTemplate(t *testing.T) {
	cfg, err := Parse([]byte(DefaultConfigTemplate))
	require.NoError(t, err)
	def := DefaultConfig()

	assert.Equal(t, def.ProjectsCSV, cfg.ProjectsCSV)
	assert.Equal(t, def.OutputDir, cfg.OutputDir)
	assert.Equal(t, def.DateFormat, cfg.DateFormat)
	assert.Equal(t, def.Workers, cfg.Workers)
	assert.Equal(t, def.Parser, cfg.Parser)
	assert.Equal(t, def.Reports.TopN, cfg.Reports.TopN)
	assert.Equal(t, def.Reports.SlowThreshold, cfg.Reports.SlowThreshold)
	assert.Equal(t, def.Reports.RateLimit, cfg.Reports.RateLimit)
	assert.True(t, cfg.Reports.HTML)
	assert.True(t, cfg.Reports.Text)
	assert.Empty(t, cfg.Reports.Types)
	assert.Empty(t, cfg.CustomReports)
	assert.Equal(t, def.Metrics, cfg.Metrics)
	assert.Equal(t, def.Logging, cfg.Logging)
	assert.True(t, NewConfigValidator().Validate(cfg).Valid)
}

// TestLoadGlobalConfig tests loading values over the defaults
// TestLoadGlobalConfig 测试在默认值之上加载配置
func TestLoadGlobalConfig(t *testing.T) {
	path := writeConfig(t, `
projects_csv: /etc/gunlog/projects.csv
workers: 8
parser:
  access_format: common
reports:
  types: [ip, security]
  top_n: 10
custom_reports:
  - name: api_errors
    key: Path
    where: 'Status >= 500'
`)
	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/gunlog/projects.csv", cfg.ProjectsCSV)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "common", cfg.Parser.AccessFormat)
	assert.Equal(t, "error", cfg.Parser.ErrorFormat, "untouched keys keep their defaults")
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, 10, cfg.Reports.TopN)
	assert.Equal(t, 60, cfg.Reports.RateLimit)
	require.Len(t, cfg.CustomReports, 1)
	assert.Equal(t, "api_errors", cfg.CustomReports[0].Name)
}

// TestLoadGlobalConfig_Empty tests that an empty file yields the defaults
// TestLoadGlobalConfig_Empty 测试空文件返回默认配置
func TestLoadGlobalConfig_Empty(t *testing.T) {
	cfg, err := LoadGlobalConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestLoadGlobalConfig_Errors tests that every failure is a configuration error
// TestLoadGlobalConfig_Errors 测试所有失败均为配置错误
func TestLoadGlobalConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		extra   error
	}{
		{"syntax", "workers: [\n", nil},
		{"unknown format", "parser:\n  access_format: json\n", nil},
		{"unknown report", "reports:\n  types: [weather]\n", nil},
		{"zero workers", "workers: 0\n", nil},
		{"bad custom expression", "custom_reports:\n  - name: x\n    key: 'Path +'\n", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadGlobalConfig(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
			assert.True(t, errors.IsFatalForRun(err))
		})
	}

	_, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
}

// TestSaveGlobalConfig_KeepsComments tests that saving keeps existing comments
// TestSaveGlobalConfig_KeepsComments 测试保存时保留已有注释
func TestSaveGlobalConfig_KeepsComments(t *testing.T) {
	path := writeConfig(t, DefaultConfigTemplate)

	cfg := DefaultConfig()
	cfg.Workers = 12
	require.NoError(t, SaveGlobalConfig(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Workers: number of projects processed in parallel.")
	assert.Contains(t, string(data), "workers: 12")

	loaded, err := LoadGlobalConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Workers)
}

// TestUpgrade tests restoring missing keys and comments
// TestUpgrade 测试补全缺失键与注释
func TestUpgrade(t *testing.T) {
	path := writeConfig(t, "workers: 3\nlegacy_key: kept\n")

	changed, err := Upgrade(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 3")
	assert.Contains(t, string(data), "legacy_key: kept")
	assert.Contains(t, string(data), "# Parser Configuration")

	backups, err := filepath.Glob(path + ".bak.*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "combined", cfg.Parser.AccessFormat)
}

// TestCleanupBackups tests that only the newest backups are kept
// TestCleanupBackups 测试仅保留最新的备份
func TestCleanupBackups(t *testing.T) {
	path := writeConfig(t, "workers: 1\n")
	for _, stamp := range []string{"20250101-000000", "20250102-000000", "20250103-000000", "20250104-000000"} {
		require.NoError(t, os.WriteFile(path+".bak."+stamp, nil, 0600))
	}
	cleanupBackups(path, 2)

	backups, err := filepath.Glob(path + ".bak.*")
	require.NoError(t, err)
	assert.Equal(t, []string{path + ".bak.20250103-000000", path + ".bak.20250104-000000"}, backups)
}

// TestOptions tests the mapping onto parser, classifier and analysis options
// TestOptions 测试到解析、分类与分析选项的映射
func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parser.AccessTimestamp = "%Y-%m-%dT%H:%M:%S%z"
	cfg.Classifier.ExtraBotSignatures = []string{"MyMonitor"}
	cfg.CustomReports = []CustomReportConfig{{Name: "slow", Key: "Path", Where: "ResponseTime > 2", Limit: 5}}

	access := cfg.AccessParserOptions("")
	assert.Equal(t, logengine.FormatCombined, access.Format)
	assert.Equal(t, "%Y-%m-%dT%H:%M:%S%z", access.TimestampPattern)
	assert.Equal(t, logengine.FormatCommon, cfg.AccessParserOptions("common").Format)
	assert.Equal(t, logengine.FormatError, cfg.ErrorParserOptions("").Format)
	assert.Equal(t, logengine.FormatNginxError, cfg.ErrorParserOptions("nginx_error").Format)

	sigs := cfg.ClassifierOptions().BotSignatures
	assert.Len(t, sigs, len(logengine.DefaultBotSignatures)+1)
	assert.Equal(t, "MyMonitor", sigs[len(sigs)-1])

	cfg.Classifier.BotSignatures = []string{"only"}
	assert.Equal(t, []string{"only", "MyMonitor"}, cfg.ClassifierOptions().BotSignatures)

	opts := cfg.AnalysisOptions()
	assert.Equal(t, 25, opts.TopN)
	assert.Equal(t, 1.0, opts.SlowThreshold)
	require.Len(t, opts.Custom, 1)
	assert.Equal(t, "ResponseTime > 2", opts.Custom[0].Where)
	assert.Equal(t, 5, opts.Custom[0].Limit)

	_, err := analysis.NewCatalog(opts)
	assert.NoError(t, err)
}

// TestRunDate tests rendering the report directory name
// TestRunDate 测试报告目录名的生成
func TestRunDate(t *testing.T) {
	at := time.Date(2025, time.April, 10, 13, 55, 36, 0, time.UTC)
	cfg := DefaultConfig()
	assert.Equal(t, "20250410", cfg.RunDate(at))

	cfg.DateFormat = "%Y-%m-%d"
	assert.Equal(t, "2025-04-10", cfg.RunDate(at))

	cfg.DateFormat = ""
	assert.Equal(t, "20250410", cfg.RunDate(at))
}
