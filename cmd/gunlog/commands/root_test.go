package commands

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netxfw/gunlog/pkg/errors"
)

// resetFlags restores every flag to its default so tests do not leak state.
// resetFlags 将所有标志恢复为默认值，避免测试间状态泄漏。
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand executes a cobra command and returns output.
// executeCommand 执行 cobra 命令并返回输出。
func executeCommand(args ...string) (string, error) {
	resetFlags(RootCmd)
	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetErr(buf)
	RootCmd.SetArgs(append(args, "--no-color"))
	err := RootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// workspace creates a config, a project list and one access log in a temp dir.
// workspace 在临时目录中创建配置、项目列表与一个访问日志。
func workspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("access.log", `192.0.2.1 - - [10/Apr/2025:13:55:36 -0400] "GET /index.html HTTP/1.1" 200 1043 "-" "Mozilla/5.0"
192.0.2.2 - - [10/Apr/2025:13:55:40 -0400] "GET /a.css HTTP/1.1" 200 99 "-" "Googlebot/2.1"
`)
	write("projects.csv", "project,log_file,error_log_file\nexample.com,"+filepath.Join(dir, "access.log")+",\n")
	cfgPath = filepath.Join(dir, "gunlog.yaml")
	write("gunlog.yaml", strings.Join([]string{
		"projects_csv: " + filepath.Join(dir, "projects.csv"),
		"output_dir: " + filepath.Join(dir, "reports"),
		"reports:",
		"  types: [ip, popular]",
		"logging:",
		"  level: error",
	}, "\n")+"\n")
	return dir, cfgPath
}

// TestRootCommandHelp tests root command help output.
// TestRootCommandHelp 测试根命令帮助输出。
func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand("--help")
	assert.NoError(t, err)
	assert.Contains(t, output, "gunlog")
	assert.Contains(t, output, "Available Commands:")
	for _, name := range []string{"run", "check", "parse", "init", "version"} {
		assert.Contains(t, output, name)
	}
}

// TestInvalidCommand tests invalid command handling.
// TestInvalidCommand 测试无效命令处理。
func TestInvalidCommand(t *testing.T) {
	_, err := executeCommand("invalid-command")
	assert.Error(t, err)
}

// TestVersionCommand tests the version output
// TestVersionCommand 测试版本输出
func TestVersionCommand(t *testing.T) {
	output, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, output, "gunlog dev")
}

// TestExitCode tests the mapping of errors to exit codes
// TestExitCode 测试错误到退出码的映射
func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"Configuration", errors.NewConfigError("workers", 0), exitConfiguration},
		{"Unknown report", errors.NewReportError("nope"), exitConfiguration},
		{"Canceled", errors.ErrCanceled, exitCanceled},
		{"Projects failed", errProjectsFailed, exitFailure},
		{"Other", stderrors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, exitCode(tt.err))
		})
	}
}

// TestRunCommand tests a full run from the command line
// TestRunCommand 测试命令行完整运行
func TestRunCommand(t *testing.T) {
	dir, cfgPath := workspace(t)

	output, err := executeCommand("run", "-c", cfgPath, "--types", "ip")
	require.NoError(t, err)
	assert.Contains(t, output, "GunLog Run Summary")
	assert.Contains(t, output, "example.com")
	assert.Contains(t, output, "1 ok, 0 failed")

	matches, err := filepath.Glob(filepath.Join(dir, "reports", "example_com", "*", "ip_report_*.html"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.FileExists(t, filepath.Join(dir, "reports", "index.html"))
}

// TestRunCommand_ProjectFailed tests the error returned when a project fails
// TestRunCommand_ProjectFailed 测试项目失败时返回的错误
func TestRunCommand_ProjectFailed(t *testing.T) {
	dir, cfgPath := workspace(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "access.log")))

	output, err := executeCommand("run", "-c", cfgPath)
	assert.ErrorIs(t, err, errProjectsFailed)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, output, "failed")
}

// TestRunCommand_InvalidConfig tests that an unknown report type aborts the run
// TestRunCommand_InvalidConfig 测试未知报表类型会终止运行
func TestRunCommand_InvalidConfig(t *testing.T) {
	_, cfgPath := workspace(t)
	_, err := executeCommand("run", "-c", cfgPath, "--types", "nope")
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
	assert.Equal(t, exitConfiguration, exitCode(err))
}

// TestCheckCommand tests configuration and project checks
// TestCheckCommand 测试配置与项目检查
func TestCheckCommand(t *testing.T) {
	_, cfgPath := workspace(t)

	output, err := executeCommand("check", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration is valid")
	assert.Contains(t, output, "1 projects, all log paths readable")
}

// TestCheckCommand_Invalid tests that validation errors are listed and returned
// TestCheckCommand_Invalid 测试校验错误会被列出并返回
func TestCheckCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gunlog.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 0\nparser:\n  access_format: bogus\n"), 0644))

	output, err := executeCommand("check", "-c", cfgPath)
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
	assert.Contains(t, output, "[ERROR] workers")
	assert.Contains(t, output, "parser.access_format")
}

// TestInitCommand tests writing the default configuration
// TestInitCommand 测试写出默认配置
func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "conf", "gunlog.yaml")

	t.Chdir(dir)

	output, err := executeCommand("init", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration initialized")
	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(dir, "projects.csv"))

	_, err = executeCommand("init", "-c", cfgPath)
	assert.ErrorContains(t, err, "already exists")

	_, err = executeCommand("init", "-c", cfgPath, "--force")
	assert.NoError(t, err)
}

// TestParseCommand tests parsing single lines
// TestParseCommand 测试解析单行
func TestParseCommand(t *testing.T) {
	_, cfgPath := workspace(t)

	output, err := executeCommand("parse", "-c", cfgPath, "--line",
		`192.0.2.1 - - [10/Apr/2025:13:55:36 -0400] "GET /index.html HTTP/1.1" 200 1043 "-" "Googlebot/2.1"`)
	require.NoError(t, err)
	assert.Contains(t, output, "Records (combined format)")
	assert.Contains(t, output, "/index.html")
	assert.Contains(t, output, "true")
	assert.Contains(t, output, "1 records parsed, 0 lines failed to parse")

	output, err = executeCommand("parse", "-c", cfgPath, "--format", "error", "--line", "not an error line")
	require.NoError(t, err)
	assert.Contains(t, output, "0 records parsed, 1 lines failed to parse")
	assert.Contains(t, output, "--line:1")
}

// TestParseCommand_File tests parsing a file with a record limit
// TestParseCommand_File 测试带记录上限的文件解析
func TestParseCommand_File(t *testing.T) {
	dir, cfgPath := workspace(t)

	output, err := executeCommand("parse", "-c", cfgPath, "-n", "1", filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	assert.Contains(t, output, "(first 1 of 2 records)")

	_, err = executeCommand("parse", "-c", cfgPath)
	assert.Error(t, err)
}
