package commands

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/runner"
	"github.com/netxfw/gunlog/pkg/errors"
)

// errProjectsFailed is returned by run when at least one project failed.
var errProjectsFailed = stderrors.New("one or more projects failed")

// Exit codes
// 退出码
const (
	exitFailure       = 1
	exitConfiguration = 2
	exitCanceled      = 130
)

// exitCode maps a command error to the process exit status.
// exitCode 将命令错误映射为进程退出码。
func exitCode(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInvalidConfiguration):
		return exitConfiguration
	case stderrors.Is(err, errors.ErrCanceled):
		return exitCanceled
	default:
		return exitFailure
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze the logs of every project and write reports",
	// Short: 分析所有项目日志并输出报表
	Long: `Analyze the logs of every project listed in projects_csv and write the
reports under output_dir. A project whose logs cannot be read fails alone;
configuration errors abort the run.
分析 projects_csv 中列出的所有项目日志并输出报表到 output_dir。
日志不可读的项目单独失败，配置错误会终止运行。

Examples:
  gunlog run
  gunlog run -c /etc/gunlog/gunlog.yaml --types ip,security
  gunlog run --project example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		types, _ := cmd.Flags().GetStringSlice("types")
		projects, _ := cmd.Flags().GetStringSlice("project")
		quiet, _ := cmd.Flags().GetBool("quiet")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rep, err := runner.Run(cmd.Context(), cfg, runner.Options{Types: types, Projects: projects})
		if rep != nil && !quiet {
			newConsole(cmd.OutOrStdout()).runSummary(rep)
		}
		if err != nil {
			return err
		}
		if rep.Failed() {
			return fmt.Errorf("%w: %d of %d", errProjectsFailed, rep.Count(runner.StatusFailed), len(rep.Projects))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSlice("types", nil, "Report types to generate, overriding reports.types (e.g. ip,security,custom:api)")
	runCmd.Flags().StringSlice("project", nil, "Only process the named projects")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the run summary")
}
