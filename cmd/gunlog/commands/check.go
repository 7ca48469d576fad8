package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/config"
	"github.com/netxfw/gunlog/internal/logengine"
	"github.com/netxfw/gunlog/internal/project"
	"github.com/netxfw/gunlog/internal/utils/fileutil"
	"github.com/netxfw/gunlog/pkg/errors"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and project list",
	// Short: 校验配置与项目列表
	Long: `Validate the configuration file, then load the project list and check that
every log path can be read. With --fix the file is first upgraded to the
current template, keeping its values and comments.
校验配置文件，然后加载项目列表并检查所有日志路径是否可读。
使用 --fix 时先将文件升级到当前模板，保留原有值与注释。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")
		out := newConsole(cmd.OutOrStdout())
		path := resolveConfigPath()

		if fix {
			changed, err := config.Upgrade(path)
			if err != nil {
				return err
			}
			if changed {
				out.success("Upgraded %s (backup kept next to it)", path)
			} else {
				out.success("%s is up to date", path)
			}
		}

		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("%w: %w", errors.ErrInvalidConfiguration, errors.NewFileError(path, err))
		}
		result, err := config.ValidateConfig(data)
		if err != nil {
			return err
		}

		out.header("Configuration " + path)
		for _, w := range result.Warnings {
			out.warn("%s: %s (value: %v)", w.Field, w.Message, w.Value)
		}
		for _, e := range result.Errors {
			out.fail("%s: %s (value: %v)", e.Field, e.Message, e.Value)
		}
		if !result.Valid {
			return fmt.Errorf("%w: %d errors in %s", errors.ErrInvalidConfiguration, len(result.Errors), path)
		}
		out.success("Configuration is valid (%d warnings)", len(result.Warnings))

		cfg, err := config.Parse(data)
		if err != nil {
			return err
		}
		return checkProjects(cmd, out, cfg)
	},
}

// checkProjects loads the project list and reports unreadable log paths.
// checkProjects 加载项目列表并报告不可读的日志路径。
func checkProjects(cmd *cobra.Command, out *console, cfg *config.GlobalConfig) error {
	projects, err := project.Load(cmd.Context(), cfg.ProjectsCSV)
	if err != nil {
		return err
	}

	out.header("Projects " + cfg.ProjectsCSV)
	t := out.table([]string{"Project", "Access Log", "Error Log"})
	problems := 0
	for _, p := range projects {
		access, accessOK := checkLogPath(p.LogFile)
		errlog, errlogOK := checkLogPath(p.ErrorLogFile)
		if !accessOK || !errlogOK {
			problems++
		}
		t.Append([]string{p.Name, access, errlog})
	}
	t.Render()

	if problems > 0 {
		out.warn("%d of %d projects have unreadable log paths; they will fail on run", problems, len(projects))
	} else {
		out.success("%d projects, all log paths readable", len(projects))
	}
	return nil
}

// checkLogPath describes a log path: "-" when unset, "ok" or "N files"
// when readable, otherwise the reason it is not.
func checkLogPath(pattern string) (string, bool) {
	if pattern == "" {
		return "-", true
	}
	files, err := logengine.Expand(pattern)
	if err != nil {
		return err.Error(), false
	}
	for _, f := range files {
		if err := fileutil.CheckReadable(f); err != nil {
			return errors.NewFileError(f, err).Error(), false
		}
	}
	if len(files) == 1 {
		return "ok", true
	}
	return fmt.Sprintf("%d files", len(files)), true
}

func init() {
	checkCmd.Flags().Bool("fix", false, "Upgrade the configuration file to the current template first")
}
