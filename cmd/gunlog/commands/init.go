package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/config"
	"github.com/netxfw/gunlog/internal/project"
	"github.com/netxfw/gunlog/internal/utils/fileutil"
)

// sampleProjectsCSV is written next to a new configuration when no project list exists.
const sampleProjectsCSV = `# project,log_file,error_log_file[,format,error_format]
project,log_file,error_log_file
example.com,/var/log/apache2/example.com-access.log,/var/log/apache2/example.com-error.log
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	// Short: 初始化配置
	Long: `Write the default configuration file and, when missing, a sample project list.
写出默认配置文件，并在项目列表不存在时写出示例项目列表。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		out := newConsole(cmd.OutOrStdout())
		path := filepath.Clean(resolveConfigPath())

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite, or 'gunlog check --fix' to upgrade it)", path)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
		if err := fileutil.AtomicWriteFile(path, []byte(config.DefaultConfigTemplate), 0600); err != nil {
			return err
		}
		out.success("Configuration initialized: %s", path)

		cfg, err := config.LoadGlobalConfig(path)
		if err != nil {
			return err
		}
		csvPath := cfg.ProjectsCSV
		if _, err := os.Stat(csvPath); err == nil {
			return nil
		}
		if err := fileutil.AtomicWriteFile(csvPath, []byte(sampleProjectsCSV), 0644); err != nil {
			return err
		}
		projects, err := project.Load(cmd.Context(), csvPath)
		if err != nil {
			return err
		}
		out.success("Sample project list written: %s (%d project)", csvPath, len(projects))
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
}
