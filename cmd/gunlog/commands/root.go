package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/config"
	"github.com/netxfw/gunlog/internal/utils/logger"
)

var (
	// configPath is the --config flag.
	configPath string
	// noColor disables coloured console output.
	noColor bool

	// manager holds the configuration loaded before each command, and
	// loadErr the reason it could not be loaded.
	manager *config.ConfigManager
	loadErr error
)

var RootCmd = &cobra.Command{
	Use:   "gunlog",
	Short: "Batch analyzer for Apache and Nginx logs",
	// Short: Apache 与 Nginx 日志批量分析器
	Long: `gunlog reads the access and error logs of every project listed in a CSV file
and writes per-project, per-date HTML and text reports.
gunlog 读取 CSV 文件中列出的各项目访问日志与错误日志，
并按项目、按日期输出 HTML 与文本报表。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load configuration to get logging settings
		// 加载配置以获取日志设置
		manager = config.NewConfigManager(configPath)
		loadErr = manager.LoadConfig()
		if loadErr != nil {
			// If config fails to load, use default logging config (stderr only)
			// 如果加载配置失败，使用默认日志配置（仅 stderr）
			logger.Init(config.DefaultConfig().Logging)
		} else {
			logger.Init(manager.GetConfig().Logging)
		}

		// Inject logger into context
		// 将 Logger 注入 Context
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logger.WithContext(ctx, logger.Get(nil)))
	},
}

func init() {
	// Config file path
	// 配置文件路径
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", fmt.Sprintf("Path to configuration file (default: %s)", config.DefaultConfigPath))
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(parseCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(versionCmd)

	RootCmd.CompletionOptions.DisableDescriptions = true
}

func resolveConfigPath() string {
	if manager != nil {
		return manager.GetConfigPath()
	}
	if configPath == "" {
		return config.DefaultConfigPath
	}
	return configPath
}

// loadConfig returns the configuration loaded for this command.
// loadConfig 返回为本命令加载的配置。
func loadConfig() (*config.GlobalConfig, error) {
	if manager == nil {
		manager = config.NewConfigManager(configPath)
		loadErr = manager.LoadConfig()
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return manager.GetConfig(), nil
}

// createCustomCompletionCmd creates a custom completion command without powershell.
// createCustomCompletionCmd 创建不含 powershell 的自定义补全命令。
func createCustomCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell autocompletion script",
		Long: `Generate shell autocompletion script for gunlog.
生成 gunlog 的 shell 自动补全脚本。

Examples:
  gunlog completion bash > /etc/bash_completion.d/gunlog
  gunlog completion zsh  > "${fpath[1]}/_gunlog"
  gunlog completion fish > ~/.config/fish/completions/gunlog.fish`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return RootCmd.GenBashCompletionV2(out, true)
			case "zsh":
				return RootCmd.GenZshCompletion(out)
			case "fish":
				return RootCmd.GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", args[0])
			}
		},
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
// Execute 执行根命令，SIGINT 与 SIGTERM 会取消命令的 Context。
func Execute() {
	// Replace default completion command with custom one (no powershell)
	// 用自定义补全命令替换默认命令（不含 powershell）
	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.AddCommand(createCustomCompletionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
