package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/netxfw/gunlog/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	// Short: 显示版本信息
	Long: `Show the current version of gunlog`,
	Run: func(cmd *cobra.Command, args []string) {
		showVersion(cmd)
	},
}

func showVersion(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "gunlog %s (commit %s, %s %s/%s)\n",
		version.Version, version.Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
