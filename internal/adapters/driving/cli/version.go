package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("pagelens version %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
			cmd.Printf("  checksum: %s\n", info.Main.Sum)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
