package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"finance-brief/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, version.Version)
			return
		}
		fmt.Fprintf(out, "version: %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s\nuser-agent: %s\n",
			version.Version, version.Commit, version.BuildDate,
			runtime.Version(), runtime.GOOS, runtime.GOARCH, version.UserAgent())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
