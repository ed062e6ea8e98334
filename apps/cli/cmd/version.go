package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcraft/packages/http"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, version)
			return
		}
		fmt.Fprintf(out, "httpcraft %s (built %s)\n", version, buildTime)
		fmt.Fprintf(out, "%s %s/%s, user agent %q\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, http.DefaultUserAgent)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
