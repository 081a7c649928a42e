package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the paper-downloader version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := debug.ReadBuildInfo()
		fmt.Fprintln(cmd.OutOrStdout(), versionString(info))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString formats the ldflags version with the Go toolchain and, when
// the binary was built from a checkout, the VCS revision.
func versionString(info *debug.BuildInfo) string {
	s := fmt.Sprintf("paper-downloader %s (%s)", version, runtime.Version())
	if info == nil {
		return s
	}
	var rev, dirty string
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			rev = kv.Value
		case "vcs.modified":
			if kv.Value == "true" {
				dirty = "+dirty"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" {
		s += " " + rev + dirty
	}
	return s
}
