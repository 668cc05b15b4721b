package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// version is set by build flags
	version = "dev"
	// buildDate is set by build flags
	buildDate = "unknown"
	// gitCommit is set by build flags
	gitCommit = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		showShort, err := cmd.Flags().GetBool("short")
		if err != nil {
			showShort = false
		}

		if showShort {
			fmt.Printf("%s\n", version)
			return
		}
		fmt.Printf("refactord version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// The --version flag and the version subcommand report the same value
	rootCmd.Version = version
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "show only version number")
}
