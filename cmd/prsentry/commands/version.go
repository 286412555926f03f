package commands

import (
	"fmt"
	"runtime"

	"github.com/roasbeef/prsentry/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit hash, and build metadata for prsentry.`,
	Run:   runVersion,
}

// runVersion prints the version and build information.
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("prsentry version %s", build.Version())

	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	}

	fmt.Printf(" go=%s", runtime.Version())
	fmt.Println()
}
