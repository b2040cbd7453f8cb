package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/kamusis/frum/cmd.appVersion=...".
var (
	appVersion = "dev"
	commit     = ""
	buildDate  = ""
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show frum version and build information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noSetup: "true"},
	RunE:        runVersion,
}

func init() {
	rootCmd.Version = appVersion
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	fmt.Fprintf(stdout, "Version:    %s\n", appVersion)
	fmt.Fprintf(stdout, "Commit:     %s\n", emptyAsNA(commit))
	fmt.Fprintf(stdout, "Build Date: %s\n", emptyAsNA(buildDate))
	fmt.Fprintf(stdout, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(stdout, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
