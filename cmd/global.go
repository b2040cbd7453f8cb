package cmd

import (
	"github.com/spf13/cobra"
)

var globalCmd = &cobra.Command{
	Use:   "global <version>",
	Short: "Set the global default Ruby version",
	Long: `Set the version new shells start with and switch the current shell to it.

The version may be exact (3.3.0), an alias (work) or a partial version
(3.3 or 3) naming the highest installed match. It must already be installed.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeInstalledOrAlias,
	RunE:              runGlobal,
}

func init() {
	rootCmd.AddCommand(globalCmd)
}

func runGlobal(_ *cobra.Command, args []string) error {
	v, err := mgr.Global(args[0])
	if err != nil {
		return err
	}
	printOK(v.String(), "set as global default")
	return nil
}
