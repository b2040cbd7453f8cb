package cmd

import (
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:               "uninstall <version>",
	Short:             "Uninstall a Ruby version",
	Long:              `Remove an installed version and every alias that points at it.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeInstalled,
	RunE:              runUninstall,
}

var flagUninstallForce bool

func init() {
	uninstallCmd.Flags().BoolVar(&flagUninstallForce, "force", false, "Uninstall even if the version is the global default")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(_ *cobra.Command, args []string) error {
	if err := mgr.Uninstall(args[0], flagUninstallForce); err != nil {
		return err
	}
	printOK(args[0], "uninstalled")
	return nil
}
