package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the Ruby version the current shell uses",
	Args:  cobra.NoArgs,
	RunE:  runCurrent,
}

func init() {
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(_ *cobra.Command, _ []string) error {
	v, ok, err := mgr.Current()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(stdout, "none")
		return nil
	}
	fmt.Fprintln(stdout, v)
	return nil
}
