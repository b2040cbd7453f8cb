package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List installed Ruby versions",
	Long: `List installed versions in ascending order. The version the current
shell uses is marked with *, followed by the aliases pointing at each one.`,
	Args: cobra.NoArgs,
	RunE: runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(_ *cobra.Command, _ []string) error {
	installed, err := mgr.Installed()
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		printMiss("", "no Ruby versions installed (run 'frum install <version>')")
		return nil
	}
	cur, hasCur, _ := mgr.Current()
	aliases, err := mgr.Aliases()
	if err != nil {
		return err
	}
	byTarget := map[string][]string{}
	for _, a := range aliases {
		if !a.Dangling {
			byTarget[a.Target] = append(byTarget[a.Target], a.Name)
		}
	}

	for _, v := range installed {
		mark := " "
		if hasCur && cur.Equal(v) {
			mark = "*"
		}
		line := fmt.Sprintf("%s %s", mark, v)
		if names := byTarget[v.String()]; len(names) > 0 {
			line += " " + strings.Join(names, ", ")
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}
