package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aliasCmd = &cobra.Command{
	Use:   "alias <name> <version>",
	Short: "Create or list version aliases",
	Long: `Point a name at an installed version. Aliases work anywhere a version
is accepted and are matched case-insensitively.

  frum alias work 3.2.2
  frum alias --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if flagAliasList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return completeInstalled(cmd, nil, toComplete)
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runAlias,
}

var unaliasCmd = &cobra.Command{
	Use:               "unalias <name>",
	Short:             "Remove a version alias",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeAliases,
	RunE:              runUnalias,
}

var flagAliasList bool

func init() {
	aliasCmd.Flags().BoolVarP(&flagAliasList, "list", "l", false, "List aliases and their targets")
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(unaliasCmd)
}

func runAlias(_ *cobra.Command, args []string) error {
	if flagAliasList {
		aliases, err := mgr.Aliases()
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			printMiss("", "no aliases defined")
			return nil
		}
		for _, a := range aliases {
			if a.Dangling {
				fmt.Fprintf(stdout, "%s -> %s (not installed)\n", a.Name, a.Target)
				continue
			}
			fmt.Fprintf(stdout, "%s -> %s\n", a.Name, a.Target)
		}
		return nil
	}

	v, err := mgr.SetAlias(args[0], args[1])
	if err != nil {
		return err
	}
	printOK(args[0], fmt.Sprintf("now points at %s", v))
	return nil
}

func runUnalias(_ *cobra.Command, args []string) error {
	if err := mgr.RemoveAlias(args[0]); err != nil {
		return err
	}
	printOK(args[0], "removed")
	return nil
}
