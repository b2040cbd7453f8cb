package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionsCmd = &cobra.Command{
	Use:   "completions",
	Short: "Print shell completions to stdout",
	Long: `Print a completion script for your shell. Version arguments of install,
uninstall, local, global and alias complete from what is installed.

  frum completions --shell zsh > "${fpath[1]}/_frum"`,
	Args: cobra.NoArgs,
	RunE: runCompletions,
}

var (
	flagCompletionShell string
	flagCompletionList  bool
)

func init() {
	completionsCmd.Flags().StringVarP(&flagCompletionShell, "shell", "s", "", "Shell syntax to use: "+strings.Join(completionShells, ", ")+" (default: inferred from $SHELL)")
	completionsCmd.Flags().BoolVarP(&flagCompletionList, "list", "l", false, "List installed Ruby versions")
	_ = completionsCmd.Flags().MarkHidden("list")
	_ = completionsCmd.RegisterFlagCompletionFunc("shell", cobra.FixedCompletions(completionShells, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionsCmd)
}

func runCompletions(_ *cobra.Command, _ []string) error {
	if flagCompletionList {
		installed, err := mgr.Installed()
		if err != nil {
			return err
		}
		for _, v := range installed {
			fmt.Fprintln(stdout, v)
		}
		return nil
	}

	shell := flagCompletionShell
	if shell == "" {
		shell = inferShell()
	}
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(stdout, true)
	case "zsh":
		return rootCmd.GenZshCompletion(stdout)
	case "fish":
		return rootCmd.GenFishCompletion(stdout, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(stdout)
	case "":
		return &exitError{code: exitUsage, err: fmt.Errorf("can't infer your shell; pass --shell (one of %s)", strings.Join(completionShells, ", "))}
	}
	return &exitError{code: exitUsage, err: fmt.Errorf("unsupported shell %q (want one of %s)", shell, strings.Join(completionShells, ", "))}
}

// inferShell guesses the shell from $SHELL; "" when unknown.
func inferShell() string {
	name := strings.TrimSuffix(filepath.Base(os.Getenv("SHELL")), ".exe")
	for _, s := range completionShells {
		if name == s {
			return s
		}
	}
	if name == "pwsh" {
		return "powershell"
	}
	return ""
}

// completeInstalled completes installed versions.
func completeInstalled(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if mgr == nil {
		if err := setup(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}
	installed, err := mgr.Installed()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, v := range installed {
		if s := v.String(); strings.HasPrefix(s, toComplete) || strings.HasPrefix(v.Plain(), toComplete) {
			out = append(out, s)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeAliases completes alias names.
func completeAliases(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if mgr == nil {
		if err := setup(); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
	}
	aliases, err := mgr.Aliases()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, a := range aliases {
		if strings.HasPrefix(a.Name, toComplete) {
			out = append(out, a.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completeInstalledOrAlias(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	versions, dir := completeInstalled(cmd, args, toComplete)
	if dir == cobra.ShellCompDirectiveError {
		return nil, dir
	}
	aliases, dir := completeAliases(cmd, args, toComplete)
	return append(versions, aliases...), dir
}
