package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/frum/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Print the shell setup for frum",
	Long: `Print environment variables for the current shell. Each shell gets its
own link (FRUM_MULTISHELL_PATH), starting at the global default, so 'frum
local' in one terminal does not affect another.

  eval "$(frum init)"                  # bash, zsh
  frum init --shell fish | source      # fish`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	flagInitShell string
	flagUseOnCd   bool
)

func init() {
	initCmd.Flags().StringVarP(&flagInitShell, "shell", "s", "", "Shell syntax to use: bash, zsh or fish (default: inferred from $SHELL)")
	initCmd.Flags().BoolVar(&flagUseOnCd, "use-on-cd", false, "Switch versions automatically when entering a directory with a version file")
	_ = initCmd.RegisterFlagCompletionFunc("shell", cobra.FixedCompletions([]string{"bash", "zsh", "fish"}, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	name := flagInitShell
	if name == "" {
		if name = inferShell(); name == "" {
			name = "bash"
		}
	}
	sh, err := lookupShell(name)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	for _, dir := range []string{cfg.BaseDir, mgr.Layout().InstallationsDir(), mgr.Layout().AliasesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	if err := config.EnsureDotEnvTemplate(cfg.BaseDir); err != nil {
		logger.Warn("cannot seed dotenv file", "err", err)
	}

	link := multishellPath()
	if err := mgr.LinkShell(link); err != nil {
		return err
	}
	logger.Debug("created shell link", "path", link)

	fmt.Fprint(stdout, initScript(sh, shellEnv{base: cfg.BaseDir, link: link, logLevel: level.String()}, flagUseOnCd))
	return nil
}

// multishellPath returns a fresh per-shell link path under the temp dir.
func multishellPath() string {
	name := strconv.Itoa(os.Getppid()) + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	return filepath.Join(os.TempDir(), "frum_multishells", name)
}
