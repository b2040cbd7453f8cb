package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/frum/internal/manager"
	"github.com/kamusis/frum/internal/version"
)

var localCmd = &cobra.Command{
	Use:   "local [version]",
	Short: "Use a Ruby version in the current shell",
	Long: `Point the current shell's Ruby at a version.

Without an argument the version comes from the nearest .ruby-version file.
If none is found the shell falls back to the global default and the command
fails.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeInstalledOrAlias,
	RunE:              runLocal,
}

var flagQuietMissing bool

func init() {
	localCmd.Flags().BoolVar(&flagQuietMissing, "quiet-missing", false, "Succeed silently when no version file is found (for cd hooks)")
	rootCmd.AddCommand(localCmd)
}

func runLocal(_ *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	v, err := mgr.Local(firstArg(args), cwd)
	if err != nil {
		if flagQuietMissing && manager.KindOf(err) == manager.KindCantInferVersion {
			return nil
		}
		var me *manager.Error
		if errors.As(err, &me) && me.Kind == manager.KindVersionNotFound {
			if v, perr := version.ParseExact(me.Version); perr == nil {
				return fmt.Errorf("%w\n  Run 'frum install %s' first", err, v.Plain())
			}
		}
		return err
	}
	printOK(v.String(), "now using")
	return nil
}
