package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kamusis/frum/internal/config"
	"github.com/kamusis/frum/internal/logging"
	"github.com/kamusis/frum/internal/manager"
)

// noSetup marks commands that must work without a loadable configuration.
const noSetup = "frum/no-setup"

var rootCmd = &cobra.Command{
	Use:           "frum",
	Short:         "A fast and simple Ruby version manager",
	SilenceUsage:  true, // don't print usage on operational errors
	SilenceErrors: true, // Execute prints errors with the output helpers
	Long: `frum installs Ruby versions under ~/.frum (or $FRUM_DIR) and switches
between them by repointing symlinks. Run 'eval "$(frum init)"' in your
shell profile to put the active version on PATH.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[noSetup] != "" {
			return nil
		}
		return setup()
	},
}

var (
	flagLogLevel string

	cfg    *config.Config
	mgr    *manager.Manager
	logger *log.Logger
	level  = logging.LevelInfo
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: quiet, error, info or debug (default from config, else info)")
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(logging.Levels, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})
}

// setup loads the configuration and wires the manager. Completion callbacks
// call it too, since cobra skips the pre-run hooks for them.
func setup() error {
	c, err := config.LoadDefault()
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	lv, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	l := logging.New(stderr, lv)
	m, err := manager.New(c, manager.Options{Logger: l})
	if err != nil {
		return err
	}
	cfg, mgr, logger, level = c, m, l, lv
	return nil
}

// Execute is called by main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !isSilent(err) {
			printErr("", err.Error())
		}
		os.Exit(exitCode(err))
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
