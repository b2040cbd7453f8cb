package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kamusis/frum/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that frum's dependencies and environment are correctly configured.
Run this command when something seems wrong, or before filing a bug report.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the frum directory.

Currently fixes:
  - Staging directories left behind by failed installs
  - Aliases pointing at versions that are no longer installed

Run 'frum doctor' first to see what will be fixed.`,
	Args: cobra.NoArgs,
	RunE: runDoctorFix,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	printSection("frum doctor fix")
	var fixed, failed int

	fmt.Fprintln(stdout, "\n[ Staging directories ]")
	left, err := mgr.Leftovers()
	if err != nil {
		return err
	}
	if len(left) == 0 {
		printOK("", "no leftover staging directories")
	}
	for _, dir := range left {
		if err := os.RemoveAll(dir); err != nil {
			printErr("", fmt.Sprintf("cannot delete %s: %v", dir, err))
			failed++
			continue
		}
		printOK("", fmt.Sprintf("deleted %s", dir))
		fixed++
	}

	fmt.Fprintln(stdout, "\n[ Aliases ]")
	aliases, err := mgr.Aliases()
	if err != nil {
		return err
	}
	dangling := 0
	for _, a := range aliases {
		if !a.Dangling {
			continue
		}
		dangling++
		if err := mgr.RemoveAlias(a.Name); err != nil {
			printErr(a.Name, fmt.Sprintf("cannot remove: %v", err))
			failed++
			continue
		}
		printOK(a.Name, fmt.Sprintf("removed (pointed at %s)", a.Target))
		fixed++
	}
	if dangling == 0 {
		printOK("", "no dangling aliases")
	}

	fmt.Fprintln(stdout)
	if failed > 0 {
		return fmt.Errorf("%d issue(s) could not be fixed", failed)
	}
	printOK("", fmt.Sprintf("%d issue(s) fixed", fixed))
	return nil
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}
	section := func(title string) {
		if chatty() {
			fmt.Fprintf(stdout, "\n[ %s ]\n", title)
		}
	}

	printSection("frum doctor")

	// ── Check 1: base directory ───────────────────────────────────────────────
	section("frum directory")
	if info, err := os.Stat(cfg.BaseDir); err != nil || !info.IsDir() {
		failD("%s does not exist — run 'eval \"$(frum init)\"' or 'frum install <version>'", cfg.BaseDir)
	} else {
		printOK("", fmt.Sprintf("exists: %s", cfg.BaseDir))
	}
	if _, err := os.Stat(config.ConfigPath(cfg.BaseDir)); err == nil {
		printOK("", fmt.Sprintf("config loaded: %s", config.ConfigPath(cfg.BaseDir)))
	} else {
		printSkip("", "no config.yaml, using defaults")
	}
	printInfo("", fmt.Sprintf("mirror: %s", cfg.Mirror))

	// ── Check 2: build tools ──────────────────────────────────────────────────
	section("build tools")
	for _, tool := range []string{"sh", "make"} {
		if p, err := exec.LookPath(tool); err != nil {
			failD("%s not found on PATH — required to build Ruby from source", tool)
		} else {
			printOK(tool, p)
		}
	}

	// ── Check 3: installed versions and default ───────────────────────────────
	section("versions")
	installed, err := mgr.Installed()
	if err != nil {
		failD("cannot list installations: %v", err)
	} else if len(installed) == 0 {
		printMiss("", "no versions installed")
	} else {
		printOK("", fmt.Sprintf("%d version(s) installed", len(installed)))
	}
	if def, ok, _ := mgr.Default(); ok {
		printOK("default", def.String())
	} else if _, err := os.Lstat(mgr.Layout().DefaultLink()); err == nil {
		failD("[default] link is broken — run 'frum global <version>'")
	} else {
		printWarn("default", "no global default — run 'frum global <version>'")
	}

	// ── Check 4: shell link ───────────────────────────────────────────────────
	section("shell")
	link := mgr.ShellLink()
	if os.Getenv(config.EnvMultishellPath) == "" {
		printWarn("", "FRUM_MULTISHELL_PATH is not set — add 'eval \"$(frum init)\"' to your shell profile")
	}
	if cur, ok, _ := mgr.Current(); ok {
		printOK("current", cur.String())
	} else if _, err := os.Lstat(link); err == nil {
		failD("[current] %s is broken — run 'frum local' or 'frum global <version>'", link)
	} else {
		printMiss("current", "no active version")
	}
	if !pathContains(filepath.Join(link, "bin")) {
		printWarn("", fmt.Sprintf("%s is not on PATH", filepath.Join(link, "bin")))
	}

	// ── Check 5: aliases ──────────────────────────────────────────────────────
	section("aliases")
	aliases, err := mgr.Aliases()
	switch {
	case err != nil:
		failD("cannot read aliases: %v", err)
	case len(aliases) == 0:
		printSkip("", "no aliases defined")
	default:
		for _, a := range aliases {
			if a.Dangling {
				printWarn(a.Name, fmt.Sprintf("points at %s, which is not installed (run 'frum doctor fix')", a.Target))
				allOK = false
				continue
			}
			printOK(a.Name, a.Target)
		}
	}

	// ── Check 6: leftover staging ─────────────────────────────────────────────
	section("staging")
	left, err := mgr.Leftovers()
	switch {
	case err != nil:
		failD("cannot read staging directory: %v", err)
	case len(left) == 0:
		printOK("", "no leftover staging directories")
	default:
		for _, dir := range left {
			printWarn("", fmt.Sprintf("kept from a failed install: %s", dir))
		}
		printInfo("", "inspect them, then run 'frum doctor fix' to delete")
		allOK = false
	}

	// ── Check 7: Symlink creation permission (Windows only) ──────────────────
	if runtime.GOOS == "windows" {
		section("Windows symlink permission")
		if err := checkWindowsSymlinkPermission(); err != nil {
			failD("Symlink creation will fail in this terminal — enable Developer Mode or run as Administrator")
		} else {
			printOK("", "symlink creation permitted")
		}
	}

	// ── Summary ──────────────────────────────────────────────────────────────
	if chatty() {
		fmt.Fprintln(stdout, "\n===================")
	}
	if !allOK {
		return fmt.Errorf("one or more checks failed, see details above")
	}
	printOK("", "All checks passed. frum is ready to use.")
	return nil
}

func pathContains(dir string) bool {
	for _, p := range filepath.SplitList(os.Getenv("PATH")) {
		if filepath.Clean(p) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// checkWindowsSymlinkPermission creates a throwaway symlink in the temp
// directory to probe whether the current process has symlink privileges.
func checkWindowsSymlinkPermission() error {
	tmp, err := os.MkdirTemp("", "frum-doctor-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	return os.Symlink(tmp, filepath.Join(tmp, "link"))
}
