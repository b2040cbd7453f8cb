package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamusis/frum/internal/logging"
	"github.com/kamusis/frum/internal/manager"
)

// setupFrumDir points FRUM_DIR and the shell link at fresh temp dirs and
// fakes the given installations.
func setupFrumDir(t *testing.T, versions ...string) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("FRUM_DIR", base)
	t.Setenv("FRUM_MULTISHELL_PATH", filepath.Join(t.TempDir(), "shell"))
	t.Setenv("FRUM_LOGLEVEL", "")
	t.Setenv("FRUM_RUBY_BUILD_MIRROR", "")
	t.Setenv("TMPDIR", t.TempDir())
	for _, v := range versions {
		bin := filepath.Join(base, "versions", "v"+v, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(bin, "ruby"), []byte(v), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return base
}

// runFrum executes the root command with args and returns what it printed
// to stdout.
func runFrum(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() {
		stdout, stderr = oldOut, oldErr
		cfg, mgr, logger, level = nil, nil, nil, logging.LevelInfo
	})

	flagLogLevel = ""
	flagInstallList, flagOpenSSLDir = false, ""
	flagUninstallForce = false
	flagQuietMissing = false
	flagAliasList = false
	flagCompletionShell, flagCompletionList = "", false
	flagInitShell, flagUseOnCd = "", false

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), exitGeneric},
		{&exitError{code: exitUsage, err: errors.New("bad flag")}, exitUsage},
		{&manager.Error{Kind: manager.KindParse}, exitUsage},
		{&manager.Error{Kind: manager.KindVersionNotFound}, exitNotFound},
		{fmt.Errorf("wrapped: %w", &manager.Error{Kind: manager.KindCantInferVersion}), exitNotFound},
		{&manager.Error{Kind: manager.KindAliasNotFound}, exitNotFound},
		{&manager.Error{Kind: manager.KindAliasTargetNotInstalled}, exitNotFound},
		{&manager.Error{Kind: manager.KindBuildFailed}, exitGeneric},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v)=%d want %d", c.err, got, c.want)
		}
	}
}

func TestGlobalVersionsCurrent(t *testing.T) {
	setupFrumDir(t, "2.7.1", "2.6.4")

	out, err := runFrum(t, "current")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if out != "none\n" {
		t.Fatalf("current before global = %q", out)
	}

	if _, err := runFrum(t, "global", "2.6.4"); err != nil {
		t.Fatalf("global: %v", err)
	}
	if _, err := runFrum(t, "alias", "work", "2.7"); err != nil {
		t.Fatalf("alias: %v", err)
	}

	out, err = runFrum(t, "versions")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	want := "* v2.6.4 default\n  v2.7.1 work\n"
	if out != want {
		t.Fatalf("versions output:\n%s\nwant:\n%s", out, want)
	}

	out, err = runFrum(t, "current")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if out != "v2.6.4\n" {
		t.Fatalf("current = %q", out)
	}

	out, err = runFrum(t, "alias", "--list")
	if err != nil {
		t.Fatalf("alias --list: %v", err)
	}
	if !strings.Contains(out, "work -> v2.7.1") || !strings.Contains(out, "default -> v2.6.4") {
		t.Fatalf("alias --list output: %q", out)
	}
}

func TestLocal_QuietMissing(t *testing.T) {
	setupFrumDir(t, "2.6.4")
	t.Chdir(t.TempDir())

	if _, err := runFrum(t, "local", "--quiet-missing"); err != nil {
		t.Fatalf("local --quiet-missing: %v", err)
	}
	_, err := runFrum(t, "local")
	if err == nil {
		t.Fatalf("expected error without a version file")
	}
	if got := exitCode(err); got != exitNotFound {
		t.Fatalf("exit code %d want %d", got, exitNotFound)
	}
}

func TestLocal_VersionFile(t *testing.T) {
	setupFrumDir(t, "2.6.4", "3.0.0")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ruby-version"), []byte("3.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	if _, err := runFrum(t, "local"); err != nil {
		t.Fatalf("local: %v", err)
	}
	out, _ := runFrum(t, "current")
	if out != "v3.0.0\n" {
		t.Fatalf("current = %q", out)
	}

	_, err := runFrum(t, "local", "2.5.0")
	if err == nil || !strings.Contains(err.Error(), "frum install 2.5.0") {
		t.Fatalf("expected install hint, got %v", err)
	}
	if got := exitCode(err); got != exitNotFound {
		t.Fatalf("exit code %d want %d", got, exitNotFound)
	}
}

func TestUninstall_RefusesDefault(t *testing.T) {
	base := setupFrumDir(t, "2.6.4")
	if _, err := runFrum(t, "global", "2.6.4"); err != nil {
		t.Fatalf("global: %v", err)
	}

	_, err := runFrum(t, "uninstall", "2.6.4")
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected refusal mentioning --force, got %v", err)
	}
	if _, err := runFrum(t, "uninstall", "--force", "2.6.4"); err != nil {
		t.Fatalf("uninstall --force: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "versions", "v2.6.4")); !os.IsNotExist(err) {
		t.Fatalf("installation still present: %v", err)
	}
}

func TestCompletions(t *testing.T) {
	setupFrumDir(t, "2.6.4", "2.7.1")

	out, err := runFrum(t, "completions", "--list")
	if err != nil {
		t.Fatalf("completions --list: %v", err)
	}
	if out != "v2.6.4\nv2.7.1\n" {
		t.Fatalf("completions --list = %q", out)
	}

	out, err = runFrum(t, "completions", "--shell", "bash")
	if err != nil {
		t.Fatalf("completions --shell bash: %v", err)
	}
	if !strings.Contains(out, "frum") {
		t.Fatalf("bash completion does not mention frum")
	}

	_, err = runFrum(t, "completions", "--shell", "tcsh")
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("exit code %d want %d (err %v)", got, exitUsage, err)
	}
}

func TestInit_CreatesShellLink(t *testing.T) {
	setupFrumDir(t, "2.6.4")
	if _, err := runFrum(t, "global", "2.6.4"); err != nil {
		t.Fatalf("global: %v", err)
	}

	out, err := runFrum(t, "init", "--shell", "bash", "--use-on-cd")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	var link string
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "export FRUM_MULTISHELL_PATH="); ok {
			link = strings.Trim(v, "'")
		}
	}
	if link == "" {
		t.Fatalf("no FRUM_MULTISHELL_PATH in init output:\n%s", out)
	}
	b, err := os.ReadFile(filepath.Join(link, "bin", "ruby"))
	if err != nil {
		t.Fatalf("shell link does not reach the default: %v", err)
	}
	if string(b) != "2.6.4" {
		t.Fatalf("shell link reaches %q", b)
	}
	if !strings.Contains(out, "alias cd=__frumcd") {
		t.Fatalf("--use-on-cd hook missing:\n%s", out)
	}
}

func TestQuietLevelSuppressesOutput(t *testing.T) {
	setupFrumDir(t, "2.6.4")
	out, err := runFrum(t, "--log-level", "quiet", "global", "2.6.4")
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output in quiet mode, got %q", out)
	}

	_, err = runFrum(t, "--log-level", "loud", "current")
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("exit code %d want %d (err %v)", got, exitUsage, err)
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	setupFrumDir(t)
	_, err := runFrum(t, "install", "--bogus")
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("exit code %d want %d (err %v)", got, exitUsage, err)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("FRUM_DIR", t.TempDir())
	out, err := runFrum(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "Version:    dev\n") {
		t.Fatalf("version output: %q", out)
	}
}

func TestAlias_TargetNotInstalled(t *testing.T) {
	setupFrumDir(t, "2.6.4")
	_, err := runFrum(t, "alias", "stable", "3.0.0")
	if got := manager.KindOf(err); got != manager.KindAliasTargetNotInstalled {
		t.Fatalf("kind %v want %v (err %v)", got, manager.KindAliasTargetNotInstalled, err)
	}
	if got := exitCode(err); got != exitNotFound {
		t.Fatalf("exit code %d want %d", got, exitNotFound)
	}
}

func TestDoctor_ReportsAndFixes(t *testing.T) {
	base := setupFrumDir(t, "2.6.4", "2.7.1")
	if _, err := runFrum(t, "global", "2.6.4"); err != nil {
		t.Fatalf("global: %v", err)
	}
	if _, err := runFrum(t, "alias", "old", "2.7.1"); err != nil {
		t.Fatalf("alias: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(base, "versions", "v2.7.1")); err != nil {
		t.Fatal(err)
	}
	leftover := filepath.Join(base, "versions", ".downloads", "v3.0.0-1234")
	if err := os.MkdirAll(leftover, 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := runFrum(t, "doctor")
	if err == nil {
		t.Fatalf("doctor should fail with a dangling alias and leftover staging")
	}
	for _, want := range []string{"[old] points at v2.7.1", "kept from a failed install: " + leftover, "[default] v2.6.4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("doctor output missing %q:\n%s", want, out)
		}
	}

	out, err = runFrum(t, "doctor", "fix")
	if err != nil {
		t.Fatalf("doctor fix: %v\n%s", err, out)
	}
	if !strings.Contains(out, "deleted "+leftover) || !strings.Contains(out, "[old] removed (pointed at v2.7.1)") {
		t.Fatalf("doctor fix output:\n%s", out)
	}
	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Fatalf("leftover staging dir still present: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(base, "aliases", "old")); !os.IsNotExist(err) {
		t.Fatalf("dangling alias still present: %v", err)
	}

	out, _ = runFrum(t, "doctor")
	if strings.Contains(out, "points at") || strings.Contains(out, "kept from a failed install") {
		t.Fatalf("doctor still reports fixed issues:\n%s", out)
	}
}

func TestHelpDescribesVersionForms(t *testing.T) {
	if !strings.Contains(installCmd.Long, "<mirror>/<major>.<minor>/ruby-<version>.tar.xz") ||
		!strings.Contains(installCmd.Long, "archive_template") {
		t.Fatalf("install help does not describe the archive location:\n%s", installCmd.Long)
	}
	if !strings.Contains(globalCmd.Long, "alias") || !strings.Contains(globalCmd.Long, "partial version") {
		t.Fatalf("global help does not describe accepted versions:\n%s", globalCmd.Long)
	}
}
