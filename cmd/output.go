package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/kamusis/frum/internal/logging"
)

// ── Unified output helpers ────────────────────────────────────────────────────
// All commands use these functions to ensure consistent icon usage and
// indentation throughout frum's CLI output. Everything except printErr is
// suppressed below the info level.
//
// Icon semantics:
//   ✓  success / healthy
//   ✗  error / failure          (written to stderr)
//   ⚠  warning
//   ○  skipped / not applicable
//   -  not found / missing
//   ~  neutral info / state change

// stdout and stderr are swapped by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func chatty() bool { return level.AtLeast(logging.LevelInfo) }

// printSection prints a top-level section header, e.g. "=== frum doctor ===".
func printSection(title string) {
	if chatty() {
		fmt.Fprintf(stdout, "\n=== %s ===\n", title)
	}
}

// printLine prints one labelled line: "  icon  msg" or "  icon  [name] msg".
func printLine(w io.Writer, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
	} else {
		fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
	}
}

// printOK prints a success line.
//   name = "" → "  ✓  msg"
//   name set  → "  ✓  [name] msg"
func printOK(name, msg string) {
	if chatty() {
		printLine(stdout, "✓", name, msg)
	}
}

// printErr prints an error line to stderr. It is shown at every level.
func printErr(name, msg string) {
	printLine(stderr, "✗", name, msg)
}

// printWarn prints a warning line.
func printWarn(name, msg string) {
	if chatty() {
		printLine(stdout, "⚠", name, msg)
	}
}

// printSkip prints a skipped / not-applicable line.
func printSkip(name, msg string) {
	if chatty() {
		printLine(stdout, "○", name, msg)
	}
}

// printMiss prints a not-found / missing line.
func printMiss(name, msg string) {
	if chatty() {
		printLine(stdout, "-", name, msg)
	}
}

// printInfo prints a neutral informational / state-change line.
func printInfo(name, msg string) {
	if chatty() {
		printLine(stdout, "~", name, msg)
	}
}
