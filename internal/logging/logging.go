// Package logging builds the diagnostic logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Level is the user-facing verbosity.
type Level int

const (
	LevelQuiet Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

// Levels lists the accepted level names for flag help and completion.
var Levels = []string{"quiet", "error", "info", "debug"}

// ParseLevel accepts quiet, error, info, all and debug. "all" is a synonym
// for info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return LevelQuiet, nil
	case "error":
		return LevelError, nil
	case "info", "all", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("invalid log level %q (want one of %s)", s, strings.Join(Levels, ", "))
}

func (l Level) String() string {
	switch l {
	case LevelQuiet:
		return "quiet"
	case LevelError:
		return "error"
	case LevelDebug:
		return "debug"
	}
	return "info"
}

// AtLeast reports whether messages of level m are shown at l.
func (l Level) AtLeast(m Level) bool { return l >= m }

func (l Level) charm() log.Level {
	switch l {
	case LevelQuiet:
		return log.FatalLevel
	case LevelError:
		return log.ErrorLevel
	case LevelDebug:
		return log.DebugLevel
	}
	return log.InfoLevel
}

// New returns a logger writing to w with the frum prefix.
func New(w io.Writer, level Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: "frum",
		Level:  level.charm(),
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
