package cmd

import (
	"errors"

	"github.com/kamusis/frum/internal/manager"
)

const (
	exitGeneric  = 1
	exitUsage    = 2
	exitNotFound = 3
)

// exitError forces a specific process exit code.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func isSilent(err error) bool {
	var ee *exitError
	return errors.As(err, &ee) && ee.silent
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var me *manager.Error
	if !errors.As(err, &me) {
		return exitGeneric
	}
	switch me.Kind {
	case manager.KindParse:
		return exitUsage
	case manager.KindVersionNotFound, manager.KindCantInferVersion,
		manager.KindAliasNotFound, manager.KindAliasTargetNotInstalled:
		return exitNotFound
	}
	return exitGeneric
}
