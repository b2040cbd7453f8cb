package manager

import (
	"errors"
	"fmt"

	"github.com/kamusis/frum/internal/alias"
	"github.com/kamusis/frum/internal/install"
	"github.com/kamusis/frum/internal/resolve"
	"github.com/kamusis/frum/internal/symlink"
	"github.com/kamusis/frum/internal/version"
)

// Kind is the user-visible failure class of an operation.
type Kind int

const (
	KindIo Kind = iota
	KindParse
	KindVersionNotFound
	KindCantInferVersion
	KindAliasNotFound
	KindAliasTargetNotInstalled
	KindDownloadFailed
	KindExtractFailed
	KindArchiveEmpty
	KindArchiveLayoutUnexpected
	KindBuildFailed
	KindPromotionFailed
	KindSymlinkSwapFailed
	KindAlreadyInstalled
	KindInstallInProgress
	KindVersionInUse
)

var kindNames = map[Kind]string{
	KindIo:                      "io error",
	KindParse:                   "invalid version",
	KindVersionNotFound:         "version not found",
	KindCantInferVersion:        "can't infer version",
	KindAliasNotFound:           "alias not found",
	KindAliasTargetNotInstalled: "alias target not installed",
	KindDownloadFailed:          "download failed",
	KindExtractFailed:           "extract failed",
	KindArchiveEmpty:            "archive empty",
	KindArchiveLayoutUnexpected: "unexpected archive layout",
	KindBuildFailed:             "build failed",
	KindPromotionFailed:         "promotion failed",
	KindSymlinkSwapFailed:       "symlink swap failed",
	KindAlreadyInstalled:        "already installed",
	KindInstallInProgress:       "install in progress",
	KindVersionInUse:            "version in use",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Manager operation.
type Error struct {
	Kind    Kind
	Version string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Version != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Version)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors not produced by this module are KindIo.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	var (
		pe *version.ParseError
		ae *alias.Error
		ie *install.Error
		se *symlink.SwapError
	)
	switch {
	case errors.Is(err, resolve.ErrCantInferVersion):
		return KindCantInferVersion
	case errors.As(err, &ie):
		return installKind(ie.Kind)
	case errors.As(err, &ae):
		switch ae.Kind {
		case alias.KindNotFound:
			return KindAliasNotFound
		case alias.KindTargetNotInstalled:
			return KindAliasTargetNotInstalled
		case alias.KindInvalidName:
			return KindParse
		}
		if errors.As(err, &se) {
			return KindSymlinkSwapFailed
		}
		return KindIo
	case errors.As(err, &se):
		return KindSymlinkSwapFailed
	case errors.As(err, &pe):
		return KindParse
	}
	return KindIo
}

func installKind(k install.Kind) Kind {
	switch k {
	case install.KindVersionNotFound:
		return KindVersionNotFound
	case install.KindDownloadFailed:
		return KindDownloadFailed
	case install.KindExtractFailed:
		return KindExtractFailed
	case install.KindArchiveEmpty:
		return KindArchiveEmpty
	case install.KindArchiveLayoutUnexpected:
		return KindArchiveLayoutUnexpected
	case install.KindBuildFailed:
		return KindBuildFailed
	case install.KindPromotionFailed:
		return KindPromotionFailed
	case install.KindAlreadyInstalled:
		return KindAlreadyInstalled
	case install.KindInProgress:
		return KindInstallInProgress
	}
	return KindIo
}

// wrap attaches a kind to err unless it already carries one.
func wrap(v string, err error) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return &Error{Kind: classify(err), Version: v, Err: err}
}
