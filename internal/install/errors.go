package install

import "fmt"

// Kind classifies pipeline failures.
type Kind int

const (
	KindIo Kind = iota
	KindVersionNotFound
	KindDownloadFailed
	KindExtractFailed
	KindArchiveEmpty
	KindArchiveLayoutUnexpected
	KindBuildFailed
	KindPromotionFailed
	KindAlreadyInstalled
	KindInProgress
)

func (k Kind) String() string {
	switch k {
	case KindVersionNotFound:
		return "version not found"
	case KindDownloadFailed:
		return "download failed"
	case KindExtractFailed:
		return "cannot extract archive"
	case KindArchiveEmpty:
		return "the downloaded archive is empty"
	case KindArchiveLayoutUnexpected:
		return "unexpected archive layout"
	case KindBuildFailed:
		return "build failed"
	case KindPromotionFailed:
		return "cannot move build into place"
	case KindAlreadyInstalled:
		return "already installed"
	case KindInProgress:
		return "another install of this version is in progress"
	default:
		return "i/o error"
	}
}

// Error is returned by Pipeline.Install. Staging is the directory kept for
// inspection when the failure happened after extraction started.
type Error struct {
	Kind    Kind
	Version string
	Staging string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Version, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Staging != "" {
		msg += " (staging kept at " + e.Staging + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
