// Package version models the identifiers users type to select a Ruby build:
// exact semantic versions such as v2.6.4, and named aliases such as "default".
package version

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/cases"
)

// Version is either an exact semantic version or an alias name. The zero value
// is neither and is reported by IsZero.
type Version struct {
	semver *semver.Version
	alias  string
}

// ParseError reports text that looks like a semantic version but is not one,
// or an alias where an exact version is required.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errEmpty    = errors.New("empty version")
	errNotExact = errors.New("an exact version such as 2.6.4 is required")
)

// Parse classifies text as an exact version or an alias. A single leading
// "v" or "V" is ignored for classification. Anything that does not begin with
// a digit after that prefix is an alias and never fails; digit-leading text
// must be a strict semantic version.
func Parse(text string) (Version, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Version{}, &ParseError{Input: text, Err: errEmpty}
	}
	plain := trimV(s)
	if !startsWithDigit(plain) {
		return Alias(s), nil
	}
	sv, err := semver.StrictNewVersion(plain)
	if err != nil {
		return Version{}, &ParseError{Input: text, Err: err}
	}
	return Version{semver: sv}, nil
}

// ParseExact is Parse restricted to exact versions.
func ParseExact(text string) (Version, error) {
	v, err := Parse(text)
	if err != nil {
		return Version{}, err
	}
	if !v.IsExact() {
		return Version{}, &ParseError{Input: text, Err: errNotExact}
	}
	return v, nil
}

// MustParse is Parse that panics on error. Intended for tests and constants.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Alias builds an alias identifier. The name is case-folded.
func Alias(name string) Version {
	return Version{alias: fold(strings.TrimSpace(name))}
}

// FromSemver wraps an already parsed semantic version.
func FromSemver(sv *semver.Version) Version {
	return Version{semver: sv}
}

func (v Version) IsExact() bool { return v.semver != nil }

func (v Version) IsAlias() bool { return v.semver == nil && v.alias != "" }

func (v Version) IsZero() bool { return v.semver == nil && v.alias == "" }

// AliasName returns the alias name, or "" for exact versions.
func (v Version) AliasName() string {
	if v.IsExact() {
		return ""
	}
	return v.alias
}

// Semver returns the underlying semantic version, or nil for aliases.
func (v Version) Semver() *semver.Version { return v.semver }

// String renders the canonical form: "v1.2.3[-pre][+build]" for exact
// versions, the folded name for aliases. Installation directories and alias
// link targets use this form.
func (v Version) String() string {
	if v.semver != nil {
		return "v" + v.semver.String()
	}
	return v.alias
}

// Plain renders an exact version without the "v" prefix, the form used in
// upstream archive names. Aliases render as their name.
func (v Version) Plain() string {
	if v.semver != nil {
		return v.semver.String()
	}
	return v.alias
}

// Equal reports whether a and b denote the same identifier, including build
// metadata.
func (v Version) Equal(o Version) bool {
	return Compare(v, o) == 0
}

// Compare orders exact versions by semantic precedence, then aliases by
// folded name. Every exact version sorts before every alias. Build metadata,
// which semver precedence ignores, breaks ties so that distinct installations
// never compare equal.
func Compare(a, b Version) int {
	switch {
	case a.IsExact() && b.IsExact():
		if c := a.semver.Compare(b.semver); c != 0 {
			return c
		}
		return strings.Compare(a.semver.Metadata(), b.semver.Metadata())
	case a.IsExact():
		return -1
	case b.IsExact():
		return 1
	default:
		return strings.Compare(a.alias, b.alias)
	}
}

// Sort orders vs ascending in place.
func Sort(vs []Version) {
	slices.SortFunc(vs, Compare)
}

func trimV(s string) string {
	if len(s) > 0 && (s[0] == 'v' || s[0] == 'V') {
		return s[1:]
	}
	return s
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

func fold(s string) string {
	return cases.Fold().String(s)
}
