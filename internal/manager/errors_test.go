package manager

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kamusis/frum/internal/alias"
	"github.com/kamusis/frum/internal/install"
	"github.com/kamusis/frum/internal/resolve"
	"github.com/kamusis/frum/internal/symlink"
	"github.com/kamusis/frum/internal/version"
)

func TestKindOf(t *testing.T) {
	_, parseErr := version.Parse("1.2.3.4")
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"parse", parseErr, KindParse},
		{"wrapped parse", fmt.Errorf("version file x: %w", parseErr), KindParse},
		{"cant infer", resolve.ErrCantInferVersion, KindCantInferVersion},
		{"alias missing", &alias.Error{Kind: alias.KindNotFound}, KindAliasNotFound},
		{"alias dangling", &alias.Error{Kind: alias.KindTargetNotInstalled}, KindAliasTargetNotInstalled},
		{"alias swap", &alias.Error{Kind: alias.KindIo, Err: &symlink.SwapError{}}, KindSymlinkSwapFailed},
		{"swap", &symlink.SwapError{}, KindSymlinkSwapFailed},
		{"install 404", &install.Error{Kind: install.KindVersionNotFound}, KindVersionNotFound},
		{"install build", &install.Error{Kind: install.KindBuildFailed}, KindBuildFailed},
		{"install lock", &install.Error{Kind: install.KindInProgress}, KindInstallInProgress},
		{"manager", &Error{Kind: KindVersionInUse}, KindVersionInUse},
		{"other", errors.New("disk on fire"), KindIo},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, KindOf(c.err), c.name)
	}
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := &Error{Kind: KindAliasNotFound, Err: errors.New("x")}
	assert.Same(t, inner, wrap("v1.0.0", inner))
	assert.Nil(t, wrap("v1.0.0", nil))

	err := wrap("v2.6.4", &install.Error{Kind: install.KindArchiveEmpty, Version: "v2.6.4"})
	var me *Error
	assert.ErrorAs(t, err, &me)
	assert.Equal(t, KindArchiveEmpty, me.Kind)
	assert.Equal(t, "v2.6.4", me.Version)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "version not found", KindVersionNotFound.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
