package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamusis/frum/internal/version"
)

func writeVersionFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644))
}

func TestResolve_Priority(t *testing.T) {
	root := t.TempDir()
	cwd := filepath.Join(root, "project")
	writeVersionFile(t, cwd, "2.7.1\n")
	r := New("")

	res, err := r.Resolve("2.6.4", cwd)
	require.NoError(t, err)
	assert.Equal(t, "v2.6.4", res.Version.String())
	assert.Equal(t, SourceExplicit, res.Source)

	res, err = r.Resolve("", cwd)
	require.NoError(t, err)
	assert.Equal(t, "v2.7.1", res.Version.String())
	assert.Equal(t, SourceVersionFile, res.Source)
	assert.Equal(t, filepath.Join(cwd, DefaultFileName), res.File)

	require.NoError(t, os.Remove(filepath.Join(cwd, DefaultFileName)))
	_, err = r.Resolve("", cwd)
	assert.ErrorIs(t, err, ErrCantInferVersion)
}

func TestResolve_ExplicitSkipsFilesystem(t *testing.T) {
	res, err := New("").Resolve("default", filepath.Join(t.TempDir(), "does", "not", "exist"))
	require.NoError(t, err)
	assert.Equal(t, version.Alias("default"), res.Version)
}

func TestResolve_NearestAncestorWins(t *testing.T) {
	root := t.TempDir()
	parent := filepath.Join(root, "parent")
	child := filepath.Join(parent, "child")
	deep := filepath.Join(child, "a", "b")
	writeVersionFile(t, parent, "2.5.0")
	writeVersionFile(t, child, "v2.6.4")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	r := New("")
	res, err := r.Resolve("", child)
	require.NoError(t, err)
	assert.Equal(t, "v2.6.4", res.Version.String())

	res, err = r.Resolve("", deep)
	require.NoError(t, err)
	assert.Equal(t, "v2.6.4", res.Version.String())

	res, err = r.Resolve("", parent)
	require.NoError(t, err)
	assert.Equal(t, "v2.5.0", res.Version.String())
}

func TestResolve_BadFileFailsInsteadOfFallingThrough(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "child")
	writeVersionFile(t, root, "2.6.4")
	writeVersionFile(t, child, "2.6")

	_, err := New("").Resolve("", child)
	var pe *version.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestResolve_DirectoryNamedLikeFileIsIgnored(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "child")
	require.NoError(t, os.MkdirAll(filepath.Join(child, DefaultFileName), 0o755))
	writeVersionFile(t, root, "jruby")

	res, err := New("").Resolve("", child)
	require.NoError(t, err)
	assert.Equal(t, "jruby", res.Version.String())
}

func TestReadVersionFile_SkipsBlankAndComments(t *testing.T) {
	dir := t.TempDir()
	writeVersionFile(t, dir, "\n# pinned\n  2.6.4  \n3.0.0\n")
	v, err := ReadVersionFile(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "v2.6.4", v.String())

	writeVersionFile(t, dir, "\n\n")
	_, err = ReadVersionFile(filepath.Join(dir, DefaultFileName))
	var pe *version.ParseError
	require.ErrorAs(t, err, &pe)
}
