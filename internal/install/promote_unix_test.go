//go:build unix

package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/kamusis/frum/internal/version"
)

func crossDeviceRename(t *testing.T) {
	t.Helper()
	orig := renameDir
	renameDir = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
	}
	t.Cleanup(func() { renameDir = orig })
}

func TestPromote_CrossDeviceCopies(t *testing.T) {
	crossDeviceRename(t)
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "ruby"), []byte("ruby"), 0o755))
	require.NoError(t, os.Symlink("ruby", filepath.Join(src, "bin", "irb")))

	dst := filepath.Join(root, "versions", "v2.6.4")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, promote(src, dst))

	info, err := os.Stat(filepath.Join(dst, "bin", "ruby"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	link, err := os.Readlink(filepath.Join(dst, "bin", "irb"))
	require.NoError(t, err)
	assert.Equal(t, "ruby", link)
	assert.NoDirExists(t, src)

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary sibling should survive")
	assert.Equal(t, "v2.6.4", entries[0].Name())
}

func TestPromote_OtherErrorsFail(t *testing.T) {
	orig := renameDir
	renameDir = func(string, string) error { return os.ErrPermission }
	t.Cleanup(func() { renameDir = orig })

	root := t.TempDir()
	err := promote(filepath.Join(root, "src"), filepath.Join(root, "dst"))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.NoDirExists(t, filepath.Join(root, "dst"))
}

func TestInstall_CrossDevicePromotion(t *testing.T) {
	crossDeviceRename(t)
	srv := serve(t, map[string][]byte{"ruby-2.7.1.tar.xz": rubySource(t, "2.7.1")})
	p, l := newPipeline(t, srv.URL, fakeBuild)

	v := version.MustParse("2.7.1")
	dir, err := p.Install(context.Background(), v)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "bin", "ruby"))
	assert.Equal(t, []string{"v2.7.1"}, installations(t, l))
}
