package authgate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePermFile(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_.syftperm"), []byte(contents), 0o644))
}

func TestEffective_OwnerHasFullAccess(t *testing.T) {
	root := t.TempDir()
	writePermFile(t, filepath.Join(root, "a@example.org"), `{"admin":["a@example.org"],"read":["a@example.org"],"write":["a@example.org"]}`)

	g := New(root)
	access, err := g.Effective("a@example.org/notes.txt", "a@example.org")
	require.NoError(t, err)
	require.True(t, access.Read)
	require.True(t, access.Write)
	require.True(t, access.Admin)
}

func TestEffective_StrangerDenied(t *testing.T) {
	root := t.TempDir()
	writePermFile(t, filepath.Join(root, "a@example.org"), `{"admin":["a@example.org"],"read":["a@example.org"],"write":["a@example.org"]}`)

	g := New(root)
	access, err := g.Effective("a@example.org/notes.txt", "stranger@example.org")
	require.NoError(t, err)
	require.False(t, access.Read)
	require.False(t, access.Write)
}

func TestEffective_UndefinedDatasiteDeniesByDefault(t *testing.T) {
	root := t.TempDir()
	g := New(root)
	access, err := g.Effective("nobody@example.org/x.txt", "nobody@example.org")
	require.NoError(t, err)
	require.False(t, access.Read)
	require.False(t, access.Write)
}

func TestInvalidate_PicksUpChangedPermissions(t *testing.T) {
	root := t.TempDir()
	datasiteDir := filepath.Join(root, "a@example.org")
	writePermFile(t, datasiteDir, `{"admin":["a@example.org"],"read":[],"write":["a@example.org"]}`)

	g := New(root)
	access, err := g.Effective("a@example.org/notes.txt", "guest@example.org")
	require.NoError(t, err)
	require.False(t, access.Read)

	writePermFile(t, datasiteDir, `{"admin":["a@example.org"],"read":["GLOBAL"],"write":["a@example.org"]}`)
	g.Invalidate("a@example.org/notes.txt")

	access, err = g.Effective("a@example.org/notes.txt", "guest@example.org")
	require.NoError(t, err)
	require.True(t, access.Read)
}
