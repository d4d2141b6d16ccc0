package permtree

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePermFile(t *testing.T, dir string, pf *PermissionFile) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(pf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), data, 0o644))
}

func TestLoad_DeepestPermissionFileWins(t *testing.T) {
	root := t.TempDir()
	writePermFile(t, root, OwnerOnly("alice@x.org"))
	writePermFile(t, filepath.Join(root, "folder1"), PublicRead("alice@x.org"))

	svc, err := Load(root)
	require.NoError(t, err)

	rootAccess := svc.Effective("other.txt", "bob@x.org")
	require.False(t, rootAccess.Read)

	nested := svc.Effective("folder1/file.txt", "bob@x.org")
	require.True(t, nested.Read)
	require.False(t, nested.Write)

	ownerNested := svc.Effective("folder1/file.txt", "alice@x.org")
	require.True(t, ownerNested.Admin)
	require.True(t, ownerNested.Write)
}

func TestEffective_UndefinedPathDenies(t *testing.T) {
	svc := New()
	access := svc.Effective("no/perm/file.txt", "anyone@x.org")
	require.Equal(t, Access{}, access)
}

func TestEffective_AdminIgnoresGlobal(t *testing.T) {
	svc := New()
	svc.Set("", &PermissionFile{Admin: []string{Global}, Read: []string{Global}})

	access := svc.Effective("file.txt", "random@x.org")
	require.True(t, access.Read)
	require.False(t, access.Admin, "GLOBAL must never grant admin")
}

func TestEffective_CacheInvalidatedOnUpdate(t *testing.T) {
	svc := New()
	svc.Set("folder1", OwnerOnly("alice@x.org"))

	require.False(t, svc.Effective("folder1/f.txt", "bob@x.org").Read)

	svc.Set("folder1", PublicRead("alice@x.org"))
	require.True(t, svc.Effective("folder1/f.txt", "bob@x.org").Read)
}

func TestEffective_RemoveFallsBackToAncestor(t *testing.T) {
	svc := New()
	svc.Set("", OwnerOnly("alice@x.org"))
	svc.Set("folder1", PublicRead("alice@x.org"))

	require.True(t, svc.Effective("folder1/f.txt", "bob@x.org").Read)

	svc.Remove("folder1")
	require.False(t, svc.Effective("folder1/f.txt", "bob@x.org").Read)
}

func TestIsPermissionFile(t *testing.T) {
	require.True(t, IsPermissionFile("a/b/_.syftperm"))
	require.False(t, IsPermissionFile("a/b/file.txt"))
}
