package consumer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmined/syftbox/internal/client/sync/datasitestate"
	"github.com/openmined/syftbox/internal/client/sync/localstate"
	"github.com/openmined/syftbox/internal/client/sync/syncclient"
	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/core/permtree"
	"github.com/openmined/syftbox/internal/core/rsync"
)

type fakeRemote struct {
	meta        map[string]*metadata.FileMetadata
	bodies      map[string][]byte
	createCalls map[string][]byte
	deleted     []string
	applied     map[string][]byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		meta:        make(map[string]*metadata.FileMetadata),
		bodies:      make(map[string][]byte),
		createCalls: make(map[string][]byte),
		applied:     make(map[string][]byte),
	}
}

func (f *fakeRemote) GetMetadata(ctx context.Context, path string) (*metadata.FileMetadata, error) {
	m, ok := f.meta[path]
	if !ok {
		return nil, syncclient.ErrNotFound
	}
	return m, nil
}

func (f *fakeRemote) GetDiff(ctx context.Context, path string, localSig rsync.Signature) ([]rsync.Op, error) {
	target := f.bodies[path]
	return rsync.Diff(localSig, target), nil
}

func (f *fakeRemote) ApplyDiff(ctx context.Context, path string, ops []rsync.Op, expectedHash string) error {
	base := f.bodies[path]
	result, err := rsync.Apply(base, rsync.ComputeSignature(base).BlockSize, ops)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(result)
	if hex.EncodeToString(sum[:]) != expectedHash {
		return syncclient.ErrConflict
	}
	f.bodies[path] = result
	f.meta[path] = &metadata.FileMetadata{Path: path, Hash: expectedHash, Size: int64(len(result))}
	f.applied[path] = result
	return nil
}

func (f *fakeRemote) Create(ctx context.Context, path string, data []byte) error {
	f.createCalls[path] = data
	f.bodies[path] = data
	sum := sha256.Sum256(data)
	f.meta[path] = &metadata.FileMetadata{Path: path, Hash: hex.EncodeToString(sum[:]), Size: int64(len(data))}
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	delete(f.bodies, path)
	delete(f.meta, path)
	return nil
}

func (f *fakeRemote) Download(ctx context.Context, path string) ([]byte, error) {
	return f.bodies[path], nil
}

func newConsumer(t *testing.T, remote *fakeRemote, root string) (*Consumer, *localstate.Store) {
	t.Helper()
	state, err := localstate.Open(filepath.Join(root, "local_syncstate.json"))
	require.NoError(t, err)
	perms := permtree.New()
	perms.Set("", permtree.PublicRead("a@example.org"))
	c := New(remote, root, state, perms, "a@example.org", 100)
	return c, state
}

func TestProcess_CreateRemote_LocalOnlyFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hello"), 0o644))

	remote := newFakeRemote()
	c, state := newConsumer(t, remote, root)

	c.Process(context.Background(), datasitestate.Change{Path: "new.txt"})

	require.Equal(t, []byte("hello"), remote.createCalls["new.txt"])
	status := state.StatusOf("new.txt")
	require.Equal(t, localstate.StatusSynced, status.Status)
	require.Equal(t, localstate.ActionCreateRemote, status.Action)
}

func TestProcess_CreateLocal_RemoteOnlyFile(t *testing.T) {
	root := t.TempDir()
	remote := newFakeRemote()
	remote.bodies["new.txt"] = []byte("remote content")
	remote.meta["new.txt"] = &metadata.FileMetadata{Path: "new.txt", Hash: "h", Size: 14}

	c, state := newConsumer(t, remote, root)
	c.Process(context.Background(), datasitestate.Change{Path: "new.txt"})

	data, err := os.ReadFile(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "remote content", string(data))
	require.Equal(t, localstate.StatusSynced, state.StatusOf("new.txt").Status)
}

func TestProcess_DeleteLocal_WhenRemoteDeletedAndUnchangedLocally(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	remote := newFakeRemote()
	c, state := newConsumer(t, remote, root)

	sum := sha256.Sum256([]byte("content"))
	state.InsertSyncedFile("gone.txt", &metadata.FileMetadata{Path: "gone.txt", Hash: hex.EncodeToString(sum[:]), Size: 7}, localstate.ActionCreateLocal)

	c.Process(context.Background(), datasitestate.Change{Path: "gone.txt"})

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, localstate.StatusSynced, state.StatusOf("gone.txt").Status)
}

func TestProcess_RejectsOversizedFile(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 200)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), big, 0o644))

	remote := newFakeRemote()
	state, err := localstate.Open(filepath.Join(root, "local_syncstate.json"))
	require.NoError(t, err)
	perms := permtree.New()
	// maxFileSizeMB set so tiny that 200 bytes exceeds it: use 0 MB cap via direct byte math is awkward,
	// so construct the consumer with a cap of 0 (enforced as 0 bytes).
	c := New(remote, root, state, perms, "a@example.org", 0)

	c.Process(context.Background(), datasitestate.Change{Path: "big.txt"})

	status := state.StatusOf("big.txt")
	require.Equal(t, localstate.StatusRejected, status.Status)
}

func TestProcess_RejectsWhenNoWritePermission(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("hello"), 0o644))

	remote := newFakeRemote()
	state, err := localstate.Open(filepath.Join(root, "local_syncstate.json"))
	require.NoError(t, err)
	perms := permtree.New()
	perms.Set("", permtree.OwnerOnly("someone-else@example.org"))
	c := New(remote, root, state, perms, "a@example.org", 100)

	c.Process(context.Background(), datasitestate.Change{Path: "new.txt"})

	status := state.StatusOf("new.txt")
	require.Equal(t, localstate.StatusRejected, status.Status)
}

func TestProcess_ModifyRemote_PushesDelta(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.txt"), []byte("new local content here"), 0o644))

	oldRemoteContent := []byte("old remote content here")
	remote := newFakeRemote()
	remote.bodies["doc.txt"] = oldRemoteContent
	sum := sha256.Sum256(oldRemoteContent)
	remoteHash := hex.EncodeToString(sum[:])
	remote.meta["doc.txt"] = &metadata.FileMetadata{Path: "doc.txt", Hash: remoteHash, Size: int64(len(oldRemoteContent))}

	c, state := newConsumer(t, remote, root)
	state.InsertSyncedFile("doc.txt", &metadata.FileMetadata{Path: "doc.txt", Hash: remoteHash, Size: int64(len(oldRemoteContent))}, localstate.ActionCreateLocal)

	c.Process(context.Background(), datasitestate.Change{Path: "doc.txt"})

	require.Equal(t, []byte("new local content here"), remote.bodies["doc.txt"])
	require.Equal(t, localstate.StatusSynced, state.StatusOf("doc.txt").Status)
}
