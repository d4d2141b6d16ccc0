// Package consumer implements the three-way sync decision: given a
// changed path's current local bytes, last-synced metadata, and current
// remote metadata, it decides whether to push, pull, or flag a conflict,
// and carries out the winning side's network or filesystem operation.
package consumer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openmined/syftbox/internal/client/sync/datasitestate"
	"github.com/openmined/syftbox/internal/client/sync/localstate"
	"github.com/openmined/syftbox/internal/client/sync/syncclient"
	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/core/permtree"
	"github.com/openmined/syftbox/internal/core/rsync"
)

// RemoteClient is the subset of syncclient.Client the consumer drives.
type RemoteClient interface {
	GetMetadata(ctx context.Context, path string) (*metadata.FileMetadata, error)
	GetDiff(ctx context.Context, path string, localSig rsync.Signature) ([]rsync.Op, error)
	ApplyDiff(ctx context.Context, path string, ops []rsync.Op, expectedHash string) error
	Create(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	Download(ctx context.Context, path string) ([]byte, error)
}

// Consumer drains the priority queue, one item at a time, applying the
// three-way sync decision.
type Consumer struct {
	client        RemoteClient
	root          string
	state         *localstate.Store
	permissions   *permtree.Service
	selfEmail     string
	maxFileSizeMB int64
}

// New builds a Consumer. root is the local filesystem directory that
// datasite-relative paths are resolved against.
func New(client RemoteClient, root string, state *localstate.Store, permissions *permtree.Service, selfEmail string, maxFileSizeMB int64) *Consumer {
	return &Consumer{
		client:        client,
		root:          root,
		state:         state,
		permissions:   permissions,
		selfEmail:     selfEmail,
		maxFileSizeMB: maxFileSizeMB,
	}
}

// Process resolves and executes the sync decision for one queued change.
// Errors are recorded into LocalState and swallowed: a single path's
// failure must never abort the tick.
func (c *Consumer) Process(ctx context.Context, change datasitestate.Change) {
	path := change.Path
	c.state.InsertStatusInfo(path, localstate.StatusInProgress, localstate.ActionNoop, "")

	if err := c.process(ctx, path); err != nil {
		if errors.Is(err, errRejected) {
			c.state.InsertStatusInfo(path, localstate.StatusRejected, localstate.ActionNoop, err.Error())
			return
		}
		slog.Error("consumer: sync failed", "path", path, "error", err)
		c.state.InsertStatusInfo(path, localstate.StatusError, localstate.ActionNoop, err.Error())
	}
}

var errRejected = errors.New("rejected")

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errRejected, fmt.Sprintf(format, args...))
}

func (c *Consumer) process(ctx context.Context, path string) error {
	absPath := filepath.Join(c.root, filepath.FromSlash(path))
	maxBytes := c.maxFileSizeMB * 1024 * 1024

	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			c.state.InsertStatusInfo(path, localstate.StatusIgnored, localstate.ActionNoop, "symlinks are not synced")
			return nil
		}
		if info.Size() > maxBytes {
			return reject("file size %d exceeds MAX_FILE_SIZE_MB=%d", info.Size(), c.maxFileSizeMB)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat local: %w", err)
	}

	localBytes, localPresent, err := readIfExists(absPath)
	if err != nil {
		return fmt.Errorf("read local: %w", err)
	}
	var currentLocal *metadata.FileMetadata
	if localPresent {
		currentLocal = hashBytes(path, localBytes)
	}

	previousSynced := c.state.PreviousSynced(path)

	currentRemote, err := c.client.GetMetadata(ctx, path)
	if err != nil && !errors.Is(err, syncclient.ErrNotFound) {
		return fmt.Errorf("get remote metadata: %w", err)
	}
	if currentRemote != nil && currentRemote.Size > maxBytes {
		return reject("remote file size %d exceeds MAX_FILE_SIZE_MB=%d", currentRemote.Size, c.maxFileSizeMB)
	}

	localAction, remoteAction := decide(currentLocal, previousSynced, currentRemote)

	if remoteAction != localstate.ActionNoop {
		if err := c.authorize(path, remoteAction); err != nil {
			return err
		}
	}

	switch remoteAction {
	case localstate.ActionCreateRemote:
		if err := c.client.Create(ctx, path, localBytes); err != nil {
			return fmt.Errorf("create remote: %w", err)
		}
	case localstate.ActionModifyRemote:
		if err := c.pushModify(ctx, path, localBytes); err != nil {
			return fmt.Errorf("modify remote: %w", err)
		}
	case localstate.ActionDeleteRemote:
		if err := c.client.Delete(ctx, path); err != nil {
			return fmt.Errorf("delete remote: %w", err)
		}
	}

	switch localAction {
	case localstate.ActionCreateLocal:
		data, err := c.client.Download(ctx, path)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		if err := writeAtomic(absPath, data); err != nil {
			return fmt.Errorf("write local: %w", err)
		}
		localBytes = data
	case localstate.ActionModifyLocal:
		data, err := c.pullModify(ctx, path, localBytes)
		if err != nil {
			return fmt.Errorf("modify local: %w", err)
		}
		if err := writeAtomic(absPath, data); err != nil {
			return fmt.Errorf("write local: %w", err)
		}
		localBytes = data
	case localstate.ActionDeleteLocal:
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete local: %w", err)
		}
		c.state.RemoveSynced(path)
		c.state.InsertStatusInfo(path, localstate.StatusSynced, localAction, "")
		return nil
	}

	action := localAction
	if action == localstate.ActionNoop {
		action = remoteAction
	}
	if action == localstate.ActionNoop {
		c.state.InsertStatusInfo(path, localstate.StatusSynced, localstate.ActionNoop, "")
		return nil
	}

	finalMeta := hashBytes(path, localBytes)
	c.state.InsertSyncedFile(path, finalMeta, action)
	return nil
}

// decide implements the spec §4.9 decision table: local_modified,
// remote_modified, in_sync determine (local_action, remote_action), then
// presence of current/target on each side refines CREATE/MODIFY/DELETE.
func decide(currentLocal, previousSynced, currentRemote *metadata.FileMetadata) (localstate.Action, localstate.Action) {
	localModified := !metaEqual(currentLocal, previousSynced)
	remoteModified := !metaEqual(currentRemote, previousSynced)
	inSync := metaEqual(currentLocal, currentRemote)

	switch {
	case !localModified && !remoteModified:
		return localstate.ActionNoop, localstate.ActionNoop

	case localModified && !remoteModified:
		return localstate.ActionNoop, remoteSideAction(currentLocal, currentRemote)

	case !localModified && remoteModified:
		return localSideAction(currentRemote, currentLocal), localstate.ActionNoop

	case localModified && remoteModified && inSync:
		return localstate.ActionNoop, localstate.ActionNoop

	default: // both modified, diverged: conflict, overwrite local with remote
		return localSideAction(currentRemote, currentLocal), localstate.ActionNoop
	}
}

func remoteSideAction(local, remote *metadata.FileMetadata) localstate.Action {
	switch {
	case local == nil:
		return localstate.ActionDeleteRemote
	case remote == nil:
		return localstate.ActionCreateRemote
	default:
		return localstate.ActionModifyRemote
	}
}

func localSideAction(remote, local *metadata.FileMetadata) localstate.Action {
	switch {
	case remote == nil:
		return localstate.ActionDeleteLocal
	case local == nil:
		return localstate.ActionCreateLocal
	default:
		return localstate.ActionModifyLocal
	}
}

func metaEqual(a, b *metadata.FileMetadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// pushModify computes a delta of the server's current bytes against the
// caller's local bytes and applies it server-side. The wire protocol has
// no dedicated signature endpoint, so this downloads the server's current
// content once to compute the signature locally, trading one extra round
// trip for a simpler server contract.
func (c *Consumer) pushModify(ctx context.Context, path string, localBytes []byte) error {
	serverBytes, err := c.client.Download(ctx, path)
	if err != nil {
		return err
	}
	serverSig := rsync.ComputeSignature(serverBytes)
	ops := rsync.Diff(serverSig, localBytes)
	expectedHash := sha256Hex(localBytes)
	return c.client.ApplyDiff(ctx, path, ops, expectedHash)
}

func (c *Consumer) pullModify(ctx context.Context, path string, localBytes []byte) ([]byte, error) {
	sig := rsync.ComputeSignature(localBytes)
	ops, err := c.client.GetDiff(ctx, path, sig)
	if err != nil {
		return nil, err
	}
	result, err := rsync.Apply(localBytes, sig.BlockSize, ops)
	if err != nil {
		return nil, fmt.Errorf("apply diff: %w", err)
	}
	return result, nil
}

func (c *Consumer) authorize(path string, action localstate.Action) error {
	access := c.permissions.Effective(path, c.selfEmail)
	if !access.Write {
		return reject("no write permission for %s", path)
	}
	return nil
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hashBytes(path string, data []byte) *metadata.FileMetadata {
	return &metadata.FileMetadata{
		Path: path,
		Hash: sha256Hex(data),
		Size: int64(len(data)),
	}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
