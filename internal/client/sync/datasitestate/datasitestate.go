package datasitestate

import (
	"context"
	"fmt"
	"time"

	"github.com/openmined/syftbox/internal/client/sync/syncclient"
	"github.com/openmined/syftbox/internal/core/hasher"
	"github.com/openmined/syftbox/internal/core/ignorematch"
	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/core/permtree"
)

// recentDeleteGrace is the debounce window: a path present remotely but
// absent locally is not treated as a local delete if the local side's last
// known mtime is within this window, since the file may simply be mid-write
// and not yet visible to the hasher's walk.
const recentDeleteGrace = 2 * time.Second

// Result is the output of Diff: paths bucketed the way the producer wants
// to enqueue them.
type Result struct {
	Permissions []Change
	Files       []Change
	Ignored     []string
}

// RemoteLister is the subset of the sync HTTP client Diff needs, kept as an
// interface so tests can supply a fake without spinning up a server.
type RemoteLister interface {
	GetRemoteState(ctx context.Context, dir string) ([]syncclient.RemoteEntry, error)
}

// Diff computes get_out_of_sync_files for one datasite: root is the local
// filesystem path of the datasite, datasiteDir is its remote identifier
// (normally the owning email). recentLocalMTimes, when non-nil, supplies
// the last known local mtime for paths recently observed to vanish, so the
// debounce window can be applied without re-walking history.
func Diff(ctx context.Context, client RemoteLister, root, datasiteDir string, ignore *ignorematch.Matcher, recentLocalMTimes map[string]time.Time) (*Result, error) {
	localNow, err := hasher.HashDir(root, hasher.Options{})
	if err != nil {
		return nil, fmt.Errorf("datasitestate: hash local: %w", err)
	}

	remoteEntries, err := client.GetRemoteState(ctx, datasiteDir)
	if err != nil {
		return nil, fmt.Errorf("datasitestate: fetch remote state: %w", err)
	}
	remoteNow := make(map[string]*metadata.FileMetadata, len(remoteEntries))
	for _, e := range remoteEntries {
		remoteNow[e.Path] = &metadata.FileMetadata{
			Path: e.Path, Hash: e.Hash, Size: e.Size, LastModified: e.LastModified,
		}
	}

	result := &Result{}

	union := make(map[string]struct{}, len(localNow)+len(remoteNow))
	for p := range localNow {
		union[p] = struct{}{}
	}
	for p := range remoteNow {
		union[p] = struct{}{}
	}

	for p := range union {
		if ignore != nil && ignore.Match(p) {
			result.Ignored = append(result.Ignored, p)
			continue
		}

		local, hasLocal := localNow[p]
		remote, hasRemote := remoteNow[p]

		var change *Change
		switch {
		case hasLocal && hasRemote:
			if local.Hash == remote.Hash {
				continue
			}
			side, last, size := SideBoth, local.LastModified, local.Size
			if remote.LastModified.After(local.LastModified) {
				last, size = remote.LastModified, remote.Size
			}
			change = &Change{Path: p, Side: side, Size: size, SideLastModified: last}

		case hasLocal && !hasRemote:
			change = &Change{Path: p, Side: SideLocal, Size: local.Size, SideLastModified: local.LastModified}

		case !hasLocal && hasRemote:
			if mt, ok := recentLocalMTimes[p]; ok && time.Since(mt) < recentDeleteGrace {
				continue
			}
			change = &Change{Path: p, Side: SideRemote, Size: remote.Size, SideLastModified: remote.LastModified}
		}

		if change == nil {
			continue
		}
		change.IsPermissionFile = permtree.IsPermissionFile(p)
		if change.IsPermissionFile {
			result.Permissions = append(result.Permissions, *change)
		} else {
			result.Files = append(result.Files, *change)
		}
	}

	return result, nil
}
