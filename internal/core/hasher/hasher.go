// Package hasher walks a directory tree and computes content hashes for
// every regular file it contains, in parallel, skipping what policy says to
// skip.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openmined/syftbox/internal/core/metadata"
)

// Options controls traversal policy.
type Options struct {
	// IncludeHidden syncs dotfiles and dot-directories when true.
	IncludeHidden bool
	// FollowSymlinks syncs symlink targets when true. Default is to skip
	// symlinks entirely and let the caller record them as ignored.
	FollowSymlinks bool
	// Workers bounds the number of files hashed concurrently. Defaults to
	// runtime.GOMAXPROCS(0) when <= 0.
	Workers int
}

// HashDir walks root and returns a map of POSIX-style relative path to
// FileMetadata for every regular file found. It fails soft: a file that
// cannot be read is logged and omitted, and the walk continues.
func HashDir(root string, opts Options) (map[string]*metadata.FileMetadata, error) {
	type found struct {
		relPath string
		absPath string
		size    int64
		modTime fs.FileInfo
	}

	var paths []found
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("hasher: walk error", "path", path, "error", walkErr)
			return nil
		}

		name := d.Name()
		if !opts.IncludeHidden && len(name) > 0 && name[0] == '.' && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("hasher: stat failed", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			slog.Warn("hasher: relpath failed", "path", path, "error", err)
			return nil
		}

		paths = append(paths, found{
			relPath: filepath.ToSlash(rel),
			absPath: path,
			size:    info.Size(),
			modTime: info,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hasher: walk %s: %w", root, err)
	}

	out := make(map[string]*metadata.FileMetadata, len(paths))
	var mu sync.Mutex

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, f := range paths {
		f := f
		g.Go(func() error {
			hash, err := hashFile(f.absPath)
			if err != nil {
				slog.Warn("hasher: skipping unreadable file", "path", f.relPath, "error", err)
				return nil
			}

			mu.Lock()
			out[f.relPath] = &metadata.FileMetadata{
				Path:         f.relPath,
				Hash:         hash,
				Size:         f.modTime.Size(),
				LastModified: f.modTime.ModTime(),
			}
			mu.Unlock()
			return nil
		})
	}

	// errgroup.Group.Wait only ever returns nil here since every Go() func
	// itself returns nil; per-file failures are recorded via logging above.
	_ = g.Wait()

	return out, nil
}

func defaultWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 4
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
