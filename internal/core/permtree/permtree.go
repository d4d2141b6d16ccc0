// Package permtree loads, evaluates, and caches the hierarchy of permission
// files under a datasite.
package permtree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

type cacheKey struct {
	path string
	user string
}

// Service answers "can user U read/write/admin path P?" for one datasite,
// caching resolved answers until the owning node's ruleset changes.
type Service struct {
	tree  *Tree
	cache *lru.Cache[cacheKey, cachedAccess]
}

type cachedAccess struct {
	access  Access
	dir     string
	version uint64
}

// New creates an empty Service; use Load to populate it from disk.
func New() *Service {
	cache, _ := lru.New[cacheKey, cachedAccess](defaultCacheSize)
	return &Service{tree: NewTree(), cache: cache}
}

// Load walks datasiteRoot for every file named FileName and installs its
// parsed contents into the tree, replacing any previous state. Per spec
// §4.2, an implementation loads all permission files once per sync pass.
func Load(datasiteRoot string) (*Service, error) {
	s := New()

	err := filepath.WalkDir(datasiteRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || d.Name() != FileName {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("permtree: read %s: %w", p, err)
		}

		var pf PermissionFile
		if err := sonic.Unmarshal(data, &pf); err != nil {
			return fmt.Errorf("permtree: parse %s: %w", p, err)
		}

		rel, err := filepath.Rel(datasiteRoot, filepath.Dir(p))
		if err != nil {
			return fmt.Errorf("permtree: relpath %s: %w", p, err)
		}
		if rel == "." {
			rel = ""
		}

		s.tree.Set(filepath.ToSlash(rel), &pf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Effective resolves the access user has for path. Undefined path (no
// ancestor permission file) is deny: Access{}.
func (s *Service) Effective(path, user string) Access {
	path = strings.TrimLeft(path, "/")

	key := cacheKey{path: path, user: user}
	if cached, ok := s.cache.Get(key); ok {
		if s.tree.versionOf(cached.dir) == cached.version {
			return cached.access
		}
		s.cache.Remove(key)
	}

	rule, dir, version := s.tree.nearest(path)
	if rule == nil {
		return Access{}
	}

	access := rule.effective(user)
	s.cache.Add(key, cachedAccess{access: access, dir: dir, version: version})
	return access
}

// Set installs or replaces the permission file governing dir directly,
// bypassing disk.
func (s *Service) Set(dir string, pf *PermissionFile) {
	s.tree.Set(dir, pf)
}

// Remove drops the permission file governing dir.
func (s *Service) Remove(dir string) {
	s.tree.Remove(dir)
}

// IsPermissionFile reports whether relPath's basename is the fixed
// permission filename.
func IsPermissionFile(relPath string) bool {
	return filepath.Base(relPath) == FileName
}
