// Package authgate resolves the effective read/write/admin access a caller
// has over a datasite path. It wraps one permtree.Service per datasite,
// lazily loaded from the server's snapshot directory and invalidated
// whenever a permission file under that datasite changes.
package authgate

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/openmined/syftbox/internal/core/permtree"
)

// Gate answers authorization questions for the sync endpoints: does caller
// have the access action requires over path.
type Gate struct {
	snapshotRoot string

	mu    sync.Mutex
	trees map[string]*permtree.Service
}

// New builds a Gate rooted at snapshotRoot, the same directory the server
// store mirrors datasite bytes into.
func New(snapshotRoot string) *Gate {
	return &Gate{
		snapshotRoot: snapshotRoot,
		trees:        make(map[string]*permtree.Service),
	}
}

// Effective returns the access caller has over path, loading and caching
// the owning datasite's permission tree on first use.
func (g *Gate) Effective(path, caller string) (permtree.Access, error) {
	datasite := datasiteOf(path)
	tree, err := g.treeFor(datasite)
	if err != nil {
		return permtree.Access{}, err
	}
	return tree.Effective(strings.TrimPrefix(path, datasite+"/"), caller), nil
}

// Invalidate drops the cached tree for path's owning datasite, forcing the
// next Effective call to reload it from disk. Call this whenever a write
// touches a permission file.
func (g *Gate) Invalidate(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.trees, datasiteOf(path))
}

func (g *Gate) treeFor(datasite string) (*permtree.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tree, ok := g.trees[datasite]; ok {
		return tree, nil
	}

	tree, err := permtree.Load(filepath.Join(g.snapshotRoot, filepath.FromSlash(datasite)))
	if err != nil {
		return nil, fmt.Errorf("authgate: load permissions for %s: %w", datasite, err)
	}
	g.trees[datasite] = tree
	return tree, nil
}

func datasiteOf(path string) string {
	path = strings.TrimLeft(filepath.ToSlash(path), "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
