// Package store is the cache server's metadata table and snapshot
// directory: a sqlite-backed index of every synced path's hash, size, and
// mtime, mirrored by the actual bytes on disk. The schema's signature
// column is never written.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/core/rsync"
	"github.com/openmined/syftbox/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_metadata (
	datasite   TEXT NOT NULL,
	path       TEXT NOT NULL,
	hash       TEXT NOT NULL,
	signature  BLOB,
	size       INTEGER NOT NULL,
	mtime      DATETIME NOT NULL,
	PRIMARY KEY (datasite, path)
);
CREATE INDEX IF NOT EXISTS idx_file_metadata_datasite ON file_metadata(datasite);
`

// ErrNotFound is returned when a path has no metadata row.
var ErrNotFound = errors.New("store: path not found")

// Store is the server's authoritative record of every datasite's files.
type Store struct {
	db           *sqlx.DB
	snapshotRoot string
}

// Open connects to (creating if absent) the sqlite database at dbPath and
// ensures snapshotRoot, the directory mirroring every datasite's files,
// exists.
func Open(dbPath, snapshotRoot string) (*Store, error) {
	sqldb, err := db.NewSqliteDb(db.WithPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if _, err := sqldb.Exec(schema); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := os.MkdirAll(snapshotRoot, 0o755); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("store: ensure snapshot root: %w", err)
	}
	return &Store{db: sqldb, snapshotRoot: snapshotRoot}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type row struct {
	Datasite string    `db:"datasite"`
	Path     string    `db:"path"`
	Hash     string    `db:"hash"`
	Size     int64     `db:"size"`
	MTime    time.Time `db:"mtime"`
}

// datasiteOf extracts the owning datasite email from a path of the form
// "email/rest/of/path", matching every other component's convention.
func datasiteOf(path string) string {
	return filepath.ToSlash(path)[:indexOrLen(path, '/')]
}

func indexOrLen(s string, sep byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return i
		}
	}
	return len(s)
}

// ListDatasites returns every distinct datasite email with at least one
// tracked path, each paired with a root hash derived from the sorted
// concatenation of its paths' hashes (a cheap "has anything changed"
// probe; the client's producer reads only the email).
func (s *Store) ListDatasites(ctx context.Context) ([]DatasiteSummary, error) {
	var datasites []string
	if err := s.db.SelectContext(ctx, &datasites, `SELECT DISTINCT datasite FROM file_metadata ORDER BY datasite`); err != nil {
		return nil, fmt.Errorf("store: list datasites: %w", err)
	}

	out := make([]DatasiteSummary, 0, len(datasites))
	for _, email := range datasites {
		var hashes []string
		if err := s.db.SelectContext(ctx, &hashes, `SELECT hash FROM file_metadata WHERE datasite = ? ORDER BY path`, email); err != nil {
			return nil, fmt.Errorf("store: root hash for %s: %w", email, err)
		}
		sum := sha256.New()
		for _, h := range hashes {
			sum.Write([]byte(h))
		}
		out = append(out, DatasiteSummary{Email: email, RootHash: hex.EncodeToString(sum.Sum(nil))})
	}
	return out, nil
}

// DatasiteSummary mirrors syncclient.DatasiteSummary on the wire.
type DatasiteSummary struct {
	Email    string `json:"email"`
	RootHash string `json:"root_hash"`
}

// ListUnderDir returns the metadata of every path whose datasite-relative
// prefix is dir (dir itself is usually a datasite email).
func (s *Store) ListUnderDir(ctx context.Context, dir string) ([]metadata.FileMetadata, error) {
	var rows []row
	pattern := dir + "/%"
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT datasite, path, hash, size, mtime FROM file_metadata WHERE path = ? OR path LIKE ? ORDER BY path`,
		dir, pattern); err != nil {
		return nil, fmt.Errorf("store: list under %s: %w", dir, err)
	}

	out := make([]metadata.FileMetadata, len(rows))
	for i, r := range rows {
		out[i] = metadata.FileMetadata{Path: r.Path, Hash: r.Hash, Size: r.Size, LastModified: r.MTime}
	}
	return out, nil
}

// GetMetadata returns the tracked metadata for path, or ErrNotFound.
func (s *Store) GetMetadata(ctx context.Context, path string) (*metadata.FileMetadata, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT datasite, path, hash, size, mtime FROM file_metadata WHERE path = ?`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get metadata %s: %w", path, err)
	}
	return &metadata.FileMetadata{Path: r.Path, Hash: r.Hash, Size: r.Size, LastModified: r.MTime}, nil
}

// GetSignature recomputes (does not cache) the rsync signature of path's
// current bytes, used to answer get_diff requests.
func (s *Store) GetSignature(ctx context.Context, path string) (rsync.Signature, error) {
	data, err := s.readSnapshot(path)
	if err != nil {
		return rsync.Signature{}, err
	}
	return rsync.ComputeSignature(data), nil
}

// Create writes data as path's full content and (re)computes its
// metadata row atomically.
func (s *Store) Create(ctx context.Context, path string, data []byte) (*metadata.FileMetadata, error) {
	if err := s.writeSnapshot(path, data); err != nil {
		return nil, err
	}
	return s.upsertMetadata(ctx, path, data)
}

// GetDiff computes an rsync delta of the server's current bytes against a
// client-supplied signature, plus the hash the client should end up with
// after applying that delta to its own local bytes.
func (s *Store) GetDiff(ctx context.Context, path string, clientSig rsync.Signature) ([]rsync.Op, string, error) {
	data, err := s.readSnapshot(path)
	if err != nil {
		return nil, "", err
	}
	ops := rsync.Diff(clientSig, data)
	sum := sha256.Sum256(data)
	return ops, hex.EncodeToString(sum[:]), nil
}

// ApplyDiff replays a client-submitted delta against the server's current
// bytes, verifies the result matches expectedHash, and persists it.
func (s *Store) ApplyDiff(ctx context.Context, path string, ops []rsync.Op, expectedHash string) (string, error) {
	base, err := s.readSnapshot(path)
	if err != nil {
		return "", err
	}

	sig := rsync.ComputeSignature(base)
	result, err := rsync.Apply(base, sig.BlockSize, ops)
	if err != nil {
		return "", fmt.Errorf("store: apply diff %s: %w", path, err)
	}

	sum := sha256.Sum256(result)
	currentHash := hex.EncodeToString(sum[:])
	if currentHash != expectedHash {
		return "", fmt.Errorf("store: apply diff %s: result hash %s does not match expected %s", path, currentHash, expectedHash)
	}

	if err := s.writeSnapshot(path, result); err != nil {
		return "", err
	}
	if _, err := s.upsertMetadata(ctx, path, result); err != nil {
		return "", err
	}
	return currentHash, nil
}

// Download returns the current bytes of path.
func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	return s.readSnapshot(path)
}

// Delete removes path's snapshot bytes and metadata row.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_metadata WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete metadata %s: %w", path, err)
	}
	full := s.snapshotPath(path)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete snapshot %s: %w", path, err)
	}
	return nil
}

func (s *Store) upsertMetadata(ctx context.Context, path string, data []byte) (*metadata.FileMetadata, error) {
	sum := sha256.Sum256(data)
	meta := &metadata.FileMetadata{
		Path:         path,
		Hash:         hex.EncodeToString(sum[:]),
		Size:         int64(len(data)),
		LastModified: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_metadata (datasite, path, hash, size, mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(datasite, path) DO UPDATE SET hash=excluded.hash, size=excluded.size, mtime=excluded.mtime
	`, datasiteOf(path), path, meta.Hash, meta.Size, meta.LastModified)
	if err != nil {
		return nil, fmt.Errorf("store: upsert metadata %s: %w", path, err)
	}
	return meta, nil
}

func (s *Store) snapshotPath(path string) string {
	return filepath.Join(s.snapshotRoot, filepath.FromSlash(path))
}

func (s *Store) readSnapshot(path string) ([]byte, error) {
	data, err := os.ReadFile(s.snapshotPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read snapshot %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) writeSnapshot(path string, data []byte) error {
	full := s.snapshotPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("store: ensure snapshot dir %s: %w", path, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write snapshot %s: %w", path, err)
	}
	return os.Rename(tmp, full)
}
