// Package localstate persists, per client, the last successfully synced
// metadata per path and the last sync status/message/action per path. It is
// the basis for the three-way diff computed on every subsequent tick.
package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/openmined/syftbox/internal/core/metadata"
	"github.com/openmined/syftbox/internal/utils"
)

// ErrSyncEnvironmentCorrupted is raised by Save when the on-disk state file
// has disappeared out from under a running client — see spec §4.4 and §7.
// Callers must abort the sync loop; it is never safe to keep syncing
// (mass-deleting on the remote) once this fires.
var ErrSyncEnvironmentCorrupted = errors.New("localstate: sync environment corrupted: state file vanished")

// document is the on-disk shape of the local state file.
type document struct {
	States     map[string]*metadata.FileMetadata `json:"states"`
	StatusInfo map[string]*StatusInfo            `json:"status_info"`
}

// Store is the exclusively-owned-by-the-running-process record of what was
// last synced. In-memory access is serialized by a mutex; Save also holds
// a process-level file lock so a second client instance can't write the
// file at the same time.
type Store struct {
	path string
	lock *flock.Flock

	mu    sync.Mutex
	data  document
	saved bool
}

// Open loads path if it exists, or creates an empty store backed by it.
func Open(path string) (*Store, error) {
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("localstate: ensure parent: %w", err)
	}

	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		data: document{
			States:     make(map[string]*metadata.FileMetadata),
			StatusInfo: make(map[string]*StatusInfo),
		},
	}

	if utils.FileExists(path) {
		if err := s.load(); err != nil {
			return nil, err
		}
		s.saved = true
	}

	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("localstate: read %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("localstate: parse %s: %w", s.path, err)
	}
	if doc.States == nil {
		doc.States = make(map[string]*metadata.FileMetadata)
	}
	if doc.StatusInfo == nil {
		doc.StatusInfo = make(map[string]*StatusInfo)
	}

	s.mu.Lock()
	s.data = doc
	s.mu.Unlock()
	return nil
}

// Save persists the whole record atomically (temp file + rename), guarded
// by a process-level lock. It is fail-fast: if the file was removed
// externally since Open/the last Save, it refuses to silently recreate it
// and returns ErrSyncEnvironmentCorrupted instead.
func (s *Store) Save() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("localstate: acquire lock: %w", err)
	}
	defer s.lock.Unlock()

	if !utils.FileExists(s.path) && s.everSaved() {
		return ErrSyncEnvironmentCorrupted
	}

	s.mu.Lock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("localstate: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("localstate: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("localstate: rename: %w", err)
	}

	s.mu.Lock()
	s.saved = true
	s.mu.Unlock()
	return nil
}

func (s *Store) everSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// InsertSyncedFile atomically records path as successfully synced: the new
// metadata becomes the basis for the next pass's three-way diff, and the
// status is set to SYNCED/action.
func (s *Store) InsertSyncedFile(path string, meta *metadata.FileMetadata, action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.States[path] = meta
	s.data.StatusInfo[path] = &StatusInfo{
		Path:      path,
		Timestamp: now(),
		Status:    StatusSynced,
		Action:    action,
	}
}

// InsertStatusInfo updates only the status side, leaving any previously
// synced metadata for path untouched.
func (s *Store) InsertStatusInfo(path string, status Status, action Action, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.StatusInfo[path] = &StatusInfo{
		Path:      path,
		Timestamp: now(),
		Status:    status,
		Action:    action,
		Message:   message,
	}
}

// PreviousSynced returns the metadata recorded as of the last SYNCED action
// on path, or nil if none exists.
func (s *Store) PreviousSynced(path string) *metadata.FileMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.States[path]
}

// RemoveSynced drops any previously-synced metadata for path, used after a
// confirmed delete so the next pass doesn't see a stale "previously
// synced" entry for a file that no longer exists on either side.
func (s *Store) RemoveSynced(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.States, path)
}

// StatusOf returns the last recorded status info for path, or nil.
func (s *Store) StatusOf(path string) *StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.StatusInfo[path]
}

// AllStatuses returns a snapshot copy of every path's status info, for a
// status dashboard (§7, user-visible surface).
func (s *Store) AllStatuses() map[string]*StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*StatusInfo, len(s.data.StatusInfo))
	for k, v := range s.data.StatusInfo {
		cp := *v
		out[k] = &cp
	}
	return out
}

func now() time.Time { return time.Now().UTC() }
