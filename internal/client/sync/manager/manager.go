// Package manager runs the single-threaded periodic sync loop: each tick
// checks the sync environment is still intact, lets the producer enqueue
// outstanding changes, drains them through the consumer, then persists
// local state. Ticks never overlap.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openmined/syftbox/internal/client/sync/datasitestate"
	"github.com/openmined/syftbox/internal/client/sync/localstate"
	"github.com/openmined/syftbox/internal/client/sync/producer"
	"github.com/openmined/syftbox/internal/client/sync/syncqueue"
)

// ErrEnvironmentDead is returned by Start's goroutine (and surfaced via
// Err) once the sync-environment invariant check fails: the local state
// file is missing after the first completed tick, or the workspace
// directory or the state file cannot be stat'ed for another reason. The
// operator must recover manually; the loop does not restart itself.
var ErrEnvironmentDead = errors.New("manager: sync environment invariant violated, loop stopped")

// Consumer is the subset of consumer.Consumer the manager drives.
type Consumer interface {
	Process(ctx context.Context, change datasitestate.Change)
}

// Manager owns the periodic tick loop for one workspace.
type Manager struct {
	interval      time.Duration
	workspaceRoot string
	statePath     string

	state    *localstate.Store
	queue    *syncqueue.Queue
	producer *producer.Producer
	consumer Consumer

	lastTickNs atomic.Int64
	everTicked atomic.Bool

	mu      sync.Mutex
	deadErr error
}

// New builds a Manager. statePath is the path to the persisted local
// state file that Start's invariant check watches for.
func New(interval time.Duration, workspaceRoot, statePath string, state *localstate.Store, queue *syncqueue.Queue, prod *producer.Producer, cons Consumer) *Manager {
	return &Manager{
		interval:      interval,
		workspaceRoot: workspaceRoot,
		statePath:     statePath,
		state:         state,
		queue:         queue,
		producer:      prod,
		consumer:      cons,
	}
}

// Start runs the tick loop until ctx is canceled or the sync-environment
// invariant is violated. It blocks the calling goroutine; callers
// typically run it via `go manager.Start(ctx)`.
func (m *Manager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.tick(ctx); err != nil {
				m.mu.Lock()
				m.deadErr = err
				m.mu.Unlock()
				slog.Error("manager: sync environment invariant violated, stopping", "error", err)
				return err
			}
		}
	}
}

// Err returns the error that stopped the loop, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadErr
}

// LastTick returns the time the most recently completed tick finished.
func (m *Manager) LastTick() time.Time {
	ns := m.lastTickNs.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// tick performs one full producer/consumer pass. It never overlaps with
// another tick because Start calls it synchronously from its single loop.
func (m *Manager) tick(ctx context.Context) error {
	if err := m.checkEnvironment(); err != nil {
		return err
	}

	if err := m.producer.Run(ctx); err != nil {
		slog.Error("manager: producer pass had errors", "error", err)
	}

	for {
		item, ok := m.queue.TryGet()
		if !ok {
			break
		}
		m.consumer.Process(ctx, item.Change)
	}

	if err := m.state.Save(); err != nil {
		return fmt.Errorf("persist local state: %w", err)
	}

	m.lastTickNs.Store(time.Now().UnixNano())
	m.everTicked.Store(true)
	return nil
}

// checkEnvironment enforces spec §4.10. A missing workspace directory is
// not by itself a violation (the next producer pass will recreate it via
// staging). A missing state file after the first completed tick is,
// whether or not the directory survived: something outside this process
// removed sync state, and the loop must stop rather than risk
// mass-deleting the remote.
func (m *Manager) checkEnvironment() error {
	if _, err := os.Stat(m.workspaceRoot); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat workspace: %v", ErrEnvironmentDead, err)
	}

	if _, err := os.Stat(m.statePath); err != nil {
		if os.IsNotExist(err) {
			if m.everTicked.Load() {
				return fmt.Errorf("%w: local state file missing", ErrEnvironmentDead)
			}
			return nil // not yet written by the first Save; not a violation
		}
		return fmt.Errorf("%w: stat local state: %v", ErrEnvironmentDead, err)
	}

	return nil
}
