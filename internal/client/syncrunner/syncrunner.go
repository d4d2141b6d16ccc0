// Package syncrunner assembles the rsync-delta sync pipeline — local state,
// sync client, permission tree, queue, producer, consumer, manager — from a
// client config and runs it until its context is canceled.
package syncrunner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/openmined/syftbox/internal/client/config"
	"github.com/openmined/syftbox/internal/client/sync/consumer"
	"github.com/openmined/syftbox/internal/client/sync/localstate"
	"github.com/openmined/syftbox/internal/client/sync/manager"
	"github.com/openmined/syftbox/internal/client/sync/producer"
	"github.com/openmined/syftbox/internal/client/sync/syncclient"
	"github.com/openmined/syftbox/internal/client/sync/syncqueue"
	"github.com/openmined/syftbox/internal/core/permtree"
)

const (
	defaultSyncInterval  = 5 * time.Second
	defaultMaxFileSizeMB = 256
	localStateFileName   = "plugins/local_syncstate.json"
)

// Runner owns the assembled Manager for one workspace.
type Runner struct {
	manager *manager.Manager
}

// New builds the full sync pipeline for cfg's workspace.
func New(cfg *config.Config) (*Runner, error) {
	client, err := syncclient.New(syncclient.Config{
		BaseURL:     cfg.ServerURL,
		Email:       cfg.Email,
		AccessToken: cfg.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("syncrunner: build sync client: %w", err)
	}

	statePath := filepath.Join(cfg.DataDir, localStateFileName)
	state, err := localstate.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("syncrunner: open local state: %w", err)
	}

	perms, err := permtree.Load(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("syncrunner: load permission tree: %w", err)
	}

	queue := syncqueue.New()
	prod := producer.New(cfg.DataDir, cfg.Email, client, queue, state)
	cons := consumer.New(client, cfg.DataDir, state, perms, cfg.Email, defaultMaxFileSizeMB)

	mgr := manager.New(defaultSyncInterval, cfg.DataDir, statePath, state, queue, prod, cons)
	return &Runner{manager: mgr}, nil
}

// Start runs the periodic sync loop until ctx is canceled or the sync
// environment invariant is violated.
func (r *Runner) Start(ctx context.Context) error {
	return r.manager.Start(ctx)
}

// Err returns the error that stopped the loop, if any.
func (r *Runner) Err() error {
	return r.manager.Err()
}
