// Package producer walks every known datasite once per tick, turns the
// resulting out-of-sync changes into queue items, and stages any
// newly-discovered remote datasite as an empty local directory so it
// participates in sync from the next pass onward.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/syftbox/internal/client/sync/datasitestate"
	"github.com/openmined/syftbox/internal/client/sync/localstate"
	"github.com/openmined/syftbox/internal/client/sync/syncclient"
	"github.com/openmined/syftbox/internal/client/sync/syncqueue"
	"github.com/openmined/syftbox/internal/core/ignorematch"
	"github.com/openmined/syftbox/internal/core/permtree"
)

// DatasiteLister is the subset of the sync client the producer needs to
// discover which datasites exist.
type DatasiteLister interface {
	datasitestate.RemoteLister
	GetDatasiteStates(ctx context.Context) ([]syncclient.DatasiteSummary, error)
}

// Producer enqueues outstanding work for every datasite once per tick.
type Producer struct {
	workspaceRoot string
	selfEmail     string
	client        DatasiteLister
	queue         *syncqueue.Queue
	state         *localstate.Store
}

// New builds a Producer. workspaceRoot is the local directory containing
// one subdirectory per datasite email.
func New(workspaceRoot, selfEmail string, client DatasiteLister, queue *syncqueue.Queue, state *localstate.Store) *Producer {
	return &Producer{
		workspaceRoot: workspaceRoot,
		selfEmail:     selfEmail,
		client:        client,
		queue:         queue,
		state:         state,
	}
}

// Run performs one producer pass: list datasites (always including
// selfEmail even if the server list omits it), stage any that don't exist
// locally yet, diff each against the server, and enqueue permission
// changes before file changes.
func (p *Producer) Run(ctx context.Context) error {
	summaries, err := p.client.GetDatasiteStates(ctx)
	if err != nil {
		return fmt.Errorf("producer: list datasites: %w", err)
	}
	emails := make([]string, len(summaries))
	for i, s := range summaries {
		emails[i] = s.Email
	}
	emails = ensureContains(emails, p.selfEmail)

	if err := p.stageNewDatasites(emails); err != nil {
		slog.Warn("producer: staging new datasites", "error", err)
	}

	var firstErr error
	for _, email := range emails {
		if err := p.runOne(ctx, email); err != nil {
			slog.Error("producer: datasite pass failed", "datasite", email, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue // one datasite's failure never stops the others
		}
	}
	return firstErr
}

func (p *Producer) runOne(ctx context.Context, email string) error {
	root := filepath.Join(p.workspaceRoot, email)

	ignore, err := ignorematch.Load(root)
	if err != nil {
		return fmt.Errorf("load ignore rules: %w", err)
	}

	result, err := datasitestate.Diff(ctx, p.client, root, email, ignore, nil)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	for _, change := range result.Permissions {
		p.enqueue(change, syncqueue.PriorityPermission)
	}
	for _, change := range result.Files {
		p.enqueue(change, syncqueue.PriorityFile)
	}

	for _, path := range result.Ignored {
		if existing := p.state.StatusOf(path); existing != nil && existing.Status == localstate.StatusIgnored {
			continue // already recorded, avoid status churn
		}
		p.state.InsertStatusInfo(path, localstate.StatusIgnored, localstate.ActionNoop, "matches ignore rule")
	}

	return nil
}

func (p *Producer) enqueue(change datasitestate.Change, priority int) {
	p.queue.Put(syncqueue.Item{Change: change, Priority: priority})
}

// stageNewDatasites creates an empty local directory for every remote
// datasite email not yet present locally, so the next diff pass treats it
// as a normal (empty) datasite rather than silently ignoring it. When the
// staged datasite is selfEmail's own, it also writes the owner-only
// permission file at the new directory's root.
func (p *Producer) stageNewDatasites(emails []string) error {
	if err := os.MkdirAll(p.workspaceRoot, 0o755); err != nil {
		return fmt.Errorf("ensure workspace root: %w", err)
	}

	var firstErr error
	for _, email := range emails {
		dir := filepath.Join(p.workspaceRoot, email)
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("producer: stage datasite", "datasite", email, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if email == p.selfEmail {
			data, err := json.Marshal(permtree.OwnerOnly(email))
			if err == nil {
				err = os.WriteFile(filepath.Join(dir, permtree.FileName), data, 0o644)
			}
			if err != nil {
				slog.Warn("producer: write default permission file", "datasite", email, "error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		slog.Info("producer: staged new datasite", "datasite", email, "staged_at", time.Now().UTC())
	}
	return firstErr
}

func ensureContains(emails []string, self string) []string {
	for _, e := range emails {
		if e == self {
			return emails
		}
	}
	return append(emails, self)
}
