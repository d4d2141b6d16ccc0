package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/syftbox/internal/client/config"
	"github.com/openmined/syftbox/internal/client/syncrunner"
)

// Client owns the rsync-delta sync runner for one workspace.
type Client struct {
	runner *syncrunner.Runner
}

func New(config *config.Config) (*Client, error) {
	runner, err := syncrunner.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync runner: %w", err)
	}

	return &Client{
		runner: runner,
	}, nil
}

func (c *Client) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.runner.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("sync runner stopped", "error", err)
		}
		return err
	case <-ctx.Done():
		slog.Info("received interrupt signal, stopping client")
		<-errCh
		return nil
	}
}
