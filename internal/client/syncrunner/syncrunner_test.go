package syncrunner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openmined/syftbox/internal/client/config"
)

func TestNew_BuildsRunnerForValidConfig(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		DataDir:   root,
		Email:     "a@example.org",
		ServerURL: "https://cache.example.org",
	}

	r, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.NotNil(t, r.manager)
}

func TestNew_ToleratesMissingDataDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-yet-created")
	cfg := &config.Config{
		DataDir:   root,
		Email:     "a@example.org",
		ServerURL: "https://cache.example.org",
	}

	r, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestNew_RejectsMissingEmail(t *testing.T) {
	cfg := &config.Config{
		DataDir:   t.TempDir(),
		ServerURL: "https://cache.example.org",
	}

	_, err := New(cfg)
	require.Error(t, err)
}

func TestStartAndErr_StopsOnContextCancel(t *testing.T) {
	cfg := &config.Config{
		DataDir:   t.TempDir(),
		Email:     "a@example.org",
		ServerURL: "https://cache.example.org",
	}

	r, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Err())
}
