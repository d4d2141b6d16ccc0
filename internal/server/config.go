package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/syftbox/internal/server/auth"
	"github.com/openmined/syftbox/internal/server/blob"
	"github.com/openmined/syftbox/internal/server/email"
)

const DefaultAddr = "127.0.0.1:8080"

// Config is the cache server's full configuration, unmarshaled from
// viper (config file, env vars, CLI flags all bound into the same tree).
type Config struct {
	DataDir string `mapstructure:"data_dir"`
	LogDir  string `mapstructure:"log_dir"`

	HTTP  *HttpServerConfig `mapstructure:"http"`
	Blob  *blob.S3Config    `mapstructure:"blob"`
	Auth  *auth.Config      `mapstructure:"auth"`
	Email *email.Config     `mapstructure:"email"`

	// Sync carries the rsync-delta datasite sync server's own config,
	// distinct from the legacy blob-storage explorer above: its own
	// sqlite metadata store and snapshot directory under DataDir.
	Sync *SyncConfig `mapstructure:"sync"`
}

// SyncConfig configures the /sync/* endpoint surface.
type SyncConfig struct {
	// DBPath is the sqlite metadata database path. Defaults to
	// DataDir/sync/meta.db when empty.
	DBPath string `mapstructure:"db_path"`
	// SnapshotDir is where synced file bytes are mirrored on disk.
	// Defaults to DataDir/sync/snapshots when empty.
	SnapshotDir string `mapstructure:"snapshot_dir"`
}

type HttpServerConfig struct {
	Addr         string `mapstructure:"addr"`
	Domain       string `mapstructure:"domain"`
	CertFilePath string `mapstructure:"cert_file"`
	KeyFilePath  string `mapstructure:"key_file"`

	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

// HTTPSEnabled reports whether both halves of a TLS keypair were configured.
func (c *HttpServerConfig) HTTPSEnabled() bool {
	return c.CertFilePath != "" && c.KeyFilePath != ""
}

// Validate checks the configuration is internally consistent before the
// server starts.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.HTTP == nil || c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if (c.HTTP.CertFilePath == "") != (c.HTTP.KeyFilePath == "") {
		return fmt.Errorf("http.cert_file and http.key_file must both be set or both be empty")
	}
	if c.Email != nil {
		if err := c.Email.Validate(); err != nil {
			return fmt.Errorf("email config: %w", err)
		}
	}
	return nil
}

// LogValue renders the config for structured logging, masking secrets.
func (c *Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("data_dir", c.DataDir),
		slog.String("log_dir", c.LogDir),
	}
	if c.HTTP != nil {
		attrs = append(attrs, slog.Group("http",
			"addr", c.HTTP.Addr,
			"domain", c.HTTP.Domain,
			"https_enabled", c.HTTP.HTTPSEnabled(),
		))
	}
	if c.Auth != nil {
		attrs = append(attrs, slog.Bool("auth_enabled", c.Auth.Enabled))
	}
	if c.Email != nil {
		attrs = append(attrs, slog.Any("email", c.Email.LogValue()))
	}
	return slog.GroupValue(attrs...)
}
