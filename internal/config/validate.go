package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command group needs. Mode is "transform"
// for file-only commands and "warehouse" for commands that open the store.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "transform":
		if c.Data.StagingFile == "" {
			errs = append(errs, "data.staging_file is required")
		}
		if c.Data.SnapshotFile == "" {
			errs = append(errs, "data.snapshot_file is required")
		}
	case "warehouse":
		if _, err := c.Store.DSN(); err != nil {
			errs = append(errs, strings.TrimPrefix(err.Error(), "config: "))
		}
		if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
			errs = append(errs, "store.min_conns must not exceed store.max_conns")
		}
		if c.Load.MaxAttempts < 1 {
			errs = append(errs, "load.max_attempts must be >= 1")
		}
		if c.Load.InitialBackoffMs < 0 || c.Load.MaxBackoffMs < 0 {
			errs = append(errs, "load backoff values must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
