package store

import (
	"fmt"
	"os"
	"path/filepath"

	"askdocs/config"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

var (
	_ port.VectorStore = (*BoltStore)(nil)
	_ port.VectorStore = (*SQLiteStore)(nil)
	_ port.VectorStore = (*MemoryStore)(nil)
)

// Open opens the backend selected by cfg inside cfg.Dir, creating it if needed.
func Open(cfg config.StoreConfig) (port.VectorStore, error) {
	opts := Options{Metric: cfg.Metric, Index: cfg.Index}
	if cfg.Backend == "memory" {
		return NewMemoryStore(opts)
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, errors.StoreError("failed to create store directory", err)
	}

	switch cfg.Backend {
	case "bolt", "":
		return NewBoltStore(filepath.Join(cfg.Dir, "vectors.db"), opts)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(cfg.Dir, "vectors.sqlite"), opts)
	}
	return nil, errors.ConfigError(fmt.Sprintf("unsupported store backend: %s", cfg.Backend), nil)
}
