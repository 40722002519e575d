package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"askdocs/config"
	"askdocs/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

const (
	keySchemaVersion = "schema_version"
	keyConfigHash    = "config_hash"
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// GetSchemaInfo reads the schema info recorded in meta. A fresh store has version 0.
func GetSchemaInfo(meta port.MetaStore) (*SchemaInfo, error) {
	var info SchemaInfo

	v, err := meta.GetMeta(keySchemaVersion)
	if err != nil {
		return nil, err
	}
	if v != "" {
		if info.Version, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid schema version %q: %w", v, err)
		}
	}

	if info.ConfigHash, err = meta.GetMeta(keyConfigHash); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetSchemaInfo records the schema info in meta.
func SetSchemaInfo(meta port.MetaStore, info *SchemaInfo) error {
	if err := meta.PutMeta(keySchemaVersion, strconv.Itoa(info.Version)); err != nil {
		return err
	}
	return meta.PutMeta(keyConfigHash, info.ConfigHash)
}

// ComputeConfigHash hashes the settings that stored vectors depend on.
// A different hash means existing chunks must be re-embedded.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		ChunkUnit    string `json:"chunk_unit"`
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
		EmbDimension int    `json:"emb_dimension"`
		Metric       string `json:"metric"`
	}{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		ChunkUnit:    cfg.Ingest.ChunkUnit,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
		Metric:       cfg.Store.Metric,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration reports whether the store must be migrated or rebuilt for cfg.
func CheckMigration(meta port.MetaStore, cfg *config.Config) (*MigrationResult, error) {
	info, err := GetSchemaInfo(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("store created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		result.NeedsRebuild = true
		result.Reason = "embedding or chunking configuration changed"
	}
	return result, nil
}

// Migrate brings the schema info up to date and records cfg's hash.
func Migrate(meta port.MetaStore, cfg *config.Config) error {
	return SetSchemaInfo(meta, &SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}
