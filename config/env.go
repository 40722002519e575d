package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads dir/.env into the process environment. Variables that are
// already set win over the file. A missing file is not an error.
func LoadDotEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
}

// firstEnv returns the value of the first variable in names that is set.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ApplyEnv overrides configuration values from environment variables.
func (c *Config) ApplyEnv() error {
	if v := firstEnv("ASKDOCS_STORE_DIR", "CHROMA_PATH"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("KNOWLEDGE_PATH"); v != "" {
		c.Library.KnowledgePath = v
	}
	if v := os.Getenv("URL_CONTENT_PATH"); v != "" {
		c.Library.URLContentPath = v
	}
	if v := os.Getenv("QNA_PATH"); v != "" {
		c.Library.QnAPath = v
	}
	if v := os.Getenv("DOCUMENTS_DIR"); v != "" {
		c.Library.DocumentsDir = v
	}
	if v := os.Getenv("ASKDOCS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"CHUNK_SIZE", &c.Ingest.ChunkSize},
		{"CHUNK_OVERLAP", &c.Ingest.ChunkOverlap},
		{"TOP_K", &c.Retrieve.TopK},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.name, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid SIMILARITY_THRESHOLD: %w", err)
		}
		c.Retrieve.SimilarityThreshold = f
	}
	return nil
}
