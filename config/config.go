package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for askdocs.
type Config struct {
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Library    LibraryConfig    `yaml:"library"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IngestConfig holds chunking and directory ingestion configuration.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	ChunkUnit    string   `yaml:"chunk_unit"` // "words", "chars" or "tokens"
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	FetchTimeout int      `yaml:"fetch_timeout_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // Drop results below this similarity
	CacheSize           int     `yaml:"cache_size"`
	SnippetChars        int     `yaml:"snippet_chars"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "gemini", "openai", "ollama", "jina", "deepseek", "hash"
	Model     string `yaml:"model"`       // e.g., "gemini-embedding-001"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
	CacheSize int    `yaml:"cache_size"`
}

// GenerationConfig holds generation provider configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "groq", "openai", "ollama", "deepseek", "gemini", "extractive"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	System      string  `yaml:"system"` // optional system message
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "bolt", "sqlite" or "memory"
	Dir     string `yaml:"dir"`
	Metric  string `yaml:"metric"` // "cosine" or "l2"
	Index   string `yaml:"index"`  // "flat" or "hnsw"
}

// LibraryConfig holds the paths of the on-disk knowledge library.
type LibraryConfig struct {
	KnowledgePath  string `yaml:"knowledge_path"`
	URLContentPath string `yaml:"url_content_path"`
	QnAPath        string `yaml:"qna_path"`
	DocumentsDir   string `yaml:"documents_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
			ChunkUnit:    "words",
			Includes:     []string{"**/*.txt", "**/*.md", "**/*.pdf", "**/*.docx", "**/*.html", "**/*.htm"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**", "**/.askdocs/**"},
			FetchTimeout: 15,
		},
		Retrieve: RetrieveConfig{
			TopK:                5,
			SimilarityThreshold: 0.4,
			CacheSize:           100,
			SnippetChars:        200,
		},
		Embedding: EmbeddingConfig{
			Provider:  "gemini",
			Model:     "gemini-embedding-001",
			APIKeyEnv: "GEMINI_API_KEY",
			Dimension: 3072,
			BatchSize: 100,
			CacheSize: 1000,
		},
		Generation: GenerationConfig{
			Provider:    "groq",
			Model:       "llama-3.3-70b-versatile",
			APIKeyEnv:   "GROQ_API_KEY",
			Temperature: 0.2,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Dir:     filepath.Join(".askdocs", "store"),
			Metric:  "cosine",
			Index:   "flat",
		},
		Library: LibraryConfig{
			KnowledgePath:  "knowledge.txt",
			URLContentPath: "url_content.txt",
			QnAPath:        "qna.txt",
			DocumentsDir:   "documents",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for askdocs.yaml).
// Relative library and store paths are resolved against dir.
func LoadFromDir(dir string) (*Config, error) {
	LoadDotEnv(dir)

	path := filepath.Join(dir, "askdocs.yaml")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, ".askdocs", "config.yaml")
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(dir)
	return cfg, nil
}

// ResolvePaths makes relative store and library paths absolute under dir.
func (c *Config) ResolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.Store.Dir)
	resolve(&c.Library.KnowledgePath)
	resolve(&c.Library.URLContentPath)
	resolve(&c.Library.QnAPath)
	resolve(&c.Library.DocumentsDir)
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d), got %d", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.Retrieve.SimilarityThreshold < 0 || c.Retrieve.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieve.similarity_threshold must be in [0, 1], got %g", c.Retrieve.SimilarityThreshold)
	}
	switch c.Store.Backend {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	switch c.Store.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("unsupported distance metric: %s", c.Store.Metric)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureStoreDir ensures the vector store directory exists.
func (c *Config) EnsureStoreDir() error {
	return os.MkdirAll(c.Store.Dir, 0755)
}
