package embedding

import (
	"fmt"

	"askdocs/config"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// New creates the embedder selected by cfg.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := OpenAIOptions{
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
	}

	var defaultURL string
	var keyFallbacks []string
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "ollama":
		if opts.BaseURL == "" {
			opts.BaseURL = OllamaBaseURL
		}
		opts.APIKey = "ollama"
		return NewOpenAIEmbedder(opts), nil
	case "openai", "":
		defaultURL = OpenAIBaseURL
	case "gemini":
		defaultURL = GeminiBaseURL
		keyFallbacks = []string{"GOOGLE_API_KEY"}
	case "jina":
		defaultURL = JinaBaseURL
	case "deepseek":
		defaultURL = DeepSeekBaseURL
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported embedding provider: %s", cfg.Provider), nil)
	}

	key, err := apiKeyFromEnv(cfg.APIKeyEnv, keyFallbacks...)
	if err != nil {
		return nil, err
	}
	opts.APIKey = key
	if opts.BaseURL == "" {
		opts.BaseURL = defaultURL
	}
	return NewOpenAIEmbedder(opts), nil
}
