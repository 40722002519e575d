package generation

import (
	"fmt"

	"askdocs/config"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// New creates the generator selected by cfg.
func New(cfg config.GenerationConfig) (port.Generator, error) {
	opts := OpenAIOptions{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}

	var defaultURL string
	var keyFallbacks []string
	switch cfg.Provider {
	case "extractive":
		return NewExtractiveGenerator(), nil
	case "ollama":
		if opts.BaseURL == "" {
			opts.BaseURL = OllamaBaseURL
		}
		opts.APIKey = "ollama"
		return NewOpenAIGenerator(opts), nil
	case "groq", "":
		defaultURL = GroqBaseURL
	case "openai":
		defaultURL = OpenAIBaseURL
	case "deepseek":
		defaultURL = DeepSeekBaseURL
	case "gemini":
		defaultURL = GeminiBaseURL
		keyFallbacks = []string{"GOOGLE_API_KEY"}
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported generation provider: %s", cfg.Provider), nil)
	}

	key, err := apiKeyFromEnv(cfg.APIKeyEnv, keyFallbacks...)
	if err != nil {
		return nil, err
	}
	opts.APIKey = key
	if opts.BaseURL == "" {
		opts.BaseURL = defaultURL
	}
	return NewOpenAIGenerator(opts), nil
}
