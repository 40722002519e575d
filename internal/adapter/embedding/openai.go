package embedding

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"askdocs/internal/errors"
)

const defaultBatchSize = 100

// Base URLs of OpenAI-compatible embedding endpoints.
const (
	OpenAIBaseURL   = "https://api.openai.com/v1/"
	GeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
	OllamaBaseURL   = "http://localhost:11434/v1/"
	JinaBaseURL     = "https://api.jina.ai/v1/"
	DeepSeekBaseURL = "https://api.deepseek.com/v1/"
)

type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
}

// OpenAIOptions configures an OpenAI-compatible embedder.
type OpenAIOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
}

func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	if opts.Dimension == 0 {
		opts.Dimension = knownDimension(opts.Model)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(0),
	)
	return &OpenAIEmbedder{
		client:    client,
		model:     opts.Model,
		dimension: opts.Dimension,
		batchSize: opts.BatchSize,
	}
}

// apiKeyFromEnv reads the key named by env, then the fallback variables in order.
func apiKeyFromEnv(env string, fallbacks ...string) (string, error) {
	for _, name := range append([]string{env}, fallbacks...) {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", errors.New(errors.ErrCodeAPIKeyMissing,
		fmt.Sprintf("API key not found in environment variable: %s", env), nil)
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large", "gemini-embedding-001":
		return 3072
	case "text-embedding-004":
		return 768
	case "jina-embeddings-v3":
		return 1024
	case "jina-embeddings-v4":
		return 2048
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	}
	return 0
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errors.ProviderError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedding request failed%s", statusSuffix(err)), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.ProviderError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), nil)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, errors.ProviderError(errors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		if e.dimension == 0 {
			e.dimension = len(vec)
		}
		if len(vec) != e.dimension {
			return nil, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("model %s returned %d dimensions, expected %d", e.model, len(vec), e.dimension), nil)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func statusSuffix(err error) string {
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return fmt.Sprintf(" (status %d)", apiErr.StatusCode)
	}
	return ""
}
