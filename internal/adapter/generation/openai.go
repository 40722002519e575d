package generation

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"askdocs/internal/domain"
	"askdocs/internal/errors"
)

// Base URLs of OpenAI-compatible chat completion endpoints.
const (
	GroqBaseURL     = "https://api.groq.com/openai/v1/"
	OpenAIBaseURL   = "https://api.openai.com/v1/"
	OllamaBaseURL   = "http://localhost:11434/v1/"
	DeepSeekBaseURL = "https://api.deepseek.com/v1/"
	GeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// OpenAIGenerator calls a chat completion endpoint with a single user turn.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
}

// OpenAIOptions configures an OpenAI-compatible generator.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	if opts.BaseURL == "" {
		opts.BaseURL = OpenAIBaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClient(
			option.WithAPIKey(opts.APIKey),
			option.WithBaseURL(opts.BaseURL),
			option.WithMaxRetries(0),
		),
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.Text))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		msg := "generation request failed"
		var apiErr *openai.Error
		if stderrors.As(err, &apiErr) {
			msg = fmt.Sprintf("%s (status %d)", msg, apiErr.StatusCode)
		}
		return "", errors.ProviderError(errors.ErrCodeGenerationFailed, msg, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

func apiKeyFromEnv(env string, fallbacks ...string) (string, error) {
	for _, name := range append([]string{env}, fallbacks...) {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", errors.New(errors.ErrCodeAPIKeyMissing,
		fmt.Sprintf("API key not found in environment variable: %s", env), nil)
}
