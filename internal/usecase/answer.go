package usecase

import (
	"context"
	"log/slog"
	"strings"

	"askdocs/internal/domain"
	"askdocs/internal/port"
)

// Fixed replies returned without calling the generator.
const (
	EmptyQuestionReply = "Please ask a question."
	NoContextReply     = "I couldn't find any relevant information in the knowledge base to answer that."
	EmptyAnswerReply   = "I couldn't generate an answer."
)

// AnswerUseCase answers questions from retrieved knowledge base chunks.
type AnswerUseCase struct {
	retriever port.Retriever
	generator port.Generator
	prompts   *PromptBuilder
	topK      int
	threshold float64 // Drop results below this similarity
	logger    *slog.Logger
}

// NewAnswerUseCase creates a new answer use case.
func NewAnswerUseCase(
	retriever port.Retriever,
	generator port.Generator,
	prompts *PromptBuilder,
	topK int,
	threshold float64,
	logger *slog.Logger,
) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// Retrieve returns the top-k chunks for question that pass the similarity
// threshold, most similar first.
func (u *AnswerUseCase) Retrieve(ctx context.Context, question string) ([]domain.QueryResultItem, error) {
	results, err := u.retriever.Search(ctx, question, u.topK)
	if err != nil {
		return nil, err
	}
	return u.filterByThreshold(results), nil
}

// filterByThreshold removes results below the similarity threshold.
func (u *AnswerUseCase) filterByThreshold(results []domain.QueryResultItem) []domain.QueryResultItem {
	filtered := make([]domain.QueryResultItem, 0, len(results))
	for _, r := range results {
		if r.Similarity >= u.threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Answer retrieves context for question and generates a grounded answer.
// When nothing passes the threshold the fixed NoContextReply is returned and
// the generator is not called.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	answer := &domain.Answer{Question: question, Sources: []domain.QueryResultItem{}}
	if question == "" {
		answer.Text = EmptyQuestionReply
		return answer, nil
	}

	items, err := u.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		u.logger.Debug("no chunk passed the threshold", "threshold", u.threshold)
		answer.Text = NoContextReply
		return answer, nil
	}

	prompt, err := u.prompts.Build(question, items)
	if err != nil {
		return nil, err
	}
	text, err := u.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = EmptyAnswerReply
	}
	answer.Text = text
	answer.Sources = items
	answer.Generated = true

	u.logger.Debug("answered", "sources", len(items), "model", u.generator.ModelName())
	return answer, nil
}

// Prompt returns the prompt Answer would send for question, with the chunks
// it was built from. ok is false when no chunk passes the threshold.
func (u *AnswerUseCase) Prompt(ctx context.Context, question string) (prompt domain.Prompt, items []domain.QueryResultItem, ok bool, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Prompt{}, nil, false, nil
	}
	items, err = u.Retrieve(ctx, question)
	if err != nil || len(items) == 0 {
		return domain.Prompt{}, nil, false, err
	}
	prompt, err = u.prompts.Build(question, items)
	if err != nil {
		return domain.Prompt{}, nil, false, err
	}
	return prompt, items, true, nil
}
