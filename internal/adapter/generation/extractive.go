package generation

import (
	"context"

	"askdocs/internal/adapter/analyzer"
	"askdocs/internal/domain"
)

// ExtractiveGenerator answers offline by returning the context sentence that
// shares the most terms with the question. Ties go to the earlier sentence.
type ExtractiveGenerator struct {
	tokenizer *analyzer.Tokenizer
}

func NewExtractiveGenerator() *ExtractiveGenerator {
	return &ExtractiveGenerator{tokenizer: analyzer.NewTokenizer(true)}
}

func (g *ExtractiveGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	best, bestScore := "", 0
	for _, passage := range prompt.Context {
		for _, sentence := range analyzer.SplitSentences(passage) {
			score := g.tokenizer.Overlap(prompt.Question, sentence)
			if score > bestScore {
				best, bestScore = sentence, score
			}
		}
	}
	return best, nil
}

func (g *ExtractiveGenerator) ModelName() string {
	return "extractive"
}
