package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/adapter/embedding"
	"askdocs/internal/adapter/generation"
	"askdocs/internal/adapter/retriever"
	"askdocs/internal/adapter/store"
	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/logging"
)

type stubRetriever struct {
	items []domain.QueryResultItem
	err   error
	calls int
	lastK int
}

func (r *stubRetriever) Search(_ context.Context, _ string, k int) ([]domain.QueryResultItem, error) {
	r.calls++
	r.lastK = k
	return r.items, r.err
}

type stubGenerator struct {
	reply  string
	err    error
	calls  int
	prompt domain.Prompt
}

func (g *stubGenerator) Generate(_ context.Context, p domain.Prompt) (string, error) {
	g.calls++
	g.prompt = p
	return g.reply, g.err
}

func (g *stubGenerator) ModelName() string { return "stub" }

func newAnswerUseCase(t *testing.T, r *stubRetriever, g *stubGenerator, threshold float64) *AnswerUseCase {
	t.Helper()
	prompts, err := NewPromptBuilder("")
	require.NoError(t, err)
	return NewAnswerUseCase(r, g, prompts, 5, threshold, logging.Discard())
}

func TestAnswerBlankQuestion(t *testing.T) {
	r := &stubRetriever{}
	g := &stubGenerator{}
	u := newAnswerUseCase(t, r, g, 0.4)

	answer, err := u.Answer(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, EmptyQuestionReply, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, r.calls)
	assert.Zero(t, g.calls)
}

func TestAnswerFallbackWhenNothingPassesThreshold(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{
		{Source: "a", Text: "unrelated", Similarity: 0.39},
		{Source: "b", Text: "also unrelated", Similarity: 0.1},
	}}
	g := &stubGenerator{reply: "should not be used"}
	u := newAnswerUseCase(t, r, g, 0.4)

	answer, err := u.Answer(context.Background(), "What are the opening hours?")
	require.NoError(t, err)
	assert.Equal(t, NoContextReply, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.False(t, answer.Generated)
	assert.Zero(t, g.calls)
	assert.Equal(t, 5, r.lastK)
}

func TestAnswerFallbackOnEmptyStore(t *testing.T) {
	g := &stubGenerator{}
	u := newAnswerUseCase(t, &stubRetriever{}, g, 0)

	answer, err := u.Answer(context.Background(), "anything?")
	require.NoError(t, err)
	assert.Equal(t, NoContextReply, answer.Text)
	assert.Zero(t, g.calls)
}

func TestAnswerFiltersPerItemAndKeepsOrder(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{
		{Source: "faq", Text: "We open at nine.", Similarity: 0.9},
		{Source: "blog", Text: "Unrelated post.", Similarity: 0.2},
		{Source: "hours", Text: "We close at five.", Similarity: 0.4},
	}}
	g := &stubGenerator{reply: "  Nine to five.\n"}
	u := newAnswerUseCase(t, r, g, 0.4)

	answer, err := u.Answer(context.Background(), " When are you open? ")
	require.NoError(t, err)

	assert.Equal(t, "Nine to five.", answer.Text)
	assert.True(t, answer.Generated)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "faq", answer.Sources[0].Source)
	assert.Equal(t, "hours", answer.Sources[1].Source)

	require.Equal(t, 1, g.calls)
	assert.Equal(t, "When are you open?", g.prompt.Question)
	assert.Equal(t, []string{"We open at nine.", "We close at five."}, g.prompt.Context)
	assert.Contains(t, g.prompt.Text, "Context:\nWe open at nine.\n\nWe close at five.\n\nQuestion:\nWhen are you open?")
	assert.NotContains(t, g.prompt.Text, "Unrelated post.")
}

func TestAnswerEmptyGeneration(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{{Source: "faq", Text: "x", Similarity: 1}}}
	u := newAnswerUseCase(t, r, &stubGenerator{reply: " \n "}, 0.4)

	answer, err := u.Answer(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, EmptyAnswerReply, answer.Text)
	assert.Len(t, answer.Sources, 1)
}

func TestAnswerCarriesSystemMessage(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{{Source: "faq", Text: "We open at nine.", Similarity: 1}}}
	g := &stubGenerator{reply: "Nine."}
	prompts, err := NewPromptBuilder("  Answer in one sentence.\n")
	require.NoError(t, err)
	u := NewAnswerUseCase(r, g, prompts, 5, 0.4, logging.Discard())

	_, err = u.Answer(context.Background(), "When do you open?")
	require.NoError(t, err)
	assert.Equal(t, "Answer in one sentence.", g.prompt.System)
}

func TestAnswerGenerationErrorSurfaces(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{{Source: "faq", Text: "x", Similarity: 1}}}
	g := &stubGenerator{err: errors.ProviderError(errors.ErrCodeGenerationFailed, "rate limited", nil)}
	u := newAnswerUseCase(t, r, g, 0.4)

	answer, err := u.Answer(context.Background(), "q")
	require.Error(t, err)
	assert.Nil(t, answer)
	assert.Equal(t, errors.ErrCodeGenerationFailed, errors.GetCode(err))
}

func TestAnswerRetrievalErrorSurfaces(t *testing.T) {
	r := &stubRetriever{err: errors.ProviderError(errors.ErrCodeEmbeddingFailed, "bad key", nil)}
	g := &stubGenerator{}
	u := newAnswerUseCase(t, r, g, 0.4)

	_, err := u.Answer(context.Background(), "q")
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.GetCode(err))
	assert.Zero(t, g.calls)
}

func TestPromptDryRun(t *testing.T) {
	r := &stubRetriever{items: []domain.QueryResultItem{{Source: "faq", Text: "We open at nine.", Similarity: 0.8}}}
	g := &stubGenerator{}
	u := newAnswerUseCase(t, r, g, 0.4)

	prompt, items, ok, err := u.Prompt(context.Background(), "When do you open?")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, items, 1)
	assert.Contains(t, prompt.Text, "Answer the question using ONLY the context below.")
	assert.Contains(t, prompt.Text, "We open at nine.")
	assert.Zero(t, g.calls)

	r.items[0].Similarity = 0.1
	_, _, ok, err = u.Prompt(context.Background(), "When do you open?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnswerEndToEnd(t *testing.T) {
	f := newFixture(t, embedding.NewHashEmbedder(1024))
	ctx := context.Background()

	_, err := f.ingest.IngestText(ctx, "The sky is blue. Grass is green.", domain.Source{ID: "colors", Kind: domain.KindText})
	require.NoError(t, err)

	prompts, err := NewPromptBuilder("")
	require.NoError(t, err)
	r := retriever.NewSemanticRetriever(f.store, embedding.NewHashEmbedder(1024), store.Cosine)
	u := NewAnswerUseCase(r, generation.NewExtractiveGenerator(), prompts, 5, 0.1, logging.Discard())

	answer, err := u.Answer(ctx, "What color is the sky?")
	require.NoError(t, err)
	assert.True(t, answer.Generated)
	assert.Equal(t, "The sky is blue.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "colors", answer.Sources[0].Source)
	assert.Greater(t, answer.Sources[0].Similarity, 0.1)
}
