package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/adapter/library"
	"askdocs/internal/domain"
	"askdocs/internal/errors"
)

func TestUpdateAndRemoveURL(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	url := "https://example.com/pricing"

	n, err := f.sources.UpdateURL(ctx, url, "Plans start at ten euros a month.")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.sources.UpdateURL(ctx, url, words(50))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]int{url: 3}, f.sourceChunks(t))

	content, err := f.sources.URLContent(url)
	require.NoError(t, err)
	assert.Equal(t, words(50)[:len(words(50))-1], content)

	removed, err := f.sources.RemoveURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Zero(t, f.count(t))

	_, err = f.sources.URLContent(url)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestUpdateURLWithBlankContentKeepsEntry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	_, err := f.sources.UpdateURL(ctx, url, "Some content here.")
	require.NoError(t, err)
	n, err := f.sources.UpdateURL(ctx, url, "   ")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.count(t))

	entries, err := f.library.URLs()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, url, entries[0].URL)
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id, n, err := f.sources.SaveDocument(ctx, "", "Shipping Policy", "Orders ship within two days.")
	require.NoError(t, err)
	assert.Equal(t, "Shipping_Policy", id)
	assert.Equal(t, 1, n)

	summaries, err := f.store.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, domain.SourceSummary{ID: id, Kind: "doc", Chunks: 1}, summaries[0])

	_, n, err = f.sources.SaveDocument(ctx, id, "Shipping Policy", words(50))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]int{id: 3}, f.sourceChunks(t))

	docs, err := f.sources.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)

	removed, err := f.sources.DeleteDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Zero(t, f.count(t))

	content, err := f.sources.DocumentContent(id)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestSaveDocumentRequiresName(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.sources.SaveDocument(context.Background(), "", " ", "text")
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestQnALifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sources.AddQnA(ctx, "Do you ship abroad?", "")
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	for _, pair := range [][2]string{
		{"Do you ship abroad?", "Yes, to the EU."},
		{"Can I return items?", "Within thirty days."},
		{"Is there a warranty?", "Two years."},
	} {
		n, err := f.sources.AddQnA(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, map[string]int{domain.QnASourceID: 3}, f.sourceChunks(t))

	n, err := f.sources.DeleteQnA(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pairs, err := f.sources.QnA()
	require.NoError(t, err)
	assert.Equal(t, []library.QnA{
		{Question: "Do you ship abroad?", Answer: "Yes, to the EU."},
		{Question: "Is there a warranty?", Answer: "Two years."},
	}, pairs)
	assert.Equal(t, map[string]int{domain.QnASourceID: 1}, f.sourceChunks(t))

	_, err = f.sources.DeleteQnA(ctx, 5)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	require.NoError(t, f.sources.ClearQnA(ctx))
	assert.Zero(t, f.count(t))
	pairs, err = f.sources.QnA()
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestReingestAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.library.SaveKnowledge("Our office is in Lisbon."))
	require.NoError(t, f.library.AppendURL("https://example.com/a", "Page A content."))
	require.NoError(t, f.library.AppendURL("https://example.com/empty", ""))
	require.NoError(t, f.library.AppendQnA(library.QnA{Question: "Hours?", Answer: "Nine to five."}))
	require.NoError(t, f.library.SaveDocument("policy", "Returns within thirty days."))

	// Stale chunk that the rebuild must drop.
	_, err := f.ingest.IngestText(ctx, "stale", domain.Source{ID: "gone"})
	require.NoError(t, err)

	var labels []string
	total, err := f.sources.ReingestAll(ctx, func(_, _ int, label string) {
		labels = append(labels, label)
	})
	require.NoError(t, err)

	assert.Equal(t, 4, total)
	assert.Equal(t, []string{f.library.KnowledgePath(), "https://example.com/a", domain.QnASourceID, "policy"}, labels)
	assert.Equal(t, map[string]int{
		"knowledge.txt":         1,
		"https://example.com/a": 1,
		domain.QnASourceID:      1,
		"policy":                1,
	}, f.sourceChunks(t))

	listing, err := f.sources.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/empty"}, listing.URLs)
	assert.Equal(t, 1, listing.QnA)
	assert.Len(t, listing.Documents, 1)
	assert.Len(t, listing.Stored, 4)

	stats, err := f.sources.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, 256, stats.Dimension)
	assert.WithinDuration(t, time.Now(), stats.UpdatedAt, time.Minute)
}

func TestSaveKnowledgeRebuilds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	n, err := f.sources.SaveKnowledge(ctx, words(50), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	text, err := f.library.Knowledge()
	require.NoError(t, err)
	assert.Equal(t, words(50), text)
}
