package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"askdocs/internal/domain"
)

func TestPrintAnswerPlain(t *testing.T) {
	var buf bytes.Buffer
	answer := &domain.Answer{
		Text: "We open at nine.",
		Sources: []domain.QueryResultItem{
			{Source: "hours.txt", Text: strings.Repeat("a", 300), Similarity: 0.8},
			{Source: "hours.txt", Text: "short", Similarity: 0.5},
			{Source: "https://example.com/faq", Text: "faq", Similarity: 0.45},
		},
	}

	printAnswer(&buf, answer, 200, true)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "We open at nine.\n"))
	assert.Contains(t, out, "Sources: hours.txt, https://example.com/faq\n")
	assert.Contains(t, out, "[1] hours.txt (similarity 0.800)")
	assert.Contains(t, out, strings.Repeat("a", 200)+"...")
	assert.NotContains(t, out, strings.Repeat("a", 201))
}

func TestPrintAnswerWithoutSources(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &domain.Answer{Text: "Please ask a question."}, 200, true)
	assert.Equal(t, "Please ask a question.\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
