package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdocs/internal/domain"
)

var testSource = domain.Source{ID: "notes.txt", Kind: domain.KindText}

// reconstruct joins each chunk's non-overlapping prefix plus the whole last chunk.
func reconstruct(chunks []domain.Chunk, step int, unit Unit) string {
	if unit == Chars {
		var sb strings.Builder
		for i, ch := range chunks {
			r := []rune(ch.Text)
			if i < len(chunks)-1 {
				r = r[:step]
			}
			sb.WriteString(string(r))
		}
		return sb.String()
	}
	var words []string
	for i, ch := range chunks {
		w := strings.Fields(ch.Text)
		if i < len(chunks)-1 {
			w = w[:step]
		}
		words = append(words, w...)
	}
	return strings.Join(words, " ")
}

func TestWindowChunkerReconstructsText(t *testing.T) {
	text := "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor " +
		"incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud " +
		"exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat."

	cases := []struct {
		size, overlap int
		unit          Unit
	}{
		{5, 0, Words}, {5, 2, Words}, {7, 6, Words}, {1000, 10, Words},
		{10, 0, Chars}, {10, 3, Chars}, {17, 16, Chars}, {1, 0, Chars},
	}
	for _, tc := range cases {
		c, err := NewWindowChunker(tc.size, tc.overlap, tc.unit)
		require.NoError(t, err)

		chunks, err := c.Chunk(testSource, text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		want := text
		if tc.unit == Words {
			want = strings.Join(strings.Fields(text), " ")
		}
		assert.Equal(t, want, reconstruct(chunks, c.Step(), tc.unit), "size=%d overlap=%d unit=%s", tc.size, tc.overlap, tc.unit)
	}
}

func TestWindowChunkerSizeAndOverlap(t *testing.T) {
	c, err := NewWindowChunker(4, 2, Words)
	require.NoError(t, err)

	chunks, err := c.Chunk(testSource, "a b c d e f g h i")
	require.NoError(t, err)

	want := []string{"a b c d", "c d e f", "e f g h", "g h i"}
	require.Len(t, chunks, len(want))
	for i, ch := range chunks {
		assert.Equal(t, want[i], ch.Text)
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "notes.txt", ch.SourceID)
		assert.Equal(t, "notes.txt", ch.Metadata["source"])
		assert.Equal(t, "txt", ch.Metadata["type"])
		assert.LessOrEqual(t, len(strings.Fields(ch.Text)), 4)
	}
	for i := 0; i+1 < len(chunks)-1; i++ {
		cur := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)
		assert.Equal(t, cur[len(cur)-2:], next[:2], "chunks %d and %d should share 2 words", i, i+1)
	}
}

func TestWindowChunkerShortText(t *testing.T) {
	c, err := NewWindowChunker(500, 50, Words)
	require.NoError(t, err)

	text := "The sky is blue. Grass is green."
	chunks, err := c.Chunk(testSource, text)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)

	c, err = NewWindowChunker(500, 50, Chars)
	require.NoError(t, err)
	chunks, err = c.Chunk(testSource, text)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestWindowChunkerExactFit(t *testing.T) {
	c, err := NewWindowChunker(3, 1, Words)
	require.NoError(t, err)

	chunks, err := c.Chunk(testSource, "one two three")
	require.NoError(t, err)
	require.Len(t, chunks, 1, "a text of exactly size units must not produce a trailing overlap-only chunk")
}

func TestWindowChunkerEmpty(t *testing.T) {
	for _, unit := range []Unit{Words, Chars} {
		c, err := NewWindowChunker(10, 2, unit)
		require.NoError(t, err)

		chunks, err := c.Chunk(testSource, "")
		require.NoError(t, err)
		assert.Empty(t, chunks)

		chunks, err = c.Chunk(testSource, " \n\t ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestNewWindowChunkerValidation(t *testing.T) {
	_, err := NewWindowChunker(0, 0, Words)
	assert.Error(t, err)

	_, err = NewWindowChunker(10, 10, Words)
	assert.Error(t, err)

	_, err = NewWindowChunker(10, -1, Words)
	assert.Error(t, err)

	_, err = NewWindowChunker(10, 2, Unit("tokens"))
	assert.Error(t, err)

	c, err := NewWindowChunker(10, 2, "")
	require.NoError(t, err)
	assert.Equal(t, Words, c.unit)
}

func TestWindowChunkerTokens(t *testing.T) {
	c, err := NewWindowChunker(8, 2, Tokens)
	if err != nil {
		t.Skipf("token encoding unavailable: %v", err)
	}

	text := strings.Repeat("Refunds are accepted within thirty days of purchase. ", 6)
	chunks, err := c.Chunk(testSource, text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	tokens := c.enc.Encode(text, nil, nil)
	assert.Len(t, chunks, len(c.windows(len(tokens))))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, ch.Text)
	}
	assert.True(t, strings.HasPrefix(text, chunks[0].Text))

	empty, err := c.Chunk(testSource, "  \n ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
