package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizer_Stemming(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("colors of the dogs")
	assert.Equal(t, []string{"color", "dog"}, tokens)

	// double s is not a plural
	assert.Equal(t, []string{"glass"}, tok.Tokenize("glass"))

	assert.Equal(t, tok.Tokenize("refund"), tok.Tokenize("refunded"))
	assert.Equal(t, tok.Tokenize("ship"), tok.Tokenize("shipping"))
	assert.Equal(t, 3, tok.Overlap("Was my order refunded before shipping?", "We refund orders that have not shipped."))
}

func TestPorterStemmer(t *testing.T) {
	s := NewPorterStemmer()

	cases := map[string]string{
		"caresses":    "caress",
		"ponies":      "poni",
		"refunded":    "refund",
		"shipping":    "ship",
		"hoping":      "hope",
		"relational":  "relat",
		"conditional": "condit",
		"happy":       "happi",
		"go":          "go",
		"política":    "política",
	}
	for word, want := range cases {
		assert.Equal(t, want, s.Stem(word), word)
	}
}

func TestTokenizer_NoStemming(t *testing.T) {
	tok := NewTokenizer(false)

	assert.Equal(t, []string{"colors", "dogs"}, tok.Tokenize("colors of the dogs"))
}

func TestTokenizer_StopwordAndShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("What color is the sky? I go")
	assert.Equal(t, []string{"color", "sky", "go"}, tokens)
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer(false)

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Equal(t, 13, tok.CountTokens("one two three four five six seven eight nine ten"))
}

func TestTokenizer_Overlap(t *testing.T) {
	tok := NewTokenizer(true)

	assert.Equal(t, 1, tok.Overlap("What color is the sky?", "The sky is blue."))
	assert.Equal(t, 0, tok.Overlap("What color is the sky?", "Grass is green."))
	assert.Equal(t, 1, tok.Overlap("sky sky sky", "sky"))
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("The sky is blue. Grass is green!\nVersion 1.2 shipped? Yes")
	assert.Equal(t, []string{
		"The sky is blue.",
		"Grass is green!",
		"Version 1.2 shipped?",
		"Yes",
	}, got)

	assert.Empty(t, SplitSentences("   "))
}
