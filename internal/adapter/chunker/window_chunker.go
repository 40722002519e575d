package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"askdocs/internal/domain"
)

// Unit is what a window's size and overlap are counted in.
type Unit string

const (
	// Words splits on whitespace and joins each window with single spaces.
	Words Unit = "words"
	// Chars windows over runes; chunks are exact substrings of the input.
	Chars Unit = "chars"
	// Tokens windows over BPE tokens of TokenEncoding.
	Tokens Unit = "tokens"
)

// TokenEncoding is the tiktoken encoding used by the Tokens unit. Its ranks
// are downloaded on first use and cached under TIKTOKEN_CACHE_DIR.
const TokenEncoding = "cl100k_base"

// WindowChunker splits text into fixed-size windows that overlap their
// neighbour by a fixed number of units.
type WindowChunker struct {
	size    int
	overlap int
	unit    Unit
	enc     *tiktoken.Tiktoken
}

func NewWindowChunker(size, overlap int, unit Unit) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	c := &WindowChunker{size: size, overlap: overlap, unit: unit}
	switch unit {
	case "":
		c.unit = Words
	case Words, Chars:
	case Tokens:
		enc, err := tiktoken.GetEncoding(TokenEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s encoding: %w", TokenEncoding, err)
		}
		c.enc = enc
	default:
		return nil, fmt.Errorf("unknown chunk unit: %s", unit)
	}
	return c, nil
}

// Step is the distance between the starts of consecutive windows.
func (c *WindowChunker) Step() int {
	return c.size - c.overlap
}

func (c *WindowChunker) Chunk(source domain.Source, text string) ([]domain.Chunk, error) {
	var windows []string
	switch c.unit {
	case Chars:
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		runes := []rune(text)
		for _, w := range c.windows(len(runes)) {
			windows = append(windows, string(runes[w[0]:w[1]]))
		}
	case Tokens:
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		tokens := c.enc.Encode(text, nil, nil)
		for _, w := range c.windows(len(tokens)) {
			windows = append(windows, strings.ToValidUTF8(c.enc.Decode(tokens[w[0]:w[1]]), ""))
		}
	default:
		words := strings.Fields(text)
		for _, w := range c.windows(len(words)) {
			windows = append(windows, strings.Join(words[w[0]:w[1]], " "))
		}
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			SourceID: source.ID,
			Index:    i,
			Text:     w,
			Metadata: source.Metadata(),
		})
	}
	return chunks, nil
}

// windows returns [start, end) bounds over n units. The last window always
// reaches n, so nothing is dropped.
func (c *WindowChunker) windows(n int) [][2]int {
	var out [][2]int
	step := c.Step()
	for start := 0; start < n; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
		if end == n {
			break
		}
	}
	return out
}
