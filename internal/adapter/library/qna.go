package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"askdocs/internal/errors"
)

// QnA is a curated question and answer pair.
type QnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Text renders the pair the way it is stored and embedded.
func (q QnA) Text() string {
	return fmt.Sprintf("Q: %s\nA: %s", strings.TrimSpace(q.Question), strings.TrimSpace(q.Answer))
}

// FormatQnA joins pairs with blank lines.
func FormatQnA(entries []QnA) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Text()
	}
	return strings.Join(parts, "\n\n")
}

// QnA parses the Q&A file. Blocks are separated by blank lines; a block that
// does not start with "Q:" yields an empty pair so indexes stay stable.
func (l *Library) QnA() ([]QnA, error) {
	text, err := readOptional(l.qnaPath)
	if err != nil {
		return nil, err
	}

	var entries []QnA
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		entries = append(entries, parseQnABlock(block))
	}
	return entries, nil
}

func parseQnABlock(block string) QnA {
	var q QnA
	if !hasPrefixFold(block, "Q:") {
		return q
	}
	first, rest, found := strings.Cut(block, "\n")
	q.Question = strings.TrimSpace(first[2:])
	if !found {
		return q
	}
	rest = strings.TrimSpace(rest)
	if hasPrefixFold(rest, "A:") {
		q.Answer = strings.TrimSpace(rest[2:])
	}
	return q
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// AppendQnA adds one pair to the end of the Q&A file.
func (l *Library) AppendQnA(q QnA) error {
	if err := os.MkdirAll(filepath.Dir(l.qnaPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.qnaPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.qnaPath, err)
	}
	defer f.Close()

	_, err = f.WriteString(q.Text() + "\n\n")
	return err
}

// WriteQnA replaces the Q&A file with entries.
func (l *Library) WriteQnA(entries []QnA) error {
	content := FormatQnA(entries)
	if len(entries) > 0 {
		content += "\n\n"
	}
	return writeFile(l.qnaPath, content)
}

// RemoveQnA deletes the pair at index (0-based) and returns the remaining pairs.
func (l *Library) RemoveQnA(index int) ([]QnA, error) {
	entries, err := l.QnA()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entries) {
		return nil, errors.New(errors.ErrCodeNotFound,
			fmt.Sprintf("Q&A index %d out of range (have %d)", index, len(entries)), nil)
	}

	entries = append(entries[:index], entries[index+1:]...)
	if err := l.WriteQnA(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClearQnA empties the Q&A file if it exists.
func (l *Library) ClearQnA() error {
	if _, err := os.Stat(l.qnaPath); os.IsNotExist(err) {
		return nil
	}
	return os.WriteFile(l.qnaPath, nil, 0644)
}

// QnAText returns the raw Q&A file content.
func (l *Library) QnAText() (string, error) {
	return readOptional(l.qnaPath)
}
