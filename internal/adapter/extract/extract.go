// Package extract turns raw documents into plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

var whitespace = regexp.MustCompile(`\s+`)

// Clean collapses every whitespace run into a single space and trims the ends.
func Clean(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// ForFile picks the extractor for a file name by its extension.
func ForFile(name string) (port.Extractor, domain.SourceKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDF{}, domain.KindPDF, nil
	case ".docx":
		return DOCX{}, domain.KindDOCX, nil
	case ".html", ".htm":
		return HTML{}, domain.KindHTML, nil
	case ".md", ".markdown":
		return Text{}, domain.KindMarkdown, nil
	case ".txt", "":
		return Text{}, domain.KindText, nil
	}
	return nil, "", errors.ExtractionError(errors.ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), nil)
}

// Text passes plain text through, replacing invalid UTF-8.
type Text struct{}

func (Text) Extract(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func parseError(format string, err error) error {
	return errors.ExtractionError(errors.ErrCodeParseFailed, fmt.Sprintf("failed to parse %s", format), err)
}
