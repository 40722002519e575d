// Package library manages the plain-text files the knowledge base is built
// from: the knowledge file, fetched URL content, named documents and Q&A pairs.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"askdocs/config"
	"askdocs/internal/errors"
)

const urlMarker = "--- URL:"

// Library reads and writes the source files under the configured paths.
type Library struct {
	knowledgePath  string
	urlContentPath string
	qnaPath        string
	documentsDir   string
}

func New(cfg config.LibraryConfig) *Library {
	return &Library{
		knowledgePath:  cfg.KnowledgePath,
		urlContentPath: cfg.URLContentPath,
		qnaPath:        cfg.QnAPath,
		documentsDir:   cfg.DocumentsDir,
	}
}

func (l *Library) KnowledgePath() string { return l.knowledgePath }

// Knowledge returns the knowledge file content, or "" when it does not exist.
func (l *Library) Knowledge() (string, error) {
	return readOptional(l.knowledgePath)
}

func (l *Library) SaveKnowledge(content string) error {
	return writeFile(l.knowledgePath, content)
}

// URLEntry is one fetched page recorded in the URL content file.
type URLEntry struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// URLs parses the URL content file into its entries, in file order.
func (l *Library) URLs() ([]URLEntry, error) {
	text, err := readOptional(l.urlContentPath)
	if err != nil {
		return nil, err
	}

	var entries []URLEntry
	for _, block := range strings.Split(text, urlMarker) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		header, content, _ := strings.Cut(block, "\n")
		url := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(header), "---"))
		if url == "" {
			continue
		}
		entries = append(entries, URLEntry{URL: url, Content: strings.TrimSpace(content)})
	}
	return entries, nil
}

// AppendURL adds a fetched page to the end of the URL content file.
func (l *Library) AppendURL(url, content string) error {
	if err := os.MkdirAll(filepath.Dir(l.urlContentPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.urlContentPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.urlContentPath, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "\n\n%s %s ---\n\n%s\n", urlMarker, url, content)
	return err
}

// WriteURLs replaces the URL content file with entries.
func (l *Library) WriteURLs(entries []URLEntry) error {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s %s ---\n\n%s", urlMarker, e.URL, e.Content))
	}
	return writeFile(l.urlContentPath, strings.Join(parts, "\n\n"))
}

// Document is a named text document stored as <documents_dir>/<id>.txt.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var nonIDChars = regexp.MustCompile(`[^\p{L}\p{N}_-]`)

const maxDocumentID = 50

// DocumentID derives a file-safe id from a display name.
func DocumentID(name string) string {
	id := nonIDChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if r := []rune(id); len(r) > maxDocumentID {
		id = string(r[:maxDocumentID])
	}
	if id == "" {
		return "doc"
	}
	return id
}

func (l *Library) documentPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", errors.ValidationError(fmt.Sprintf("invalid document id: %q", id), nil)
	}
	return filepath.Join(l.documentsDir, id+".txt"), nil
}

// Documents lists stored documents sorted by file name.
func (l *Library) Documents() ([]Document, error) {
	entries, err := os.ReadDir(l.documentsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		docs = append(docs, Document{ID: strings.TrimSuffix(e.Name(), ".txt"), Name: e.Name()})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// DocumentContent returns a document's text, or "" when it does not exist.
func (l *Library) DocumentContent(id string) (string, error) {
	path, err := l.documentPath(id)
	if err != nil {
		return "", err
	}
	return readOptional(path)
}

func (l *Library) SaveDocument(id, content string) error {
	path, err := l.documentPath(id)
	if err != nil {
		return err
	}
	return writeFile(path, content)
}

// DeleteDocument removes the document file. A missing file is not an error.
func (l *Library) DeleteDocument(id string) error {
	path, err := l.documentPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
