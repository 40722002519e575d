package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"askdocs/internal/adapter/library"
	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// SourcesUseCase manages the knowledge library files and keeps the store in
// step with them.
type SourcesUseCase struct {
	store   port.VectorStore
	library *library.Library
	ingest  *IngestUseCase
}

// NewSourcesUseCase creates a new sources use case.
func NewSourcesUseCase(store port.VectorStore, lib *library.Library, ingest *IngestUseCase) *SourcesUseCase {
	return &SourcesUseCase{store: store, library: lib, ingest: ingest}
}

// SourceListing is everything the knowledge base is built from.
type SourceListing struct {
	Stored    []domain.SourceSummary `json:"stored"`
	URLs      []string               `json:"urls"`
	Documents []library.Document     `json:"documents"`
	QnA       int                    `json:"qna"`
}

// List returns the stored sources and the library entries.
func (u *SourcesUseCase) List(ctx context.Context) (*SourceListing, error) {
	stored, err := u.store.Sources(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := u.library.URLs()
	if err != nil {
		return nil, fmt.Errorf("failed to read URL content: %w", err)
	}
	docs, err := u.library.Documents()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	qna, err := u.library.QnA()
	if err != nil {
		return nil, fmt.Errorf("failed to read Q&A: %w", err)
	}

	listing := &SourceListing{Stored: stored, Documents: docs, QnA: len(qna)}
	for _, e := range entries {
		listing.URLs = append(listing.URLs, e.URL)
	}
	return listing, nil
}

// RemoveURL drops a URL's chunks and its entry in the URL content file.
func (u *SourcesUseCase) RemoveURL(ctx context.Context, url string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, errors.ValidationError("URL is required", nil)
	}
	removed, err := u.store.DeleteBySource(ctx, url)
	if err != nil {
		return 0, err
	}
	u.ingest.changed()

	entries, err := u.library.URLs()
	if err != nil {
		return removed, err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.URL != url {
			kept = append(kept, e)
		}
	}
	return removed, u.library.WriteURLs(kept)
}

// UpdateURL replaces the stored content of a URL, adding the entry when it is
// new, and re-ingests it.
func (u *SourcesUseCase) UpdateURL(ctx context.Context, url, content string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, errors.ValidationError("URL is required", nil)
	}

	entries, err := u.library.URLs()
	if err != nil {
		return 0, err
	}
	found := false
	for i := range entries {
		if entries[i].URL == url {
			entries[i].Content = content
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, library.URLEntry{URL: url, Content: content})
	}
	if err := u.library.WriteURLs(entries); err != nil {
		return 0, err
	}

	return u.ingest.replace(ctx, content, urlSource(url))
}

// URLContent returns the stored content of url.
func (u *SourcesUseCase) URLContent(url string) (string, error) {
	entries, err := u.library.URLs()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.URL == url {
			return e.Content, nil
		}
	}
	return "", errors.New(errors.ErrCodeNotFound, fmt.Sprintf("URL not found: %s", url), nil)
}

// Documents lists the named documents.
func (u *SourcesUseCase) Documents() ([]library.Document, error) {
	return u.library.Documents()
}

// SaveDocument writes a named document and re-ingests it. The id is derived
// from name when empty.
func (u *SourcesUseCase) SaveDocument(ctx context.Context, id, name, content string) (string, int, error) {
	if strings.TrimSpace(name) == "" && id == "" {
		return "", 0, errors.ValidationError("document name is required", nil)
	}
	if id == "" {
		id = library.DocumentID(name)
	}
	if strings.TrimSpace(name) == "" {
		name = id
	}

	if err := u.library.SaveDocument(id, content); err != nil {
		return "", 0, err
	}
	n, err := u.ingest.replace(ctx, content, documentSource(id, name))
	return id, n, err
}

// DocumentContent returns a document's text.
func (u *SourcesUseCase) DocumentContent(id string) (string, error) {
	return u.library.DocumentContent(id)
}

// DeleteDocument removes a document and its chunks.
func (u *SourcesUseCase) DeleteDocument(ctx context.Context, id string) (int, error) {
	if err := u.library.DeleteDocument(id); err != nil {
		return 0, err
	}
	removed, err := u.store.DeleteBySource(ctx, id)
	if err != nil {
		return 0, err
	}
	u.ingest.changed()
	return removed, nil
}

// QnA lists the curated Q&A pairs.
func (u *SourcesUseCase) QnA() ([]library.QnA, error) {
	return u.library.QnA()
}

// AddQnA appends a pair to the Q&A file and ingests it under the shared
// Q&A source label.
func (u *SourcesUseCase) AddQnA(ctx context.Context, question, answer string) (int, error) {
	pair := library.QnA{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if pair.Question == "" || pair.Answer == "" {
		return 0, errors.ValidationError("both question and answer are required", nil)
	}

	if err := u.library.AppendQnA(pair); err != nil {
		return 0, fmt.Errorf("failed to write Q&A: %w", err)
	}
	return u.ingest.IngestText(ctx, pair.Text(), qnaSource())
}

// DeleteQnA removes the pair at index and re-ingests the remaining pairs.
func (u *SourcesUseCase) DeleteQnA(ctx context.Context, index int) (int, error) {
	remaining, err := u.library.RemoveQnA(index)
	if err != nil {
		return 0, err
	}
	return u.ingest.replace(ctx, library.FormatQnA(remaining), qnaSource())
}

// ClearQnA empties the Q&A file and drops every Q&A chunk.
func (u *SourcesUseCase) ClearQnA(ctx context.Context) error {
	if _, err := u.store.DeleteBySource(ctx, domain.QnASourceID); err != nil {
		return err
	}
	u.ingest.changed()
	return u.library.ClearQnA()
}

// SaveKnowledge replaces the knowledge file and rebuilds the whole store.
func (u *SourcesUseCase) SaveKnowledge(ctx context.Context, content string, progress ProgressFunc) (int, error) {
	if err := u.library.SaveKnowledge(content); err != nil {
		return 0, fmt.Errorf("failed to write knowledge file: %w", err)
	}
	return u.ReingestAll(ctx, progress)
}

// ReingestAll clears the store and ingests the knowledge file, every URL
// entry, the Q&A file and every document, in that order.
func (u *SourcesUseCase) ReingestAll(ctx context.Context, progress ProgressFunc) (int, error) {
	type job struct {
		label string
		run   func() (int, error)
	}
	var jobs []job

	knowledge, err := u.library.Knowledge()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(knowledge) != "" {
		jobs = append(jobs, job{u.library.KnowledgePath(), func() (int, error) {
			return u.ingest.IngestKnowledgeFile(ctx, u.library.KnowledgePath())
		}})
	}

	entries, err := u.library.URLs()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Content == "" {
			continue
		}
		jobs = append(jobs, job{e.URL, func() (int, error) {
			return u.ingest.IngestText(ctx, e.Content, urlSource(e.URL))
		}})
	}

	qna, err := u.library.QnAText()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(qna) != "" {
		jobs = append(jobs, job{domain.QnASourceID, func() (int, error) {
			return u.ingest.IngestText(ctx, qna, qnaSource())
		}})
	}

	docs, err := u.library.Documents()
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		content, err := u.library.DocumentContent(d.ID)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		jobs = append(jobs, job{d.ID, func() (int, error) {
			return u.ingest.IngestText(ctx, content, documentSource(d.ID, d.Name))
		}})
	}

	if err := u.store.Clear(ctx); err != nil {
		return 0, err
	}
	u.ingest.changed()

	total := 0
	for i, j := range jobs {
		n, err := j.run()
		if err != nil {
			return total, fmt.Errorf("failed to ingest %s: %w", j.label, err)
		}
		total += n
		if progress != nil {
			progress(i+1, len(jobs), j.label)
		}
	}
	return total, nil
}

// Stats reports the store's chunk count, vector dimension and the time of
// the last change.
func (u *SourcesUseCase) Stats(ctx context.Context) (domain.Stats, error) {
	n, err := u.store.Count(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	stats := domain.Stats{Chunks: n, Dimension: u.store.Dimension()}

	v, err := u.store.GetMeta(metaUpdatedAt)
	if err != nil {
		return domain.Stats{}, err
	}
	if v != "" {
		if stats.UpdatedAt, err = time.Parse(time.RFC3339, v); err != nil {
			return domain.Stats{}, fmt.Errorf("invalid %s value %q: %w", metaUpdatedAt, v, err)
		}
	}
	return stats, nil
}

func qnaSource() domain.Source {
	return domain.Source{ID: domain.QnASourceID, Kind: domain.KindQnA}
}

func documentSource(id, name string) domain.Source {
	return domain.Source{ID: id, Kind: domain.KindDocument, Name: name}
}
