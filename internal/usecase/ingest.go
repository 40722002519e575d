package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"askdocs/internal/adapter/extract"
	"askdocs/internal/adapter/library"
	"askdocs/internal/domain"
	"askdocs/internal/errors"
	"askdocs/internal/port"
)

// Invalidator is notified whenever the store contents change.
type Invalidator interface {
	Invalidate()
}

// IngestUseCase turns documents into stored, embedded chunks.
type IngestUseCase struct {
	store    port.VectorStore
	embedder port.Embedder
	chunker  port.Chunker
	fetcher  port.Fetcher
	walker   port.FileWalker
	library  *library.Library
	cache    Invalidator
	logger   *slog.Logger
}

// NewIngestUseCase creates a new ingest use case. cache may be nil.
func NewIngestUseCase(
	store port.VectorStore,
	embedder port.Embedder,
	chunker port.Chunker,
	fetcher port.Fetcher,
	walker port.FileWalker,
	lib *library.Library,
	cache Invalidator,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		fetcher:  fetcher,
		walker:   walker,
		library:  lib,
		cache:    cache,
		logger:   logger,
	}
}

// IngestResult summarizes a multi-file ingestion.
type IngestResult struct {
	FilesIngested int
	FilesSkipped  int
	ChunksCreated int
	Errors        []string
}

// ProgressFunc is called after each file of a directory ingestion.
type ProgressFunc func(done, total int, path string)

// IngestText chunks, embeds and stores text under source. Blank text stores
// nothing and returns 0.
func (u *IngestUseCase) IngestText(ctx context.Context, text string, source domain.Source) (int, error) {
	records, err := u.prepare(ctx, text, source)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return u.commit(ctx, source, records, false)
}

// IngestFile extracts text from the file at path and stores it under the
// file's base name, replacing chunks previously stored for that name.
func (u *IngestUseCase) IngestFile(ctx context.Context, path string) (int, error) {
	return u.ingestFileAs(ctx, path, filepath.Base(path))
}

func (u *IngestUseCase) ingestFileAs(ctx context.Context, path, id string) (int, error) {
	extractor, kind, err := extract.ForFile(path)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := extractor.Extract(data)
	if err != nil {
		return 0, err
	}

	source := domain.Source{ID: id, Kind: kind}
	return u.replace(ctx, text, source)
}

// IngestUpload ingests an uploaded PDF or DOCX document held in memory.
func (u *IngestUseCase) IngestUpload(ctx context.Context, filename string, data []byte) (int, error) {
	if filename == "" {
		return 0, errors.ValidationError("no file selected", nil)
	}
	extractor, kind, err := extract.ForFile(filename)
	if err != nil {
		return 0, err
	}
	if kind != domain.KindPDF && kind != domain.KindDOCX {
		return 0, errors.ExtractionError(errors.ErrCodeUnsupportedFormat,
			"only PDF and DOCX files are supported", nil)
	}
	text, err := extractor.Extract(data)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.ExtractionError(errors.ErrCodeParseFailed,
			fmt.Sprintf("no text could be extracted from %s", filename), nil)
	}

	source := domain.Source{ID: filepath.Base(filename), Kind: kind}
	return u.replace(ctx, text, source)
}

// IngestURL fetches url, stores its text and records it in the URL content
// file. An already recorded URL has its content and chunks replaced.
func (u *IngestUseCase) IngestURL(ctx context.Context, url string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, errors.ValidationError("URL is required", nil)
	}
	if u.fetcher == nil {
		return 0, errors.ConfigError("no URL fetcher configured", nil)
	}

	text, err := u.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, errors.ExtractionError(errors.ErrCodeParseFailed,
			fmt.Sprintf("no text could be extracted from %s", url), nil)
	}

	n, err := u.replace(ctx, text, urlSource(url))
	if err != nil {
		return 0, err
	}
	if u.library != nil {
		if err := u.recordURL(url, text); err != nil {
			return n, fmt.Errorf("failed to record URL content: %w", err)
		}
	}
	return n, nil
}

func (u *IngestUseCase) recordURL(url, content string) error {
	entries, err := u.library.URLs()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].URL == url {
			entries[i].Content = content
			return u.library.WriteURLs(entries)
		}
	}
	return u.library.AppendURL(url, content)
}

// IngestKnowledgeFile ingests the plain-text knowledge file at path, or the
// configured knowledge file when path is empty.
func (u *IngestUseCase) IngestKnowledgeFile(ctx context.Context, path string) (int, error) {
	if path == "" && u.library != nil {
		path = u.library.KnowledgePath()
	}
	if path == "" {
		return 0, errors.ValidationError("no knowledge file configured", nil)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("knowledge file not found: %s", path), err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := extract.Text{}.Extract(data)
	if err != nil {
		return 0, err
	}

	return u.replace(ctx, text, domain.Source{ID: filepath.Base(path), Kind: domain.KindText})
}

// IngestDir ingests every file under root matched by the walker. Each file is
// stored under its slash-separated path relative to root, so equal base names
// in different directories stay distinct. Failures are collected per file;
// one bad file does not stop the rest.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, progress ProgressFunc) (*IngestResult, error) {
	if u.walker == nil {
		return nil, errors.ConfigError("no file walker configured", nil)
	}
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	result := &IngestResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := u.ingestFileAs(ctx, file.Path, relativeID(absRoot, file.Path))
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
			u.logger.Warn("ingest failed", "path", file.Path, "error", err)
		case n == 0:
			result.FilesSkipped++
		default:
			result.FilesIngested++
			result.ChunksCreated += n
		}

		if progress != nil {
			progress(i+1, len(files), file.Path)
		}
	}
	return result, nil
}

// prepare builds the embedded records for text without touching the store.
func (u *IngestUseCase) prepare(ctx context.Context, text string, source domain.Source) ([]port.VectorRecord, error) {
	if source.ID == "" {
		return nil, errors.ValidationError("source label is required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	chunks, err := u.chunker.Chunk(source, text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk %s: %w", source.ID, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, errors.ProviderError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
	}

	records := make([]port.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = port.VectorRecord{Chunk: chunks[i], Vector: vectors[i]}
	}
	return records, nil
}

// replace stores text under source in place of what the source had before.
// Old chunks are kept when any step fails.
func (u *IngestUseCase) replace(ctx context.Context, text string, source domain.Source) (int, error) {
	records, err := u.prepare(ctx, text, source)
	if err != nil {
		return 0, err
	}
	return u.commit(ctx, source, records, true)
}

func (u *IngestUseCase) commit(ctx context.Context, source domain.Source, records []port.VectorRecord, replace bool) (int, error) {
	if replace {
		removed, _, err := u.store.ReplaceSource(ctx, source.ID, records)
		if err != nil {
			return 0, err
		}
		if removed > 0 {
			u.logger.Debug("replaced source", "source", source.ID, "removed", removed)
		}
	} else if len(records) > 0 {
		if _, err := u.store.Add(ctx, records); err != nil {
			return 0, err
		}
	}
	u.changed()

	u.logger.Info("ingested", "source", source.ID, "type", source.Kind, "chunks", len(records))
	return len(records), nil
}

// metaUpdatedAt records when the store contents last changed.
const metaUpdatedAt = "updated_at"

func (u *IngestUseCase) changed() {
	if u.cache != nil {
		u.cache.Invalidate()
	}
	if err := u.store.PutMeta(metaUpdatedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		u.logger.Warn("failed to record update time", "error", err)
	}
}

func relativeID(root, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func urlSource(url string) domain.Source {
	return domain.Source{ID: url, Kind: domain.KindURL, URL: url}
}
