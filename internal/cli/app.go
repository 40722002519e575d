package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"askdocs/config"
	"askdocs/internal/adapter/cache"
	"askdocs/internal/adapter/chunker"
	"askdocs/internal/adapter/embedding"
	"askdocs/internal/adapter/extract"
	"askdocs/internal/adapter/fs"
	"askdocs/internal/adapter/generation"
	"askdocs/internal/adapter/library"
	"askdocs/internal/adapter/retriever"
	"askdocs/internal/adapter/store"
	"askdocs/internal/errors"
	"askdocs/internal/port"
	"askdocs/internal/usecase"
)

const queryCacheTTL = 10 * time.Minute

// app holds the wiring shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    port.VectorStore
	lock     *store.WriteLock
	library  *library.Library
	embedder port.Embedder
	queries  *cache.QueryCache
}

// openApp opens the store. Commands that modify the knowledge base pass
// write=true and hold the writer lock until Close.
func openApp(write bool) (*app, error) {
	cfg := GetConfig()
	logger := slog.Default()

	var lock *store.WriteLock
	if write {
		if err := cfg.EnsureStoreDir(); err != nil {
			return nil, errors.StoreError("failed to create store directory", err)
		}
		lock = store.NewWriteLock(cfg.Store.Dir)
		if err := lock.TryLock(); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		lock:     lock,
		library:  library.New(cfg.Library),
		embedder: &lazyEmbedder{cfg: cfg.Embedding},
		queries:  cache.NewQueryCache(cfg.Retrieve.CacheSize, queryCacheTTL),
	}
	return a, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if a.lock != nil {
		if uerr := a.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}

// checkSchema compares the store with the current configuration. Writers
// record the schema on a fresh store and refuse to mix configurations unless
// rebuilding.
func (a *app) checkSchema(rebuilding bool) error {
	result, err := store.CheckMigration(a.store, a.cfg)
	if err != nil {
		return err
	}
	if result.NeedsRebuild {
		if rebuilding {
			return nil
		}
		if a.lock == nil {
			a.logger.Warn("store does not match configuration; run 'askdocs reingest'", "reason", result.Reason)
			return nil
		}
		return errors.ConfigError(fmt.Sprintf("store does not match configuration (%s); run 'askdocs reingest'", result.Reason), nil)
	}
	if result.NeedsMigration && a.lock != nil {
		a.logger.Debug("recording schema", "reason", result.Reason)
		return store.Migrate(a.store, a.cfg)
	}
	return nil
}

// recordSchema stores the current configuration hash after a full rebuild.
func (a *app) recordSchema() error {
	return store.Migrate(a.store, a.cfg)
}

func (a *app) ingestUseCase() (*usecase.IngestUseCase, error) {
	ch, err := chunker.NewWindowChunker(a.cfg.Ingest.ChunkSize, a.cfg.Ingest.ChunkOverlap, chunker.Unit(a.cfg.Ingest.ChunkUnit))
	if err != nil {
		return nil, errors.ConfigError("invalid chunking configuration", err)
	}
	fetcher := extract.NewHTTPFetcher(time.Duration(a.cfg.Ingest.FetchTimeout) * time.Second)
	walker := fs.NewWalker(a.cfg.Ingest.Includes, a.cfg.Ingest.Excludes)
	return usecase.NewIngestUseCase(a.store, a.embedder, ch, fetcher, walker, a.library, a.queries, a.logger), nil
}

func (a *app) sourcesUseCase() (*usecase.SourcesUseCase, error) {
	ingest, err := a.ingestUseCase()
	if err != nil {
		return nil, err
	}
	return usecase.NewSourcesUseCase(a.store, a.library, ingest), nil
}

func (a *app) answerUseCase(generate bool) (*usecase.AnswerUseCase, error) {
	var gen port.Generator = generation.NewExtractiveGenerator()
	if generate {
		var err error
		if gen, err = generation.New(a.cfg.Generation); err != nil {
			return nil, err
		}
	}
	prompts, err := usecase.NewPromptBuilder(a.cfg.Generation.System)
	if err != nil {
		return nil, err
	}
	return usecase.NewAnswerUseCase(a.retriever(), gen, prompts, a.cfg.Retrieve.TopK, a.cfg.Retrieve.SimilarityThreshold, a.logger), nil
}

func (a *app) retriever() port.Retriever {
	metric := store.Metric(a.cfg.Store.Metric)
	semantic := retriever.NewSemanticRetriever(a.store, a.embedder, metric)
	return cache.NewCachedRetriever(semantic, a.queries)
}

// lazyEmbedder builds the configured embedder on first use, so commands that
// never embed do not need provider credentials.
type lazyEmbedder struct {
	cfg   config.EmbeddingConfig
	once  sync.Once
	inner port.Embedder
	err   error
}

func (e *lazyEmbedder) get() (port.Embedder, error) {
	e.once.Do(func() {
		inner, err := embedding.New(e.cfg)
		if err != nil {
			e.err = err
			return
		}
		if e.cfg.CacheSize > 0 {
			inner = embedding.NewCachedEmbedder(inner, e.cfg.CacheSize)
		}
		e.inner = inner
	})
	return e.inner, e.err
}

func (e *lazyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := e.get()
	if err != nil {
		return nil, err
	}
	return inner.Embed(ctx, texts)
}

func (e *lazyEmbedder) Dimension() int {
	if e.inner != nil {
		return e.inner.Dimension()
	}
	return e.cfg.Dimension
}

func (e *lazyEmbedder) ModelName() string {
	if e.inner != nil {
		return e.inner.ModelName()
	}
	return e.cfg.Model
}
