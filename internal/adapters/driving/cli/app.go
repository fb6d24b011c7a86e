package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/docmind/internal/adapters/driven/ai"
	"github.com/custodia-labs/docmind/internal/adapters/driven/extractor"
	"github.com/custodia-labs/docmind/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docmind/internal/adapters/driven/watch"
	"github.com/custodia-labs/docmind/internal/core/domain"
	"github.com/custodia-labs/docmind/internal/core/services"
	"github.com/custodia-labs/docmind/internal/logger"
	"github.com/custodia-labs/docmind/internal/normalisers"
	"github.com/custodia-labs/docmind/internal/observability"
	"github.com/custodia-labs/docmind/internal/postprocessors"
)

// App holds the wired services and the resources behind them.
type App struct {
	Config   domain.Config
	Search   *services.SearchService
	Document *services.DocumentService

	adapters *ai.InitResult
	watcher  *watch.Watcher
	shutdown observability.ShutdownFunc
}

// Bootstrap wires every adapter cfg selects. Trace output goes to traceOut.
func Bootstrap(ctx context.Context, cfg domain.Config, traceOut io.Writer) (*App, error) {
	logger.Section("Startup")

	// Step 1: Tracing.
	shutdown, err := observability.Init(observability.Config{
		Exporter: cfg.TraceExporter,
		Version:  version,
		Output:   traceOut,
	})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, shutdown: shutdown}

	// Step 2: Providers, durable store and vector index.
	a.adapters, err = ai.Init(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	for _, w := range a.adapters.Warnings {
		logger.Warn("%s", w)
	}

	// Step 3: Embedding cache in front of the provider.
	var cache *services.EmbeddingCache
	if a.adapters.EmbeddingService != nil {
		opts := []services.CacheOption{services.WithMaxEntries(cfg.Cache.Size)}
		if a.adapters.EmbeddingStore != nil {
			opts = append(opts, services.WithEmbeddingStore(a.adapters.EmbeddingStore))
		}
		cache, err = services.NewEmbeddingCache(a.adapters.EmbeddingService, opts...)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
	}

	// Step 4: Services.
	docStore := memory.NewDocumentStore()
	a.Document = services.NewDocumentService(
		extractor.New(normalisers.DefaultRegistry()),
		postprocessors.NewDefaultBuilder(),
		docStore,
		a.adapters.VectorIndex,
		cache,
		cfg.Chunking,
	)
	a.Document.SetConcurrency(cfg.Embedding.Concurrency)
	if a.adapters.LLMService != nil {
		a.Document.SetLLMService(a.adapters.LLMService)
	}
	a.Search = services.NewSearchService(docStore, a.adapters.VectorIndex, cache)

	// Step 5: Drop parsed copies when files change on disk.
	a.watcher, err = watch.New(a.Document.Invalidate)
	if err != nil {
		logger.Warn("file watching disabled: %v", err)
	} else {
		a.Document.SetFileWatcher(a.watcher)
	}

	logger.Debug("embedding %s/%s, llm %s/%s, vector %s, store %s",
		cfg.Embedding.Provider, cfg.Embedding.Model,
		cfg.LLM.Provider, cfg.LLM.Model,
		cfg.Vector.Backend, cfg.Cache.Store)
	return a, nil
}

// Close stops the watcher and releases adapters. It is safe to call on a
// partially built App.
func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			logger.Warn("closing watcher: %v", err)
		}
	}
	if a.adapters != nil {
		a.adapters.Close()
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			logger.Warn("flushing traces: %v", err)
		}
	}
}
