package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pagelens/pagelens/internal/adapters/driven/cache"
	"github.com/pagelens/pagelens/internal/adapters/driven/config/file"
	"github.com/pagelens/pagelens/internal/adapters/driven/corpus/historydb"
	"github.com/pagelens/pagelens/internal/adapters/driven/corpus/notes"
	"github.com/pagelens/pagelens/internal/adapters/driven/corpus/page"
	"github.com/pagelens/pagelens/internal/adapters/driven/corpus/pill"
	"github.com/pagelens/pagelens/internal/adapters/driven/generator"
	"github.com/pagelens/pagelens/internal/adapters/driven/generator/ollama"
	"github.com/pagelens/pagelens/internal/adapters/driven/translate"
	"github.com/pagelens/pagelens/internal/adapters/driving/cli"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/core/services"
	"github.com/pagelens/pagelens/internal/logger"
	"github.com/pagelens/pagelens/internal/tokens"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := file.NewStore("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	set := store.Settings()

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("prompts: %w", err)
	}

	gen := generator.WithLanguageRetry(ollama.New(ollama.Config{
		BaseURL: set.Generator.BaseURL,
		Model:   set.Generator.Model,
		Timeout: time.Duration(set.Generator.TimeoutSeconds) * time.Second,
	}))
	defer gen.Close()

	adapters := buildAdapters()

	budget := tokens.Budget{
		Max:            set.Tokens.MaxTokens,
		PromptOverhead: set.Tokens.PromptOverhead,
		AnswerReserve:  set.Tokens.AnswerReserve,
	}
	idxCache := cache.New(cache.Config{
		MaxEntries:       set.Cache.MaxEntries,
		MaxCharsPerEntry: set.Cache.MaxCharsPerEntry,
	})
	defer idxCache.Close()
	registerWatches(idxCache)

	pipeline := services.NewPipelineService(
		adapters,
		services.NewIndexerService(gen, prompts),
		services.NewClassifierService(gen),
		services.NewSynonymService(gen, prompts),
		services.NewRetrieverService(),
		services.NewRerankService(gen, prompts),
		services.NewComposerService(budget, tokens.NewEstimator(set.Tokens.CharsPerToken), prompts),
		gen,
		translate.New(gen.Clone()),
		idxCache,
	)
	pipeline.SetChunkOptions(driven.ChunkOptions{
		MaxChunkChars: set.Chunker.MaxChunkChars,
		OverlapChars:  set.Chunker.OverlapChars,
		MinChunkChars: set.Chunker.MinChunkChars,
	})
	pipeline.SetRetrievalOptions(services.RetrievalOptions{
		TopM:         set.Retrieval.TopM,
		RerankK:      set.Retrieval.RerankK,
		UseLLM:       set.Retrieval.UseLLM,
		UseSynonyms:  set.Retrieval.UseSynonyms,
		SynonymLimit: set.Retrieval.SynonymLimit,
	})

	cli.SetAnswerService(pipeline)
	cli.SetCorpusAdapters(adapters)
	cli.SetVersion(version)
	return cli.Execute()
}

// buildAdapters assembles every corpus adapter whose backing store is
// reachable. Missing browser databases disable the corresponding
// corpus instead of failing the whole binary.
func buildAdapters() []driven.CorpusAdapter {
	adapters := []driven.CorpusAdapter{page.New(), pill.New()}

	// The CLI runs as the profile owner, so browser-data access is
	// granted unconditionally.
	perms := driven.PermissionFunc(func(context.Context, domain.SourceKind) bool { return true })

	if path := notesPath(); path != "" {
		if a, err := notes.New(path); err == nil {
			adapters = append(adapters, a)
		} else {
			logger.Debug("notes corpus disabled: %v", err)
		}
	}

	profile := profileDir()
	if profile == "" {
		return adapters
	}
	historyDB := filepath.Join(profile, "History")
	if _, err := os.Stat(historyDB); err == nil {
		if a, err := historydb.NewHistory(historyDB, perms); err == nil {
			adapters = append(adapters, a)
		} else {
			logger.Debug("history corpus disabled: %v", err)
		}
		if a, err := historydb.NewDownloads(historyDB, perms); err == nil {
			adapters = append(adapters, a)
		} else {
			logger.Debug("download corpus disabled: %v", err)
		}
	}
	bookmarks := filepath.Join(profile, "Bookmarks")
	if _, err := os.Stat(bookmarks); err == nil {
		adapters = append(adapters, historydb.NewBookmarks(bookmarks, perms))
	}
	return adapters
}

// registerWatches evicts cached indexes when their backing files
// change on disk. History and download cache keys are parameterised per
// request, so those corpora rely on revalidation instead of watches.
func registerWatches(c *cache.LRU) {
	if p := notesPath(); p != "" {
		if err := c.Watch("notes:all", p); err != nil {
			logger.Debug("notes watch disabled: %v", err)
		}
	}
	if profile := profileDir(); profile != "" {
		bookmarks := filepath.Join(profile, "Bookmarks")
		if _, err := os.Stat(bookmarks); err == nil {
			if err := c.Watch("bookmarks:"+bookmarks, bookmarks); err != nil {
				logger.Debug("bookmarks watch disabled: %v", err)
			}
		}
	}
}

func notesPath() string {
	if p := os.Getenv("PAGELENS_NOTES_DB"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".pagelens", "notes.db")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func profileDir() string {
	if p := os.Getenv("PAGELENS_PROFILE_DIR"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "chromium", "Default")
}
