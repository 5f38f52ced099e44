package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/core/ports/driving"
	"github.com/pagelens/pagelens/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.AnswerService = (*PipelineService)(nil)

// RetrievalOptions tune the retrieval stages of the pipeline.
type RetrievalOptions struct {
	TopM         int
	RerankK      int
	UseLLM       bool
	UseSynonyms  bool
	SynonymLimit int
}

// PipelineService orchestrates the full retrieval pipeline: capture,
// index build or cache hit, classification, retrieval, reranking,
// prompt composition and streamed generation.
type PipelineService struct {
	adapters   map[domain.SourceKind]driven.CorpusAdapter
	indexer    *IndexerService
	classifier *ClassifierService
	synonyms   *SynonymService
	retriever  *RetrieverService
	reranker   *RerankService
	composer   *ComposerService
	gen        driven.Generator
	translator driven.Translator
	cache      driven.IndexCache
	chunkOpts  driven.ChunkOptions
	retrieval  RetrievalOptions
}

// NewPipelineService creates the pipeline. The adapter registry is
// built once from the given adapters; translator and cache are optional
// (can be nil).
func NewPipelineService(
	adapters []driven.CorpusAdapter,
	indexer *IndexerService,
	classifier *ClassifierService,
	synonyms *SynonymService,
	retriever *RetrieverService,
	reranker *RerankService,
	composer *ComposerService,
	gen driven.Generator,
	translator driven.Translator,
	cache driven.IndexCache,
) *PipelineService {
	registry := make(map[domain.SourceKind]driven.CorpusAdapter, len(adapters))
	for _, a := range adapters {
		registry[a.Kind()] = a
	}
	return &PipelineService{
		adapters:   registry,
		indexer:    indexer,
		classifier: classifier,
		synonyms:   synonyms,
		retriever:  retriever,
		reranker:   reranker,
		composer:   composer,
		gen:        gen,
		translator: translator,
		cache:      cache,
		retrieval:  RetrievalOptions{TopM: 12, RerankK: 5, UseLLM: true, UseSynonyms: true, SynonymLimit: 6},
	}
}

// SetRetrievalOptions overrides the retrieval tuning.
func (s *PipelineService) SetRetrievalOptions(opts RetrievalOptions) {
	if opts.TopM > 0 {
		s.retrieval = opts
	}
}

// SetChunkOptions overrides the adapter chunking defaults.
func (s *PipelineService) SetChunkOptions(opts driven.ChunkOptions) {
	s.chunkOpts = opts
}

// Answer runs the pipeline for one question. Cancellation is observed
// at every stage boundary and surfaces as ErrCancelled.
func (s *PipelineService) Answer(ctx context.Context, req driving.AnswerRequest) (*driving.AnswerResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	adapter, ok := s.adapters[req.Corpus]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported corpus %q", domain.ErrInvalidInput, req.Corpus)
	}

	// Fail fast when the generator is unreachable.
	if s.gen != nil {
		if err := s.gen.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
		}
	}

	logger.Section("Answer Pipeline")
	logger.Debug("Corpus: %s, query: %q", req.Corpus, query)
	notify(req.Listener, domain.Event{Kind: domain.EventCaptureStart})

	index, err := s.buildIndex(ctx, adapter, req)
	if err != nil {
		return nil, cancelOr(ctx, err)
	}

	class := s.classifier.Classify(ctx, query)
	logger.Debug("Classified: intent=%s breadth=%s", class.Intent, class.Breadth)

	topM := s.retrieval.TopM
	if class.Breadth == domain.BreadthWide {
		topM *= 2
	}

	var extraTerms []string
	if s.retrieval.UseSynonyms {
		extraTerms = s.synonyms.Expand(ctx, query, index, s.retrieval.UseLLM, s.retrieval.SynonymLimit)
	}

	candidates := s.retriever.Retrieve(index, query, extraTerms, topM)
	notify(req.Listener, domain.Event{Kind: domain.EventRetrieveDone, Done: len(candidates)})
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrCancelled
	}

	var retrieval domain.RetrievalResult
	if s.retrieval.UseLLM {
		retrieval = s.reranker.Rerank(ctx, index, query, candidates, s.retrieval.RerankK)
	} else {
		k := min(s.retrieval.RerankK, len(candidates))
		retrieval = domain.RetrievalResult{RefIDs: append([]string(nil), candidates[:k]...)}
	}
	notify(req.Listener, domain.Event{Kind: domain.EventRerankDone, Done: len(retrieval.RefIDs)})

	bundle, err := s.composer.Compose(index, query, retrieval.RefIDs)
	if err != nil {
		return nil, err
	}
	notify(req.Listener, domain.Event{Kind: domain.EventPromptReady, Done: bundle.TokenEstimate})

	answer, err := s.generate(ctx, bundle.Prompt, req)
	if err != nil {
		return nil, cancelOr(ctx, err)
	}
	answer = s.maybeTranslate(ctx, answer, req)
	notify(req.Listener, domain.Event{Kind: domain.EventAnswerDone})

	return &driving.AnswerResult{
		Answer:    answer,
		Retrieval: retrieval,
		Bundle:    *bundle,
		Class:     class,
	}, nil
}

// buildIndex resolves the corpus key and consults the cache when one is
// configured. Cache hits are revalidated against fresh content hashes.
func (s *PipelineService) buildIndex(ctx context.Context, adapter driven.CorpusAdapter, req driving.AnswerRequest) (*domain.Index, error) {
	build := func(ctx context.Context) (*domain.Index, error) {
		return s.indexer.Build(ctx, adapter, req.CorpusContext, s.chunkOpts, req.Listener)
	}
	if s.cache == nil {
		return build(ctx)
	}

	key := adapter.IndexKey(req.CorpusContext)
	revalidate := func(ctx context.Context, cached *domain.Index) bool {
		docs, err := adapter.ListDocuments(ctx, req.CorpusContext)
		if err != nil || len(docs) != len(cached.ContentHashes) {
			return false
		}
		for i := range docs {
			if adapter.ContentHash(&docs[i]) != cached.ContentHashes[docs[i].ID] {
				return false
			}
		}
		return true
	}
	return s.cache.GetOrBuild(ctx, key, revalidate, build)
}

// generate streams the answer, forwarding fragments to the listener.
func (s *PipelineService) generate(ctx context.Context, prompt string, req driving.AnswerRequest) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", domain.ErrGeneratorUnavailable)
	}

	opts := driven.PromptOptions{OutputLanguage: req.OutputLanguage}
	stream, err := s.gen.PromptStreaming(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerator, err)
	}

	var sb strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return sb.String(), fmt.Errorf("%w: %v", domain.ErrGenerator, chunk.Err)
		}
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		notify(req.Listener, domain.Event{Kind: domain.EventAnswerChunk, Text: chunk.Text})
	}
	return sb.String(), nil
}

// maybeTranslate routes the finished answer through the translator. A
// failed translation degrades to the untranslated answer with a
// warning; the answer itself is never lost.
func (s *PipelineService) maybeTranslate(ctx context.Context, answer string, req driving.AnswerRequest) string {
	if s.translator == nil || req.OutputLanguage == "" || answer == "" {
		return answer
	}
	if s.translator.CanTranslate(ctx, "", req.OutputLanguage) != driven.AvailabilityReadily {
		return answer
	}
	translated, err := s.translator.Translate(ctx, answer, req.OutputLanguage)
	if err != nil {
		logger.Warn("translate: %v", err)
		notify(req.Listener, domain.Event{Kind: domain.EventWarning, Text: "translation failed, returning original answer"})
		return answer
	}
	return translated
}

// notify delivers an event to a listener, tolerating nil listeners and
// listener panics. Listeners are best-effort by contract.
func notify(listener domain.EventListener, ev domain.Event) {
	if listener == nil {
		return
	}
	defer func() { _ = recover() }()
	listener(ev)
}

// cancelOr maps context cancellation to ErrCancelled, keeping other
// errors unchanged.
func cancelOr(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, domain.ErrCancelled) {
		return domain.ErrCancelled
	}
	return err
}
