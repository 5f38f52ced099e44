package services

import (
	"context"
	"strings"
	"sync"

	"github.com/pagelens/pagelens/internal/chunker"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// fakeGen answers prompts by looking up the first rule whose substring
// matches the prompt. Unmatched prompts return defaultAnswer.
type fakeGen struct {
	mu            sync.Mutex
	rules         []genRule
	defaultAnswer string
	pingErr       error
	promptErr     error
	prompts       []string
}

type genRule struct {
	contains string
	answer   string
}

func (g *fakeGen) respond(contains, answer string) {
	g.rules = append(g.rules, genRule{contains: contains, answer: answer})
}

func (g *fakeGen) Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.promptErr != nil {
		return "", g.promptErr
	}
	for _, r := range g.rules {
		if strings.Contains(prompt, r.contains) {
			return r.answer, nil
		}
	}
	return g.defaultAnswer, nil
}

func (g *fakeGen) PromptStreaming(ctx context.Context, prompt string, opts driven.PromptOptions) (<-chan driven.StreamChunk, error) {
	answer, err := g.Prompt(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	out := make(chan driven.StreamChunk, 2)
	half := len(answer) / 2
	if half > 0 {
		out <- driven.StreamChunk{Text: answer[:half]}
	}
	out <- driven.StreamChunk{Text: answer[half:]}
	close(out)
	return out, nil
}

func (g *fakeGen) Clone() driven.Generator        { return g }
func (g *fakeGen) Ping(ctx context.Context) error { return g.pingErr }
func (g *fakeGen) Close() error                   { return nil }

func (g *fakeGen) promptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// memAdapter serves in-memory documents for pipeline tests.
type memAdapter struct {
	kind     domain.SourceKind
	key      string
	docs     []domain.Document
	listErr  error
	chunking driven.ChunkOptions
}

func (a *memAdapter) Kind() domain.SourceKind { return a.kind }

func (a *memAdapter) IndexKey(cctx driven.CorpusContext) string { return a.key }

func (a *memAdapter) ListDocuments(ctx context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.docs, nil
}

func (a *memAdapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

func (a *memAdapter) FullText(ctx context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

func (a *memAdapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	maxChars := opts.MaxChunkChars
	if maxChars == 0 {
		maxChars = a.chunking.MaxChunkChars
	}
	if maxChars == 0 {
		maxChars = 4000
	}
	minChars := opts.MinChunkChars
	if minChars == 0 {
		minChars = a.chunking.MinChunkChars
	}
	c := chunker.New(
		chunker.WithMaxChunkChars(maxChars),
		chunker.WithOverlapChars(opts.OverlapChars),
		chunker.WithMinChunkChars(minChars),
		chunker.WithHeadings(doc.Headings),
	)
	chunks := c.Split(doc.Text)
	for i := range chunks {
		chunks[i].DocID = doc.ID
	}
	return chunks, nil
}

// eventRecorder collects pipeline events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) listener() domain.EventListener {
	return func(ev domain.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}
}

func (r *eventRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *eventRecorder) textOf(kind domain.EventKind) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, ev := range r.events {
		if ev.Kind == kind {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

// testIndex assembles a small index by hand for retriever, reranker and
// composer tests.
func testIndex() *domain.Index {
	idx := &domain.Index{
		CorpusKey: "test",
		Documents: []domain.Document{
			{ID: "doc-1", Title: "Install Guide", Source: domain.SourcePage},
		},
		Chunks: map[string]domain.Chunk{
			"chunk-0": {ID: "chunk-0", DocID: "doc-1", Heading: "# Installation", Content: "Run the installer and follow the wizard.", Size: 40, Index: 1},
			"chunk-1": {ID: "chunk-1", DocID: "doc-1", Heading: "# Installation", Content: "Restart after the installer finishes.", Size: 37, Index: 2},
			"chunk-2": {ID: "chunk-2", DocID: "doc-1", Heading: "# Troubleshooting", Content: "If the installer fails, check the log file.", Size: 43, Index: 3},
		},
		Sections: []domain.Section{
			{ID: "sec-doc-1-1", Heading: "# Installation", DocID: "doc-1", StartChunk: 1, EndChunk: 2},
			{ID: "sec-doc-1-2", Heading: "# Troubleshooting", DocID: "doc-1", StartChunk: 3, EndChunk: 3},
		},
		TOC: []domain.TOCEntry{
			{Heading: "Installation", Depth: 1},
			{Heading: "Troubleshooting", Depth: 1},
		},
		ContentHashes: map[string]uint64{"doc-1": 1},
	}
	idx.Summaries = []domain.Summary{
		{RefID: "doc-1", Kind: domain.SummaryGlobal, Text: "Guide to installing the product.", KeyTerms: []string{"install", "guide"}},
		{RefID: "sec-doc-1-1", Kind: domain.SummarySection, Text: "Steps to install and restart.", KeyTerms: []string{"install", "restart"}},
		{RefID: "sec-doc-1-2", Kind: domain.SummarySection, Text: "What to do when installation fails.", KeyTerms: []string{"troubleshooting", "log"}},
		{RefID: "chunk-0", Kind: domain.SummaryChunk, Text: "Run the installer wizard.", KeyTerms: []string{"installer", "wizard"}},
		{RefID: "chunk-1", Kind: domain.SummaryChunk, Text: "Restart after installing.", KeyTerms: []string{"restart"}},
		{RefID: "chunk-2", Kind: domain.SummaryChunk, Text: "Check the log when the installer fails.", KeyTerms: []string{"log", "fails"}},
	}
	return idx
}
