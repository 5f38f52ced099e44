package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

const (
	defaultSummaryBatch    = 8
	defaultSummaryMaxChars = 400
	defaultMaxKeyTerms     = 8
	defaultPrefixChars     = 200

	// summaryInputCap bounds the text sent to the model per item.
	summaryInputCap = 4000
)

// summaryItem is one pending summarisation request.
type summaryItem struct {
	refID   string
	kind    domain.SummaryKind
	text    string
	heading string
}

// IndexerService builds an Index from a corpus in four passes: hashing,
// chunking with section derivation, summarisation, and TOC assembly.
type IndexerService struct {
	gen     driven.Generator
	prompts driven.PromptStore
	limiter *rate.Limiter

	batchSize       int
	summaryMaxChars int
	maxKeyTerms     int
	prefixChars     int
}

// NewIndexerService creates an index builder.
// The gen and prompts parameters are optional (can be nil); without a
// generator every summary degrades to a bounded text prefix.
func NewIndexerService(gen driven.Generator, prompts driven.PromptStore) *IndexerService {
	return &IndexerService{
		gen:             gen,
		prompts:         prompts,
		limiter:         rate.NewLimiter(rate.Limit(4), 4),
		batchSize:       defaultSummaryBatch,
		summaryMaxChars: defaultSummaryMaxChars,
		maxKeyTerms:     defaultMaxKeyTerms,
		prefixChars:     defaultPrefixChars,
	}
}

// SetRateLimit bounds summarisation model calls per second.
func (s *IndexerService) SetRateLimit(perSecond float64) {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1)
	}
}

// SetBatchSize bounds how many summaries are requested per batch.
func (s *IndexerService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Build captures the corpus through the adapter and assembles the
// Index. Per-item summarisation failures degrade to text prefixes and
// are reported through emit; only capture failures are fatal.
func (s *IndexerService) Build(ctx context.Context, adapter driven.CorpusAdapter, cctx driven.CorpusContext, opts driven.ChunkOptions, emit domain.EventListener) (*domain.Index, error) {
	docs, err := adapter.ListDocuments(ctx, cctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s documents: %v", domain.ErrAdapter, adapter.Kind(), err)
	}
	logger.Section("Index Build")
	logger.Debug("Corpus %s: %d documents", adapter.Kind(), len(docs))

	index := &domain.Index{
		CorpusKey:     adapter.IndexKey(cctx),
		Documents:     docs,
		Chunks:        make(map[string]domain.Chunk),
		ContentHashes: make(map[string]uint64, len(docs)),
	}

	// Pass 1: content hashes.
	for i := range docs {
		index.ContentHashes[docs[i].ID] = adapter.ContentHash(&docs[i])
	}

	// Pass 2: chunking and section derivation.
	var items []summaryItem
	for i := range docs {
		doc := &docs[i]
		chunks, err := adapter.ChunkDocument(doc, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %v", domain.ErrAdapter, doc.ID, err)
		}
		for _, c := range chunks {
			index.Chunks[c.ID] = c
		}
		sections := deriveSections(doc.ID, chunks)
		index.Sections = append(index.Sections, sections...)

		items = append(items, summaryItem{
			refID:   doc.ID,
			kind:    domain.SummaryGlobal,
			text:    doc.Text,
			heading: doc.Title,
		})
		for _, sec := range sections {
			items = append(items, summaryItem{
				refID:   sec.ID,
				kind:    domain.SummarySection,
				text:    sectionText(index, sec),
				heading: sec.Heading,
			})
		}
		for _, c := range chunks {
			items = append(items, summaryItem{
				refID:   c.ID,
				kind:    domain.SummaryChunk,
				text:    c.Content,
				heading: c.Heading,
			})
		}
	}
	notify(emit, domain.Event{Kind: domain.EventChunkDone, Done: len(index.Chunks)})

	// Pass 3: summarisation in bounded batches.
	index.Summaries = s.summarise(ctx, items, emit)

	// Pass 4: TOC assembly.
	for i := range docs {
		for _, heading := range docs[i].Headings {
			index.TOC = append(index.TOC, domain.TOCEntry{
				Heading: heading,
				Depth:   headingDepth(heading),
			})
		}
	}

	index.BuiltAt = time.Now()
	return index, nil
}

// deriveSections groups consecutive chunks sharing a heading. Runs
// without a heading get a synthesised "Section N" name.
func deriveSections(docID string, chunks []domain.Chunk) []domain.Section {
	var sections []domain.Section
	for _, c := range chunks {
		last := len(sections) - 1
		if last >= 0 && sections[last].Heading == c.Heading && c.Heading != "" {
			sections[last].EndChunk = c.Index
			continue
		}
		if last >= 0 && sections[last].Heading == "" && c.Heading == "" {
			sections[last].EndChunk = c.Index
			continue
		}
		sections = append(sections, domain.Section{
			ID:         fmt.Sprintf("sec-%s-%d", docID, len(sections)+1),
			Heading:    c.Heading,
			DocID:      docID,
			StartChunk: c.Index,
			EndChunk:   c.Index,
		})
	}
	n := 0
	for i := range sections {
		if sections[i].Heading == "" {
			n++
			sections[i].Heading = fmt.Sprintf("Section %d", n)
		}
	}
	return sections
}

// sectionText concatenates the section's raw chunk text, capped for
// summarisation input.
func sectionText(index *domain.Index, sec domain.Section) string {
	var sb strings.Builder
	for _, c := range index.SectionChunks(&sec) {
		if sb.Len() >= summaryInputCap {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Content)
	}
	return truncateChars(sb.String(), summaryInputCap)
}

// summarise resolves every item to a Summary, via the model when one is
// configured and degrading to prefixes otherwise.
func (s *IndexerService) summarise(ctx context.Context, items []summaryItem, emit domain.EventListener) []domain.Summary {
	summaries := make([]domain.Summary, 0, len(items))
	total := len(items)

	for start := 0; start < total; start += s.batchSize {
		end := min(start+s.batchSize, total)
		for _, item := range items[start:end] {
			summaries = append(summaries, s.summariseItem(ctx, item, emit))
		}
		notify(emit, domain.Event{Kind: domain.EventSummaryProgress, Done: end, Total: total})
	}
	return summaries
}

func (s *IndexerService) summariseItem(ctx context.Context, item summaryItem, emit domain.EventListener) domain.Summary {
	if s.gen == nil || strings.TrimSpace(item.text) == "" {
		return s.degrade(item)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return s.degrade(item)
	}
	out, err := s.gen.Prompt(ctx, s.summaryPrompt(item), driven.PromptOptions{Temperature: 0})
	if err != nil {
		logger.Warn("summarise %s: %v", item.refID, err)
		notify(emit, domain.Event{Kind: domain.EventWarning, Text: fmt.Sprintf("summary failed for %s", item.refID)})
		return s.degrade(item)
	}

	text, terms := parseSummaryResponse(out, s.maxKeyTerms)
	if text == "" {
		return s.degrade(item)
	}
	if len(terms) == 0 {
		terms = headingTerms(item.heading)
	}
	return domain.Summary{RefID: item.refID, Kind: item.kind, Text: text, KeyTerms: terms}
}

// degrade substitutes a bounded prefix of the source text. Global
// summaries use the shorter prefix bound so a document summary always
// exists, even as an empty string for an empty document.
func (s *IndexerService) degrade(item summaryItem) domain.Summary {
	bound := s.summaryMaxChars
	if item.kind == domain.SummaryGlobal {
		bound = s.prefixChars
	}
	return domain.Summary{
		RefID:    item.refID,
		Kind:     item.kind,
		Text:     strings.TrimSpace(truncateChars(item.text, bound)),
		KeyTerms: headingTerms(item.heading),
	}
}

func (s *IndexerService) summaryPrompt(item summaryItem) string {
	template := defaultSummarisePrompt
	if s.prompts != nil {
		if loaded, err := s.prompts.Load(driven.PromptSummarise); err == nil {
			template = loaded
		}
	}
	return fmt.Sprintf(template, s.summaryMaxChars, s.maxKeyTerms, truncateChars(item.text, summaryInputCap))
}

// parseSummaryResponse splits the model reply into summary text and the
// trailing "terms:" line.
func parseSummaryResponse(out string, maxTerms int) (string, []string) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var terms []string
	for i := len(lines) - 1; i >= 0; i-- {
		lower := strings.ToLower(strings.TrimSpace(lines[i]))
		if rest, ok := strings.CutPrefix(lower, "terms:"); ok {
			for _, part := range strings.Split(rest, ",") {
				term := strings.TrimSpace(part)
				if term != "" && len(terms) < maxTerms {
					terms = append(terms, term)
				}
			}
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), terms
}

// headingTerms derives key terms from a heading.
func headingTerms(heading string) []string {
	return tokenize(heading)
}

// headingDepth counts leading heading markers, defaulting to 1.
func headingDepth(heading string) int {
	depth := 0
	for _, r := range heading {
		if r != '#' {
			break
		}
		depth++
	}
	if depth == 0 {
		return 1
	}
	return depth
}

const defaultSummarisePrompt = `Summarise the following content in %d characters or less.
Be concise and capture the key points.
On a final line starting with "terms:" list up to %d key search terms, lower-case, comma-separated.

Content:
%s

Summary:`
