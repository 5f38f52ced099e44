package domain

import "time"

// SummaryKind distinguishes the granularity of a summary.
type SummaryKind string

// Summary granularities.
const (
	SummaryGlobal  SummaryKind = "global"
	SummarySection SummaryKind = "section"
	SummaryChunk   SummaryKind = "chunk"
)

// Summary is a model-produced short description of a document, section or
// chunk, together with key terms.
type Summary struct {
	// RefID resolves to a document (global), section or chunk in the
	// same index.
	RefID string

	// Kind is the summary granularity.
	Kind SummaryKind

	// Text is the summary text. Degraded summaries hold a bounded
	// prefix of the source text instead.
	Text string

	// KeyTerms are extracted search terms, lower-cased.
	KeyTerms []string
}

// Section groups consecutive chunks of one document under one heading.
// Section ranges are disjoint and contiguous in chunk index order.
type Section struct {
	// ID is a stable section identifier, e.g. "sec-doc1-2".
	ID string

	// Heading is the shared heading, or a synthesised "Section N".
	Heading string

	// DocID references the owning Document.
	DocID string

	// StartChunk and EndChunk are inclusive 1-based chunk indexes.
	StartChunk int
	EndChunk   int
}

// TOCEntry is a detected heading with its depth, used as a boost signal
// during retrieval.
type TOCEntry struct {
	Heading string
	Depth   int
}

// Index is the compact searchable artefact built from a corpus for one
// invocation.
type Index struct {
	// CorpusKey is the deterministic cache key for the corpus.
	CorpusKey string

	// Documents in adapter order.
	Documents []Document

	// Sections across all documents.
	Sections []Section

	// Chunks by chunk ID.
	Chunks map[string]Chunk

	// Summaries in build order.
	Summaries []Summary

	// TOC lists headings in source order.
	TOC []TOCEntry

	// ContentHashes maps document ID to its content fingerprint,
	// used for cache revalidation.
	ContentHashes map[string]uint64

	// BuiltAt is when the index build completed.
	BuiltAt time.Time
}

// SectionByID returns the section with the given id, or nil.
func (ix *Index) SectionByID(id string) *Section {
	for i := range ix.Sections {
		if ix.Sections[i].ID == id {
			return &ix.Sections[i]
		}
	}
	return nil
}

// DocumentByID returns the document with the given id, or nil.
func (ix *Index) DocumentByID(id string) *Document {
	for i := range ix.Documents {
		if ix.Documents[i].ID == id {
			return &ix.Documents[i]
		}
	}
	return nil
}

// SectionChunks returns the chunks of a section in index order.
func (ix *Index) SectionChunks(sec *Section) []Chunk {
	if sec == nil {
		return nil
	}
	var out []Chunk
	for _, c := range ix.Chunks {
		if c.DocID == sec.DocID && c.Index >= sec.StartChunk && c.Index <= sec.EndChunk {
			out = append(out, c)
		}
	}
	sortChunksByIndex(out)
	return out
}

// DocumentChunks returns all chunks of a document in index order.
func (ix *Index) DocumentChunks(docID string) []Chunk {
	var out []Chunk
	for _, c := range ix.Chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	sortChunksByIndex(out)
	return out
}

func sortChunksByIndex(chunks []Chunk) {
	// Insertion sort; sections are small.
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && chunks[j-1].Index > chunks[j].Index; j-- {
			chunks[j-1], chunks[j] = chunks[j], chunks[j-1]
		}
	}
}

// RefKind classifies what a refId resolves to within an index.
type RefKind string

// Ref resolution kinds.
const (
	RefDocument RefKind = "document"
	RefSection  RefKind = "section"
	RefChunk    RefKind = "chunk"
	RefUnknown  RefKind = "unknown"
)

// ResolveRef classifies a refId against this index.
func (ix *Index) ResolveRef(refID string) RefKind {
	if _, ok := ix.Chunks[refID]; ok {
		return RefChunk
	}
	if ix.SectionByID(refID) != nil {
		return RefSection
	}
	if ix.DocumentByID(refID) != nil {
		return RefDocument
	}
	return RefUnknown
}

// TotalChars returns the combined character length of all chunks.
// The cache uses it to enforce its per-entry budget.
func (ix *Index) TotalChars() int {
	total := 0
	for _, c := range ix.Chunks {
		total += c.Size
	}
	return total
}

// RetrievalResult is an ordered list of refIds selected for answering,
// with an optional model-provided rationale.
type RetrievalResult struct {
	RefIDs    []string
	Rationale string
}

// PromptBundle is the composed prompt ready for generation.
type PromptBundle struct {
	// Prompt is the full prompt text.
	Prompt string

	// SelectedChunkIDs lists the chunk ids whose content was included.
	SelectedChunkIDs []string

	// TokenEstimate is the estimated token count of Prompt.
	TokenEstimate int

	// Truncated is true when at least one candidate passage was dropped
	// to honour the token budget.
	Truncated bool
}
