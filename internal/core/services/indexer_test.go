package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

func headedDoc() domain.Document {
	text := "# Intro\n" + strings.Repeat("lorem ", 300) + "\n# Results\n" + strings.Repeat("ipsum ", 300)
	return domain.Document{
		ID:       "doc-1",
		Title:    "Paper",
		Headings: []string{"Intro", "Results"},
		Text:     text,
		Source:   domain.SourcePage,
	}
}

func buildWith(t *testing.T, svc *IndexerService, docs []domain.Document, emit domain.EventListener) *domain.Index {
	t.Helper()
	adapter := &memAdapter{kind: domain.SourcePage, key: "page:test", docs: docs}
	index, err := svc.Build(context.Background(), adapter, driven.CorpusContext{},
		driven.ChunkOptions{MaxChunkChars: 800, MinChunkChars: 100}, emit)
	require.NoError(t, err)
	return index
}

func TestBuild_EmptyDocument(t *testing.T) {
	svc := NewIndexerService(nil, nil)

	index := buildWith(t, svc, []domain.Document{{ID: "doc-1", Title: "Blank", Source: domain.SourcePage}}, nil)

	assert.Len(t, index.Documents, 1)
	assert.Empty(t, index.Chunks)

	// Even an empty document keeps its mandatory global summary.
	require.Len(t, index.Summaries, 1)
	assert.Equal(t, domain.SummaryGlobal, index.Summaries[0].Kind)
	assert.Equal(t, "doc-1", index.Summaries[0].RefID)
	assert.Equal(t, "", index.Summaries[0].Text)
}

func TestBuild_SectionsFollowHeadings(t *testing.T) {
	svc := NewIndexerService(nil, nil)

	index := buildWith(t, svc, []domain.Document{headedDoc()}, nil)

	require.GreaterOrEqual(t, len(index.Chunks), 2)
	require.GreaterOrEqual(t, len(index.Sections), 2)

	var headings []string
	for _, sec := range index.Sections {
		headings = append(headings, sec.Heading)
	}
	assert.Contains(t, headings, "# Intro")
	assert.Contains(t, headings, "# Results")

	// Section ranges are ordered and non-overlapping.
	for i, sec := range index.Sections {
		assert.LessOrEqual(t, sec.StartChunk, sec.EndChunk, "section %s", sec.ID)
		if i > 0 {
			assert.Greater(t, sec.StartChunk, index.Sections[i-1].EndChunk)
		}
	}
}

func TestBuild_SynthesisedSectionNames(t *testing.T) {
	svc := NewIndexerService(nil, nil)
	doc := domain.Document{ID: "d", Title: "Plain", Text: strings.Repeat("plain text without headings ", 60), Source: domain.SourcePage}

	index := buildWith(t, svc, []domain.Document{doc}, nil)

	require.NotEmpty(t, index.Sections)
	assert.Equal(t, "Section 1", index.Sections[0].Heading)
}

func TestBuild_ContentHashesDeterministic(t *testing.T) {
	svc := NewIndexerService(nil, nil)
	doc := headedDoc()

	first := buildWith(t, svc, []domain.Document{doc}, nil)
	second := buildWith(t, svc, []domain.Document{doc}, nil)

	assert.Equal(t, first.ContentHashes, second.ContentHashes)
	assert.NotZero(t, first.ContentHashes["doc-1"])
}

func TestBuild_DegradedSummariesWithoutGenerator(t *testing.T) {
	svc := NewIndexerService(nil, nil)

	index := buildWith(t, svc, []domain.Document{headedDoc()}, nil)

	var global *domain.Summary
	for i := range index.Summaries {
		if index.Summaries[i].Kind == domain.SummaryGlobal {
			global = &index.Summaries[i]
		}
	}
	require.NotNil(t, global)
	assert.True(t, strings.HasPrefix(headedDoc().Text, global.Text))
	assert.LessOrEqual(t, len(global.Text), defaultPrefixChars)

	// One summary per document, per section and per chunk.
	want := 1 + len(index.Sections) + len(index.Chunks)
	assert.Len(t, index.Summaries, want)
}

func TestBuild_ModelSummariesParsed(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "A concise summary.\nterms: lorem, ipsum"}
	svc := NewIndexerService(gen, nil)
	svc.SetRateLimit(10000)

	index := buildWith(t, svc, []domain.Document{headedDoc()}, nil)

	require.NotEmpty(t, index.Summaries)
	for _, sum := range index.Summaries {
		assert.Equal(t, "A concise summary.", sum.Text)
		assert.Equal(t, []string{"lorem", "ipsum"}, sum.KeyTerms)
	}
}

func TestBuild_SummaryFailureDegradesWithWarning(t *testing.T) {
	gen := &fakeGen{promptErr: assert.AnError}
	svc := NewIndexerService(gen, nil)
	svc.SetRateLimit(10000)
	rec := &eventRecorder{}

	index := buildWith(t, svc, []domain.Document{headedDoc()}, rec.listener())

	// All summaries degrade to prefixes; warnings are emitted.
	for _, sum := range index.Summaries {
		assert.NotContains(t, sum.Text, "concise")
	}
	assert.Contains(t, rec.kinds(), domain.EventWarning)
}

func TestBuild_ProgressEvents(t *testing.T) {
	svc := NewIndexerService(nil, nil)
	rec := &eventRecorder{}

	index := buildWith(t, svc, []domain.Document{headedDoc()}, rec.listener())

	kinds := rec.kinds()
	assert.Contains(t, kinds, domain.EventChunkDone)
	assert.Contains(t, kinds, domain.EventSummaryProgress)

	// The final progress event covers every summary item.
	var last domain.Event
	for _, ev := range rec.events {
		if ev.Kind == domain.EventSummaryProgress {
			last = ev
		}
	}
	assert.Equal(t, len(index.Summaries), last.Total)
	assert.Equal(t, last.Total, last.Done)
}

func TestBuild_TOCFromHeadings(t *testing.T) {
	svc := NewIndexerService(nil, nil)

	index := buildWith(t, svc, []domain.Document{headedDoc()}, nil)

	require.Len(t, index.TOC, 2)
	assert.Equal(t, "Intro", index.TOC[0].Heading)
	assert.Equal(t, 1, index.TOC[0].Depth)
}

func TestHeadingDepth(t *testing.T) {
	assert.Equal(t, 1, headingDepth("Intro"))
	assert.Equal(t, 2, headingDepth("## Deep"))
	assert.Equal(t, 3, headingDepth("### Deeper"))
	assert.Equal(t, 1, headingDepth(""))
}

func TestDeriveSections_GroupsConsecutiveHeadings(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "c1", Heading: "A", Index: 1},
		{ID: "c2", Heading: "A", Index: 2},
		{ID: "c3", Heading: "B", Index: 3},
		{ID: "c4", Heading: "", Index: 4},
		{ID: "c5", Heading: "", Index: 5},
	}

	sections := deriveSections("d", chunks)

	require.Len(t, sections, 3)
	assert.Equal(t, domain.Section{ID: "sec-d-1", Heading: "A", DocID: "d", StartChunk: 1, EndChunk: 2}, sections[0])
	assert.Equal(t, "B", sections[1].Heading)
	assert.Equal(t, domain.Section{ID: "sec-d-3", Heading: "Section 1", DocID: "d", StartChunk: 4, EndChunk: 5}, sections[2])
}

func TestBuild_AdapterErrorIsFatal(t *testing.T) {
	svc := NewIndexerService(nil, nil)
	adapter := &memAdapter{kind: domain.SourcePage, key: "k", listErr: assert.AnError}

	_, err := svc.Build(context.Background(), adapter, driven.CorpusContext{}, driven.ChunkOptions{}, nil)

	assert.ErrorIs(t, err, domain.ErrAdapter)
}
