package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/core/domain"
)

func rerankIndex() *domain.Index {
	return &domain.Index{
		Documents: []domain.Document{{ID: "d"}},
		Chunks: map[string]domain.Chunk{
			"a": {ID: "a", DocID: "d", Content: "alpha content", Index: 1},
			"b": {ID: "b", DocID: "d", Content: "bravo content", Index: 2},
			"c": {ID: "c", DocID: "d", Content: "charlie content", Index: 3},
		},
		Summaries: []domain.Summary{
			{RefID: "a", Kind: domain.SummaryChunk, Text: "about alpha"},
			{RefID: "b", Kind: domain.SummaryChunk, Text: "about bravo"},
			{RefID: "c", Kind: domain.SummaryChunk, Text: "about charlie"},
		},
	}
}

func TestRerank_ModelOrderWins(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "c\na\nb"}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 2)

	assert.Equal(t, []string{"c", "a"}, got.RefIDs)
	assert.Equal(t, "model-reranked", got.Rationale)
}

func TestRerank_NonJSONResponseFallsBack(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "{this is not :: valid output"}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 2)

	assert.Equal(t, []string{"a", "b"}, got.RefIDs)
	assert.Empty(t, got.Rationale)
}

func TestRerank_FallbackIsDeterministic(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "garbage every time"}
	svc := NewRerankService(gen, nil)

	first := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 2)
	second := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 2)

	assert.Equal(t, first.RefIDs, second.RefIDs)
	assert.Equal(t, []string{"a", "b"}, first.RefIDs)
}

func TestRerank_ModelErrorFallsBack(t *testing.T) {
	gen := &fakeGen{promptErr: assert.AnError}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"b", "a"}, 2)

	assert.Equal(t, []string{"b", "a"}, got.RefIDs)
}

func TestRerank_UnknownRefsDropped(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "z\nb\nq\na"}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 3)

	assert.Equal(t, []string{"b", "a"}, got.RefIDs)
}

func TestRerank_DuplicatesDropped(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "b\nb\na"}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b"}, 2)

	assert.Equal(t, []string{"b", "a"}, got.RefIDs)
}

func TestRerank_NumberedResponseParsed(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "1. c\n2) b\n3 - a"}
	svc := NewRerankService(gen, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 3)

	assert.Equal(t, []string{"c", "b", "a"}, got.RefIDs)
}

func TestRerank_EmptyCandidates(t *testing.T) {
	svc := NewRerankService(&fakeGen{}, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", nil, 2)

	assert.Empty(t, got.RefIDs)
}

func TestRerank_NoGenerator(t *testing.T) {
	svc := NewRerankService(nil, nil)

	got := svc.Rerank(context.Background(), rerankIndex(), "q", []string{"a", "b", "c"}, 2)

	assert.Equal(t, []string{"a", "b"}, got.RefIDs)
}

func TestRerank_PromptListsCandidates(t *testing.T) {
	gen := &fakeGen{defaultAnswer: "a"}
	svc := NewRerankService(gen, nil)

	svc.Rerank(context.Background(), rerankIndex(), "my query", []string{"a", "b"}, 2)

	require.Equal(t, 1, gen.promptCount())
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "my query")
	assert.Contains(t, prompt, "1. a [chunk] :: about alpha")
	assert.Contains(t, prompt, "2. b [chunk] :: about bravo")
}
