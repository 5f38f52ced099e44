package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/core/ports/driving"
)

type fakeAnswerService struct {
	req    driving.AnswerRequest
	result *driving.AnswerResult
	err    error
	chunks []string
}

func (f *fakeAnswerService) Answer(_ context.Context, req driving.AnswerRequest) (*driving.AnswerResult, error) {
	f.req = req
	if req.Listener != nil {
		for _, c := range f.chunks {
			req.Listener(domain.Event{Kind: domain.EventAnswerChunk, Text: c})
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func resetAskFlags() {
	askCorpus = "page"
	askPageFile = ""
	askPageURL = ""
	askLang = ""
	askNoteIDs = nil
	askDays = 0
	askMaxResults = 0
	askDepth = 0
	askSnippets = nil
	askShowSources = false
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAskCmd_RequiresService(t *testing.T) {
	resetAskFlags()
	answerService = nil

	_, err := runCLI(t, "ask", "what is this page about")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestAskCmd_RejectsUnknownCorpus(t *testing.T) {
	resetAskFlags()
	answerService = &fakeAnswerService{}
	defer func() { answerService = nil }()

	_, err := runCLI(t, "ask", "question", "--corpus", "mailbox")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown corpus")
}

func TestAskCmd_PageCorpusRequiresFile(t *testing.T) {
	resetAskFlags()
	answerService = &fakeAnswerService{}
	defer func() { answerService = nil }()

	_, err := runCLI(t, "ask", "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file is required")
}

func TestAskCmd_StreamsAnswerAndSources(t *testing.T) {
	resetAskFlags()
	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte("<html><body><p>hi</p></body></html>"), 0o600))

	svc := &fakeAnswerService{
		chunks: []string{"The page ", "describes installation."},
		result: &driving.AnswerResult{
			Answer:    "The page describes installation.",
			Retrieval: domain.RetrievalResult{RefIDs: []string{"sec-doc-1-1", "chunk-0"}},
		},
	}
	answerService = svc
	defer func() { answerService = nil }()

	out, err := runCLI(t, "ask", "how do I install it", "--file", page, "--sources", "--lang", "de")

	require.NoError(t, err)
	assert.Contains(t, out, "The page describes installation.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "sec-doc-1-1")

	assert.Equal(t, "how do I install it", svc.req.Query)
	assert.Equal(t, domain.SourcePage, svc.req.Corpus)
	assert.Equal(t, "de", svc.req.OutputLanguage)
	assert.Contains(t, svc.req.CorpusContext.PageHTML, "<p>hi</p>")
	assert.Contains(t, svc.req.CorpusContext.PageURL, "file://")
}

func TestAskCmd_CtxCorpusNeedsSnippets(t *testing.T) {
	resetAskFlags()
	answerService = &fakeAnswerService{}
	defer func() { answerService = nil }()

	_, err := runCLI(t, "ask", "question", "--corpus", "ctx")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--snippet is required")
}

func TestAskCmd_ForwardsSnippets(t *testing.T) {
	resetAskFlags()
	svc := &fakeAnswerService{result: &driving.AnswerResult{Answer: "ok"}}
	answerService = svc
	defer func() { answerService = nil }()

	_, err := runCLI(t, "ask", "question", "--corpus", "ctx",
		"--snippet", "Release notes: v2 ships tomorrow",
		"--snippet", "plain body without a title")

	require.NoError(t, err)
	require.Len(t, svc.req.CorpusContext.Snippets, 2)
	assert.Equal(t, driven.Snippet{Kind: driven.SnippetText, Title: "Release notes", Text: "v2 ships tomorrow"}, svc.req.CorpusContext.Snippets[0])
	assert.Equal(t, "plain body without a title", svc.req.CorpusContext.Snippets[1].Text)
	assert.Empty(t, svc.req.CorpusContext.Snippets[1].Title)
}

func TestParseSnippet(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		title string
		text  string
	}{
		{"titled", "Notes: remember the milk", "Notes", "remember the milk"},
		{"untitled", "just a body", "", "just a body"},
		{"empty title", ": body only", "", "body only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parseSnippet(tt.raw)
			assert.Equal(t, driven.SnippetText, s.Kind)
			assert.Equal(t, tt.title, s.Title)
			assert.Equal(t, tt.text, s.Text)
		})
	}
}
