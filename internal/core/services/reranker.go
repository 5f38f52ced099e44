package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

// snippetMaxChars bounds the per-candidate excerpt in the rerank prompt.
const snippetMaxChars = 300

// RerankService orders lexical candidates with a single model call.
// Reranking is single-shot: any model or parse failure falls back to
// the lexical order.
type RerankService struct {
	gen     driven.Generator
	prompts driven.PromptStore
}

// NewRerankService creates a reranker.
// The prompts parameter is optional (can be nil).
func NewRerankService(gen driven.Generator, prompts driven.PromptStore) *RerankService {
	return &RerankService{gen: gen, prompts: prompts}
}

// Rerank returns up to rerankK refIds ordered by model priority. On any
// failure the first rerankK candidates are returned unchanged, so the
// result is deterministic for a given candidate list.
func (s *RerankService) Rerank(ctx context.Context, index *domain.Index, query string, candidates []string, rerankK int) domain.RetrievalResult {
	if rerankK <= 0 || rerankK > len(candidates) {
		rerankK = len(candidates)
	}
	fallback := domain.RetrievalResult{RefIDs: append([]string(nil), candidates[:rerankK]...)}
	if len(candidates) == 0 || s.gen == nil {
		return fallback
	}

	out, err := s.gen.Prompt(ctx, s.buildPrompt(index, query, candidates, rerankK), driven.PromptOptions{Temperature: 0})
	if err != nil {
		logger.Warn("rerank: model call failed, keeping lexical order: %v", err)
		return fallback
	}

	refIDs := parseRerankResponse(out, candidates)
	if len(refIDs) == 0 {
		logger.Warn("rerank: unparseable model response, keeping lexical order")
		return fallback
	}
	if len(refIDs) > rerankK {
		refIDs = refIDs[:rerankK]
	}
	return domain.RetrievalResult{RefIDs: refIDs, Rationale: "model-reranked"}
}

func (s *RerankService) buildPrompt(index *domain.Index, query string, candidates []string, rerankK int) string {
	var list strings.Builder
	for n, refID := range candidates {
		kind := index.ResolveRef(refID)
		fmt.Fprintf(&list, "%d. %s [%s] :: %s\n", n+1, refID, kind, candidateSnippet(index, refID))
	}

	template := defaultRerankPrompt
	if s.prompts != nil {
		if loaded, err := s.prompts.Load(driven.PromptRerank); err == nil {
			template = loaded
		}
	}
	return fmt.Sprintf(template, query, strings.TrimRight(list.String(), "\n"), rerankK)
}

// candidateSnippet prefers the reference's summary text and degrades to
// the resolved content.
func candidateSnippet(index *domain.Index, refID string) string {
	for i := range index.Summaries {
		if index.Summaries[i].RefID == refID && index.Summaries[i].Text != "" {
			return truncateChars(index.Summaries[i].Text, snippetMaxChars)
		}
	}
	if chunk, ok := index.Chunks[refID]; ok {
		return truncateChars(chunk.Content, snippetMaxChars)
	}
	return ""
}

// parseRerankResponse extracts refIds from the model reply, dropping
// numbering, bullets, duplicates and anything outside the candidate
// set while preserving reply order.
func parseRerankResponse(out string, candidates []string) []string {
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c] = struct{}{}
	}

	var refIDs []string
	seen := make(map[string]struct{})
	for _, line := range strings.FieldsFunc(out, func(r rune) bool { return r == '\n' || r == ',' }) {
		token := strings.TrimSpace(line)
		token = strings.TrimLeft(token, "0123456789.)- \t")
		token = strings.Trim(token, "\"'`")
		if token == "" {
			continue
		}
		if _, ok := known[token]; !ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		refIDs = append(refIDs, token)
	}
	return refIDs
}

func truncateChars(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const defaultRerankPrompt = `Rank the following candidate passages by how well they answer the query.

Query: %s

Candidates:
%s

Return the %d most relevant reference ids, one per line, most relevant first.
Output only reference ids from the list above, nothing else.`
