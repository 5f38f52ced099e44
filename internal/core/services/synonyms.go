package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

// staticSynonyms seeds expansion without a model. Keys and values are
// lower-case.
var staticSynonyms = map[string][]string{
	"error":    {"failure", "fault", "bug"},
	"delete":   {"remove", "erase"},
	"fix":      {"repair", "resolve"},
	"fast":     {"quick", "rapid"},
	"slow":     {"sluggish"},
	"buy":      {"purchase"},
	"price":    {"cost"},
	"start":    {"begin", "launch"},
	"stop":     {"halt", "end"},
	"image":    {"picture", "photo"},
	"settings": {"preferences", "options", "configuration"},
	"install":  {"setup"},
	"login":    {"sign-in", "signin"},
	"password": {"passphrase", "credentials"},
	"update":   {"upgrade"},
	"document": {"file", "page"},
	"search":   {"find", "lookup"},
}

// SynonymService expands a query with additional search terms.
type SynonymService struct {
	gen     driven.Generator
	prompts driven.PromptStore
}

// NewSynonymService creates a synonym expander.
// Both parameters are optional (can be nil); without them expansion is
// limited to the static table.
func NewSynonymService(gen driven.Generator, prompts driven.PromptStore) *SynonymService {
	return &SynonymService{gen: gen, prompts: prompts}
}

// Expand returns up to limit additional terms for the query,
// deduplicated against the query's own tokens. Model-suggested terms
// are constrained to the key terms present in the index summaries.
func (s *SynonymService) Expand(ctx context.Context, query string, index *domain.Index, useLLM bool, limit int) []string {
	if limit <= 0 {
		return nil
	}
	queryTokens := tokenizeRaw(query)
	seen := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		seen[tok] = struct{}{}
	}

	var out []string
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}

	for _, tok := range queryTokens {
		for _, syn := range staticSynonyms[tok] {
			add(syn)
		}
	}

	if useLLM && s.gen != nil && index != nil {
		for _, term := range s.modelTerms(ctx, query, index) {
			add(term)
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// modelTerms asks the generator for expansion terms, restricted to the
// key terms the index summaries carry. On any failure the static
// output stands alone.
func (s *SynonymService) modelTerms(ctx context.Context, query string, index *domain.Index) []string {
	allowed := make(map[string]struct{})
	var allowedList []string
	for _, sum := range index.Summaries {
		for _, term := range sum.KeyTerms {
			term = strings.ToLower(term)
			if _, ok := allowed[term]; !ok {
				allowed[term] = struct{}{}
				allowedList = append(allowedList, term)
			}
		}
	}
	if len(allowedList) == 0 {
		return nil
	}

	template := defaultSynonymPrompt
	if s.prompts != nil {
		if loaded, err := s.prompts.Load(driven.PromptSynonyms); err == nil {
			template = loaded
		}
	}
	prompt := fmt.Sprintf(template, len(allowedList), query, strings.Join(allowedList, ", "))

	out, err := s.gen.Prompt(ctx, prompt, driven.PromptOptions{Temperature: 0})
	if err != nil {
		logger.Debug("synonyms: model expansion failed: %v", err)
		return nil
	}

	var terms []string
	for _, part := range strings.FieldsFunc(out, func(r rune) bool { return r == ',' || r == '\n' }) {
		term := strings.ToLower(strings.TrimSpace(part))
		if _, ok := allowed[term]; ok {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		logger.Debug("synonyms: no parseable model terms, using static only")
	}
	return terms
}

const defaultSynonymPrompt = `Suggest up to %d synonyms or closely related terms for this search query.
Only use terms from the allowed list. Return them comma-separated on one line, nothing else.

Query: %s
Allowed terms: %s`
