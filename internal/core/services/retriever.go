package services

import (
	"sort"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/logger"
)

// Scoring weights for lexical retrieval.
const (
	textMatchWeight    = 2.0
	headingMatchWeight = 3.0
	tocBonus           = 1.0
	chunkDamping       = 0.9
)

// stopWords are removed from query tokens before scoring. Summary key
// terms are matched as-is; only the query side is filtered.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"why": {}, "will": {}, "with": {},
}

// tokenizeRaw lower-cases and splits on punctuation, keeping
// word-internal hyphens and underscores. Stop words are kept.
func tokenizeRaw(s string) []string {
	s = strings.ToLower(s)
	isWord := func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r > 127
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return !isWord(r) })

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-_")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// tokenize is tokenizeRaw with stop words removed.
func tokenize(s string) []string {
	raw := tokenizeRaw(s)
	out := raw[:0:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// scoredRef is one candidate reference with its aggregated score.
type scoredRef struct {
	refID string
	kind  domain.RefKind
	score float64
}

// RetrieverService scores query tokens against index summaries.
type RetrieverService struct{}

// NewRetrieverService creates a lexical retriever.
func NewRetrieverService() *RetrieverService {
	return &RetrieverService{}
}

// Retrieve returns up to topM refIds ranked by lexical score. The
// extra terms are scored exactly like query tokens.
func (s *RetrieverService) Retrieve(index *domain.Index, query string, extraTerms []string, topM int) []string {
	tokens := tokenize(query)
	for _, term := range extraTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && !containsToken(tokens, term) {
			tokens = append(tokens, term)
		}
	}
	if len(tokens) == 0 || topM <= 0 {
		return nil
	}
	logger.Debug("retrieve: %d tokens against %d summaries", len(tokens), len(index.Summaries))

	toc := make(map[string]struct{}, len(index.TOC))
	for _, entry := range index.TOC {
		toc[normalizeHeading(entry.Heading)] = struct{}{}
	}

	// Aggregate per refId by the maximum score across its summaries.
	best := make(map[string]float64)
	for i := range index.Summaries {
		sum := &index.Summaries[i]
		score := scoreSummary(index, sum, tokens, toc)
		if score <= 0 {
			continue
		}
		if prev, ok := best[sum.RefID]; !ok || score > prev {
			best[sum.RefID] = score
		}
	}

	ranked := make([]scoredRef, 0, len(best))
	for refID, score := range best {
		ranked = append(ranked, scoredRef{refID: refID, kind: index.ResolveRef(refID), score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ra, rb := kindRank(a.kind), kindRank(b.kind); ra != rb {
			return ra < rb
		}
		if len(a.refID) != len(b.refID) {
			return len(a.refID) < len(b.refID)
		}
		return a.refID < b.refID
	})

	if len(ranked) > topM {
		ranked = ranked[:topM]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.refID
	}
	return out
}

func scoreSummary(index *domain.Index, sum *domain.Summary, tokens []string, toc map[string]struct{}) float64 {
	text := strings.ToLower(sum.Text)

	score := 0.0
	for _, tok := range tokens {
		if len(tok) >= 2 && strings.Contains(text, tok) {
			score += textMatchWeight
		}
	}

	if sum.Kind == domain.SummarySection {
		if sec := index.SectionByID(sum.RefID); sec != nil {
			heading := strings.ToLower(sec.Heading)
			for _, tok := range tokens {
				if strings.Contains(heading, tok) {
					score += headingMatchWeight
				}
			}
			// The TOC bonus refines ranking among sections that
			// already matched a token; it never lifts an unmatched
			// section into the candidate set, or every TOC-listed
			// section would qualify for every query.
			if _, ok := toc[normalizeHeading(sec.Heading)]; ok && score > 0 {
				score += tocBonus
			}
		}
	}

	if sum.Kind == domain.SummaryChunk {
		score *= chunkDamping
	}
	return score
}

// kindRank orders tied scores: sections beat documents beat chunks.
func kindRank(kind domain.RefKind) int {
	switch kind {
	case domain.RefSection:
		return 0
	case domain.RefDocument:
		return 1
	case domain.RefChunk:
		return 2
	}
	return 3
}

// normalizeHeading strips heading markers so TOC entries captured
// without markers still match chunker-attributed headings.
func normalizeHeading(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimLeft(h, "# ")))
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}
