package services

import (
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
	"github.com/pagelens/pagelens/internal/tokens"
)

// sectionTextCap bounds the concatenated chunk text of one section
// before budget fitting.
const sectionTextCap = 6000

// noSourcesMarker appears in the prompt when no passage was selected.
const noSourcesMarker = "[no sources available]"

// passage is one resolved reference ready for inclusion.
type passage struct {
	refID    string
	title    string
	heading  string
	text     string
	chunkIDs []string
}

// ComposerService assembles the final bounded prompt.
type ComposerService struct {
	budget  tokens.Budget
	est     tokens.Estimator
	prompts driven.PromptStore
}

// NewComposerService creates a prompt composer.
// The prompts parameter is optional (can be nil).
func NewComposerService(budget tokens.Budget, est tokens.Estimator, prompts driven.PromptStore) *ComposerService {
	if est == nil {
		est = tokens.NewEstimator(tokens.DefaultCharsPerToken)
	}
	return &ComposerService{budget: budget, est: est, prompts: prompts}
}

// Compose resolves refIds to passages, fits them greedily into the
// token budget in the given order, and emits the enveloped prompt.
// ErrBudgetExceeded is returned only when candidates exist but not even
// the smallest one fits.
func (s *ComposerService) Compose(index *domain.Index, question string, refIDs []string) (*domain.PromptBundle, error) {
	passages := make([]passage, 0, len(refIDs))
	for _, refID := range refIDs {
		if p, ok := resolvePassage(index, refID); ok {
			passages = append(passages, p)
		}
	}

	sizes := make([]int, len(passages))
	for i, p := range passages {
		sizes[i] = len(p.text)
	}
	taken, dropped := s.budget.Fit(s.est, sizes)

	selected := passages[:taken]
	if taken == 0 && len(passages) > 0 {
		// The greedy prefix is empty; fall back to the smallest
		// candidate that fits so the prompt is minimally grounded.
		if i := smallestFitting(s.budget, s.est, sizes); i >= 0 {
			selected = passages[i : i+1]
			dropped = true
		} else {
			return nil, domain.ErrBudgetExceeded
		}
	}

	var body strings.Builder
	var chunkIDs []string
	if len(selected) == 0 {
		body.WriteString(noSourcesMarker)
	} else {
		for n, p := range selected {
			header := p.title
			if p.heading != "" {
				header += " > " + p.heading
			}
			fmt.Fprintf(&body, "=== Passage %d: %s ===\n%s\n=== End passage %d ===\n\n", n+1, header, p.text, n+1)
			chunkIDs = append(chunkIDs, p.chunkIDs...)
		}
	}

	template := defaultAnswerPrompt
	if s.prompts != nil {
		if loaded, err := s.prompts.Load(driven.PromptAnswer); err == nil {
			template = loaded
		}
	}
	prompt := fmt.Sprintf(template, question, strings.TrimRight(body.String(), "\n"))
	logger.Debug("compose: %d/%d passages, truncated=%t", len(selected), len(passages), dropped)

	return &domain.PromptBundle{
		Prompt:           prompt,
		SelectedChunkIDs: chunkIDs,
		TokenEstimate:    s.est(len(prompt)),
		Truncated:        dropped,
	}, nil
}

// resolvePassage maps a refId to its best text: section to concatenated
// chunks under the section cap, chunk to its content, document to its
// first chunk.
func resolvePassage(index *domain.Index, refID string) (passage, bool) {
	switch index.ResolveRef(refID) {
	case domain.RefChunk:
		chunk := index.Chunks[refID]
		doc := index.DocumentByID(chunk.DocID)
		return passage{
			refID:    refID,
			title:    docTitle(doc),
			heading:  chunk.Heading,
			text:     chunk.Content,
			chunkIDs: []string{chunk.ID},
		}, true

	case domain.RefSection:
		sec := index.SectionByID(refID)
		doc := index.DocumentByID(sec.DocID)
		var sb strings.Builder
		var ids []string
		for _, chunk := range index.SectionChunks(sec) {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			remaining := sectionTextCap - sb.Len()
			if remaining <= 0 {
				break
			}
			content := chunk.Content
			if len(content) > remaining {
				content = content[:remaining]
			}
			sb.WriteString(content)
			ids = append(ids, chunk.ID)
		}
		return passage{
			refID:    refID,
			title:    docTitle(doc),
			heading:  sec.Heading,
			text:     sb.String(),
			chunkIDs: ids,
		}, true

	case domain.RefDocument:
		doc := index.DocumentByID(refID)
		chunks := index.DocumentChunks(refID)
		if len(chunks) == 0 {
			return passage{}, false
		}
		return passage{
			refID:    refID,
			title:    docTitle(doc),
			heading:  chunks[0].Heading,
			text:     chunks[0].Content,
			chunkIDs: []string{chunks[0].ID},
		}, true
	}
	logger.Debug("compose: unresolvable refId %q", refID)
	return passage{}, false
}

// smallestFitting returns the index of the smallest size within the
// available budget, or -1.
func smallestFitting(budget tokens.Budget, est tokens.Estimator, sizes []int) int {
	best := -1
	for i, size := range sizes {
		if est(size) > budget.Available() {
			continue
		}
		if best < 0 || size < sizes[best] {
			best = i
		}
	}
	return best
}

func docTitle(doc *domain.Document) string {
	if doc == nil || doc.Title == "" {
		return "Untitled"
	}
	return doc.Title
}

const defaultAnswerPrompt = `You are a careful assistant. Answer the question using only the provided passages.

Question: %s

%s

Answer from the passages above. If they do not contain the answer, say that you cannot answer from the available sources. Do not invent facts.`
