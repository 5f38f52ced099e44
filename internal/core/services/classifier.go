package services

import (
	"context"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

// ClassifierService assigns an intent and a breadth to a raw query.
// Classification is heuristic; a generator may optionally be consulted
// for queries the heuristic leaves at the fact default.
type ClassifierService struct {
	gen driven.Generator
}

// NewClassifierService creates a query classifier.
// The gen parameter is optional (can be nil); when set, ambiguous
// queries are classified by the model.
func NewClassifierService(gen driven.Generator) *ClassifierService {
	return &ClassifierService{gen: gen}
}

// Classify derives the query class from token patterns.
func (s *ClassifierService) Classify(ctx context.Context, query string) domain.QueryClass {
	intent := heuristicIntent(query)

	if intent == IntentAmbiguous && s.gen != nil {
		if modelIntent, ok := s.consultModel(ctx, query); ok {
			intent = modelIntent
		}
	}
	if intent == IntentAmbiguous {
		intent = domain.IntentFact
	}

	breadth := domain.BreadthNarrow
	if intent == domain.IntentComparison {
		breadth = domain.BreadthWide
	}
	return domain.QueryClass{Intent: intent, Breadth: breadth}
}

// IntentAmbiguous marks a query no heuristic pattern matched.
// It never leaves the classifier.
const IntentAmbiguous domain.Intent = ""

func heuristicIntent(query string) domain.Intent {
	toks := tokenizeRaw(query)
	has := func(words ...string) bool {
		for _, tok := range toks {
			for _, w := range words {
				if tok == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("define", "definition"):
		return domain.IntentDefinition
	case has("how"):
		return domain.IntentHowTo
	case has("compare", "vs", "versus", "difference"):
		return domain.IntentComparison
	case has("quote", "cite", "citation") || strings.Contains(strings.ToLower(query), "exact words"):
		return domain.IntentQuote
	}
	return IntentAmbiguous
}

// consultModel asks the generator for a one-word intent. The reply must
// match one of the five intents exactly or it is discarded.
func (s *ClassifierService) consultModel(ctx context.Context, query string) (domain.Intent, bool) {
	prompt := "Classify this question as exactly one word out of: fact, definition, howto, comparison, quote.\n\nQuestion: " +
		query + "\n\nAnswer with the single word only."
	out, err := s.gen.Prompt(ctx, prompt, driven.PromptOptions{Temperature: 0})
	if err != nil {
		logger.Debug("classifier: model consult failed: %v", err)
		return IntentAmbiguous, false
	}
	intent := domain.Intent(strings.ToLower(strings.TrimSpace(out)))
	if !intent.Valid() {
		logger.Debug("classifier: discarding model intent %q", out)
		return IntentAmbiguous, false
	}
	return intent, true
}
