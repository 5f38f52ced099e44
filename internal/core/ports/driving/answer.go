package driving

import (
	"context"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// AnswerRequest describes one question over one corpus.
type AnswerRequest struct {
	// Query is the user question.
	Query string

	// Corpus selects the adapter to capture documents from.
	Corpus domain.SourceKind

	// CorpusContext carries adapter parameters and limits.
	CorpusContext driven.CorpusContext

	// OutputLanguage requests the answer in a specific language.
	// Empty means the question's language.
	OutputLanguage string

	// Listener receives progress events. May be nil.
	Listener domain.EventListener
}

// AnswerResult is the outcome of one pipeline invocation.
type AnswerResult struct {
	// Answer is the full generated answer text.
	Answer string

	// Retrieval lists the refIds the answer was grounded on.
	Retrieval domain.RetrievalResult

	// Bundle is the composed prompt that produced the answer.
	Bundle domain.PromptBundle

	// Class is the query classification used for retrieval.
	Class domain.QueryClass
}

// AnswerService answers questions over a selected corpus.
// Cancellation is observed through ctx at every suspension point.
type AnswerService interface {
	// Answer runs the full retrieval pipeline and returns the final
	// answer. Streaming fragments are delivered through the request's
	// event listener.
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error)
}
