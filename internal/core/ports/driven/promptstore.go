package driven

// Prompt template names understood by a PromptStore.
const (
	// PromptSummarise produces a bounded summary with key terms.
	// Placeholders: %d max chars, %d max terms, %s content.
	PromptSummarise = "summarise"

	// PromptSynonyms expands a query with additional terms.
	// Placeholders: %d limit, %s query, %s allowed terms.
	PromptSynonyms = "synonyms"

	// PromptRerank orders candidate references by relevance.
	// Placeholders: %s query, %s candidate list, %d how many to return.
	PromptRerank = "rerank"

	// PromptAnswer is the final answer envelope.
	// Placeholders: %s question, %s passages.
	PromptAnswer = "answer"
)

// PromptStore supplies prompt templates, typically user-editable files
// with embedded defaults.
type PromptStore interface {
	// Load returns the template for name.
	Load(name string) (string, error)
}
