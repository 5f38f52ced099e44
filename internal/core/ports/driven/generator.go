package driven

import "context"

// PromptOptions configures a single generation request.
type PromptOptions struct {
	// OutputLanguage is a BCP 47 tag the answer should be produced in.
	// Empty means the model default.
	OutputLanguage string

	// MaxTokens caps the generated length. Zero means the model default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// StreamChunk is one fragment of a streamed generation.
type StreamChunk struct {
	// Text is the answer fragment.
	Text string

	// Err terminates the stream when non-nil. A stream ends with
	// either a final zero chunk after channel close, or one chunk
	// carrying Err.
	Err error
}

// Generator produces text completions. It is treated as an opaque
// service: the core detects unavailability with Ping and fails fast.
//
// Implementations may include Ollama, an OpenAI-compatible server, or a
// test fake.
type Generator interface {
	// Prompt produces a complete answer for the prompt.
	Prompt(ctx context.Context, prompt string, opts PromptOptions) (string, error)

	// PromptStreaming produces the answer as a lazy sequence of
	// fragments. The returned channel is closed when the answer is
	// complete or after a chunk carrying a terminal error.
	PromptStreaming(ctx context.Context, prompt string, opts PromptOptions) (<-chan StreamChunk, error)

	// Clone returns an independent session sharing the same model and
	// configuration. Cloned sessions do not share conversation state.
	Clone() Generator

	// Ping verifies the model is reachable. Used at pipeline setup to
	// fail fast when the generator is absent.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Availability describes whether a translation pair can be served.
type Availability string

// Translation availabilities.
const (
	AvailabilityReadily       Availability = "readily"
	AvailabilityAfterDownload Availability = "after-download"
	AvailabilityNo            Availability = "no"
)

// Translator converts text between languages. When no native
// translator is configured the core degrades to routing translation
// through the generator with a fixed template.
type Translator interface {
	// CanTranslate reports whether the source/target pair is servable.
	CanTranslate(ctx context.Context, source, target string) Availability

	// Translate converts text to the target language, a BCP 47 tag.
	Translate(ctx context.Context, text, target string) (string, error)
}
