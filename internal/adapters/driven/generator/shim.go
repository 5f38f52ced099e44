// Package generator provides wrappers around Generator implementations:
// a streaming shim for models that only answer whole prompts, and a
// retry wrapper for the "output language not set" error class.
package generator

import (
	"context"
	"strings"

	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// NonStreaming is the reduced contract of a generator that cannot
// stream.
type NonStreaming interface {
	Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// streamShim upgrades a non-streaming generator to the streaming
// contract by emitting the whole answer as a one-element sequence.
type streamShim struct {
	inner NonStreaming
}

// Ensure streamShim implements the interface.
var _ driven.Generator = (*streamShim)(nil)

// WrapNonStreaming adapts a non-streaming generator to the strict
// streaming contract.
func WrapNonStreaming(g NonStreaming) driven.Generator {
	return &streamShim{inner: g}
}

func (s *streamShim) Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error) {
	return s.inner.Prompt(ctx, prompt, opts)
}

// PromptStreaming defers the inner call so the sequence stays lazy: the
// channel is returned immediately and the single element (or a terminal
// error chunk) arrives once the inner generator answers.
func (s *streamShim) PromptStreaming(ctx context.Context, prompt string, opts driven.PromptOptions) (<-chan driven.StreamChunk, error) {
	out := make(chan driven.StreamChunk, 1)
	go func() {
		defer close(out)
		answer, err := s.inner.Prompt(ctx, prompt, opts)
		if err != nil {
			out <- driven.StreamChunk{Err: err}
			return
		}
		out <- driven.StreamChunk{Text: answer}
	}()
	return out, nil
}

// Clone returns a shim over the same underlying generator. The
// underlying session is stateless by the NonStreaming contract.
func (s *streamShim) Clone() driven.Generator {
	return &streamShim{inner: s.inner}
}

func (s *streamShim) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *streamShim) Close() error {
	return s.inner.Close()
}

// languageRetry wraps a generator with a single retry for prompts that
// fail because the model session has no output language configured.
// Any other failure surfaces immediately.
type languageRetry struct {
	driven.Generator
}

// WithLanguageRetry wraps g with the single permitted retry.
func WithLanguageRetry(g driven.Generator) driven.Generator {
	return &languageRetry{Generator: g}
}

// isLanguageError matches the "output language not set" error class.
func isLanguageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "output language")
}

func (r *languageRetry) Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error) {
	answer, err := r.Generator.Prompt(ctx, prompt, opts)
	if isLanguageError(err) {
		return r.Generator.Prompt(ctx, prompt, opts)
	}
	return answer, err
}

func (r *languageRetry) PromptStreaming(ctx context.Context, prompt string, opts driven.PromptOptions) (<-chan driven.StreamChunk, error) {
	out, err := r.Generator.PromptStreaming(ctx, prompt, opts)
	if isLanguageError(err) {
		return r.Generator.PromptStreaming(ctx, prompt, opts)
	}
	return out, err
}

// Clone preserves the retry wrapper on cloned sessions.
func (r *languageRetry) Clone() driven.Generator {
	return &languageRetry{Generator: r.Generator.Clone()}
}
