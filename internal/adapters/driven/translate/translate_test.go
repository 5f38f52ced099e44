package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

type fakeGenerator struct {
	answer     string
	promptErr  error
	pingErr    error
	lastPrompt string
}

func (f *fakeGenerator) Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error) {
	f.lastPrompt = prompt
	return f.answer, f.promptErr
}

func (f *fakeGenerator) PromptStreaming(ctx context.Context, prompt string, opts driven.PromptOptions) (<-chan driven.StreamChunk, error) {
	out := make(chan driven.StreamChunk, 1)
	out <- driven.StreamChunk{Text: f.answer}
	close(out)
	return out, nil
}

func (f *fakeGenerator) Clone() driven.Generator { return f }

func (f *fakeGenerator) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeGenerator) Close() error { return nil }

func TestTranslate_UsesFixedTemplate(t *testing.T) {
	gen := &fakeGenerator{answer: "Guten Tag"}
	tr := New(gen)

	out, err := tr.Translate(context.Background(), "Good day", "de")
	require.NoError(t, err)
	assert.Equal(t, "Guten Tag", out)
	assert.Contains(t, gen.lastPrompt, "Translate the following text to de")
	assert.Contains(t, gen.lastPrompt, "Good day")
}

func TestTranslate_EmptyTextPassesThrough(t *testing.T) {
	gen := &fakeGenerator{}
	tr := New(gen)

	out, err := tr.Translate(context.Background(), "   ", "fr")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
	assert.Empty(t, gen.lastPrompt, "generator should not be called for blank text")
}

func TestTranslate_GeneratorFailure(t *testing.T) {
	tr := New(&fakeGenerator{promptErr: errors.New("down")})

	_, err := tr.Translate(context.Background(), "hello", "es")
	assert.ErrorIs(t, err, domain.ErrTranslatorUnavailable)
}

func TestCanTranslate(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		pingErr error
		want    driven.Availability
	}{
		{name: "reachable pair", source: "en", target: "de", want: driven.AvailabilityReadily},
		{name: "unknown source", source: "", target: "de", want: driven.AvailabilityReadily},
		{name: "same language", source: "en", target: "EN", want: driven.AvailabilityNo},
		{name: "generator down", source: "en", target: "de", pingErr: errors.New("refused"), want: driven.AvailabilityNo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(&fakeGenerator{pingErr: tt.pingErr})
			got := tr.CanTranslate(context.Background(), tt.source, tt.target)
			assert.Equal(t, tt.want, got)
		})
	}
}
