// Package translate implements the Translator port on top of a text
// generator. It is the fallback path used when no native translation
// backend is configured: a fixed template routes the text through the
// generator and the result is returned verbatim.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

const translatePrompt = "Translate the following text to %s. " +
	"Output only the translated text, nothing else.\n\n%s"

// GeneratorTranslator routes translation through a Generator with a
// fixed-template prompt.
type GeneratorTranslator struct {
	gen driven.Generator
}

// New returns a generator-backed translator.
func New(gen driven.Generator) *GeneratorTranslator {
	return &GeneratorTranslator{gen: gen}
}

// CanTranslate reports readily for any pair as long as the backing
// generator answers a ping. A generator-backed translator has no notion
// of language packs, so after-download is never reported.
func (t *GeneratorTranslator) CanTranslate(ctx context.Context, source, target string) driven.Availability {
	if source != "" && strings.EqualFold(source, target) {
		return driven.AvailabilityNo
	}
	if err := t.gen.Ping(ctx); err != nil {
		logger.Debug("translate: generator unreachable: %v", err)
		return driven.AvailabilityNo
	}
	return driven.AvailabilityReadily
}

// Translate converts text to the target language.
func (t *GeneratorTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" || target == "" {
		return text, nil
	}
	prompt := fmt.Sprintf(translatePrompt, target, text)
	out, err := t.gen.Prompt(ctx, prompt, driven.PromptOptions{Temperature: 0})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranslatorUnavailable, err)
	}
	return strings.TrimSpace(out), nil
}
