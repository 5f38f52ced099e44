// Package ollama provides a Generator adapter using the Ollama HTTP
// API, with true token streaming over its NDJSON response format.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Generator produces completions using Ollama.
type Generator struct {
	client  *http.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format. In
// streaming mode one object arrives per line.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// New creates a new Ollama generator.
func New(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Generator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Prompt produces a complete answer for the prompt.
func (g *Generator) Prompt(ctx context.Context, prompt string, opts driven.PromptOptions) (string, error) {
	resp, err := g.send(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// PromptStreaming produces the answer as a lazy sequence of fragments.
// Fragments are decoded from Ollama's newline-delimited JSON stream.
func (g *Generator) PromptStreaming(ctx context.Context, prompt string, opts driven.PromptOptions) (<-chan driven.StreamChunk, error) {
	resp, err := g.send(ctx, prompt, opts, true)
	if err != nil {
		return nil, err
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var genResp generateResponse
			if err := json.Unmarshal(line, &genResp); err != nil {
				sendChunk(ctx, out, driven.StreamChunk{Err: fmt.Errorf("decode stream: %w", err)})
				return
			}
			if genResp.Response != "" {
				if !sendChunk(ctx, out, driven.StreamChunk{Text: genResp.Response}) {
					return
				}
			}
			if genResp.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sendChunk(ctx, out, driven.StreamChunk{Err: fmt.Errorf("read stream: %w", err)})
		}
	}()

	return out, nil
}

// sendChunk delivers a chunk unless the caller has gone away.
func sendChunk(ctx context.Context, out chan<- driven.StreamChunk, c driven.StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// send issues the generate request. The output language is enforced by
// an instruction suffix since Ollama has no language parameter.
func (g *Generator) send(ctx context.Context, prompt string, opts driven.PromptOptions, stream bool) (*http.Response, error) {
	if opts.OutputLanguage != "" {
		prompt += "\n\nRespond in language: " + opts.OutputLanguage
	}

	reqBody := generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: stream,
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// Clone returns an independent session with the same configuration.
// Ollama sessions are stateless, so a shallow copy suffices.
func (g *Generator) Clone() driven.Generator {
	clone := *g
	return &clone
}

// Ping validates the service is reachable by checking /api/tags.
// This is a lightweight check that validates connectivity without
// running inference.
func (g *Generator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (g *Generator) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
