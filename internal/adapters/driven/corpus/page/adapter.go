// Package page captures the visible rendered text of the active web
// page from its HTML, including same-origin sub-documents, and presents
// it as a single-document corpus.
package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/pagelens/pagelens/internal/chunker"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.CorpusAdapter = (*Adapter)(nil)

// Default chunking parameters for page content.
const (
	defaultMaxChunkChars = 4000
	defaultMinChunkChars = 200
)

// Adapter is the active-page corpus adapter.
type Adapter struct{}

// New creates a page adapter.
func New() *Adapter {
	return &Adapter{}
}

// Kind returns the corpus kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourcePage
}

// IndexKey returns a deterministic cache key for the page corpus.
// The key is case-preserving: URLs differing only in case are distinct
// documents.
func (a *Adapter) IndexKey(cctx driven.CorpusContext) string {
	return "page:" + cctx.PageURL
}

// ListDocuments captures the page as one document. Capture failure is
// fatal for this corpus.
func (a *Adapter) ListDocuments(_ context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	capRes, err := capture(cctx.PageHTML, cctx.CaptureDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: capture page %q: %v", domain.ErrAdapter, cctx.PageURL, err)
	}

	text := capRes.text
	truncated := false
	if cctx.MaxTotalChars > 0 && len(text) > cctx.MaxTotalChars {
		text = text[:cctx.MaxTotalChars]
		truncated = true
	}

	doc := domain.Document{
		ID:        documentID(cctx.PageURL),
		Title:     capRes.title,
		URL:       cctx.PageURL,
		Language:  capRes.language,
		Headings:  capRes.headings,
		Text:      text,
		SizeBytes: len(text),
		Source:    domain.SourcePage,
		Extra: map[string]any{
			"skippedIframes": capRes.skippedIframes,
		},
	}
	if truncated {
		doc.Extra["truncated"] = true
	}
	if doc.Title == "" {
		doc.Title = cctx.PageURL
	}

	return []domain.Document{doc}, nil
}

// documentID derives a stable id from the page URL. Repeated captures
// of the same page must produce the same id, or cached index
// revalidation can never match content hashes across invocations.
func documentID(pageURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL)).String()
}

// ContentHash computes the document fingerprint.
func (a *Adapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText returns the captured text. The page is captured in memory,
// so this is a no-op.
func (a *Adapter) FullText(_ context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

// ChunkDocument splits the page text at heading and paragraph
// boundaries.
func (a *Adapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	c := chunker.New(
		chunker.WithMaxChunkChars(pick(opts.MaxChunkChars, defaultMaxChunkChars)),
		chunker.WithOverlapChars(opts.OverlapChars),
		chunker.WithMinChunkChars(pick(opts.MinChunkChars, defaultMinChunkChars)),
		chunker.WithHeadings(doc.Headings),
	)

	chunks := c.Split(doc.Text)
	for i := range chunks {
		chunks[i].DocID = doc.ID
	}
	return chunks, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// captureResult holds the outcome of one page capture.
type captureResult struct {
	title          string
	language       string
	text           string
	headings       []string
	skippedIframes int
}

// capture parses the HTML and walks it as a visible-text visitor.
func capture(rawHTML string, depth int) (*captureResult, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	res := &captureResult{}
	var sb strings.Builder
	walk(root, &sb, res, depth)

	res.text = tidy(sb.String())
	return res, nil
}

// skippedElements never contribute visible text.
var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
	"svg": {}, "canvas": {}, "audio": {}, "video": {}, "img": {},
	"object": {}, "embed": {},
}

// blockElements force a line break around their content.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "tr": {}, "table": {}, "ul": {}, "ol": {},
	"section": {}, "article": {}, "header": {}, "footer": {}, "nav": {},
	"blockquote": {}, "pre": {}, "br": {}, "hr": {}, "main": {}, "aside": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

func walk(n *html.Node, sb *strings.Builder, res *captureResult, depth int) {
	switch n.Type {
	case html.TextNode:
		if t := collapseSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
		return

	case html.ElementNode:
		name := n.Data

		if _, skip := skippedElements[name]; skip {
			return
		}
		if hidden(n) {
			return
		}

		switch name {
		case "html":
			if res.language == "" {
				res.language = attr(n, "lang")
			}
		case "title":
			if res.title == "" {
				res.title = strings.TrimSpace(textContent(n))
			}
			return
		case "iframe":
			captureIframe(n, sb, res, depth)
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			heading := strings.TrimSpace(textContent(n))
			if heading != "" {
				res.headings = append(res.headings, heading)
				sb.WriteString("\n")
				sb.WriteString(heading)
				sb.WriteString("\n")
			}
			return
		}

		_, block := blockElements[name]
		if block {
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, sb, res, depth)
		}
		if block {
			sb.WriteString("\n")
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb, res, depth)
	}
}

// captureIframe descends into srcdoc sub-documents (same-origin by
// construction) and counts cross-origin frames it cannot read.
func captureIframe(n *html.Node, sb *strings.Builder, res *captureResult, depth int) {
	srcdoc := attr(n, "srcdoc")
	if srcdoc == "" {
		if attr(n, "src") != "" {
			res.skippedIframes++
		}
		return
	}
	if depth <= 0 {
		res.skippedIframes++
		return
	}

	sub, err := capture(srcdoc, depth-1)
	if err != nil {
		res.skippedIframes++
		return
	}

	sb.WriteString("\n")
	sb.WriteString(sub.text)
	sb.WriteString("\n")
	res.headings = append(res.headings, sub.headings...)
	res.skippedIframes += sub.skippedIframes
}

// hidden reports whether an element is excluded from rendering.
func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidy collapses runs of blank lines and trims line edges.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
