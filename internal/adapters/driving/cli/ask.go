package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/core/ports/driving"
	"github.com/pagelens/pagelens/internal/logger"
)

var (
	askCorpus      string
	askPageFile    string
	askPageURL     string
	askLang        string
	askNoteIDs     []string
	askDays        int
	askMaxResults  int
	askDepth       int
	askSnippets    []string
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question over a local corpus",
	Long: `Answers a question using retrieval over the selected corpus.
The answer streams to stdout as it is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCorpus, "corpus", "c", "page", "corpus to query (page, note, history, bookmark, download, ctx)")
	askCmd.Flags().StringVarP(&askPageFile, "file", "f", "", "HTML file holding the captured page")
	askCmd.Flags().StringVar(&askPageURL, "url", "", "URL of the captured page")
	askCmd.Flags().StringVarP(&askLang, "lang", "l", "", "answer language (default: the question's language)")
	askCmd.Flags().StringSliceVar(&askNoteIDs, "note", nil, "restrict the note corpus to specific note ids")
	askCmd.Flags().IntVar(&askDays, "days", 0, "history lookback window in days")
	askCmd.Flags().IntVar(&askMaxResults, "max-results", 0, "cap on history/bookmark/download rows")
	askCmd.Flags().IntVar(&askDepth, "depth", 0, "page capture depth for same-origin sub-documents")
	askCmd.Flags().StringArrayVar(&askSnippets, "snippet", nil, "pinned text snippet for the ctx corpus (repeatable, \"title: body\")")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the source refIds after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	kind := domain.SourceKind(askCorpus)
	if !kind.Valid() {
		return fmt.Errorf("unknown corpus %q", askCorpus)
	}

	cctx, err := buildCorpusContext(kind)
	if err != nil {
		return err
	}

	listener := func(ev domain.Event) {
		switch ev.Kind {
		case domain.EventAnswerChunk:
			cmd.Print(ev.Text)
		case domain.EventSummaryProgress:
			logger.Debug("summarised %d/%d", ev.Done, ev.Total)
		case domain.EventWarning:
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", ev.Text)
		}
	}

	res, err := answerService.Answer(cmd.Context(), driving.AnswerRequest{
		Query:          args[0],
		Corpus:         kind,
		CorpusContext:  cctx,
		OutputLanguage: askLang,
		Listener:       listener,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	cmd.Println()

	if askShowSources && len(res.Retrieval.RefIDs) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, ref := range res.Retrieval.RefIDs {
			cmd.Printf("  %s\n", ref)
		}
	}
	return nil
}

func buildCorpusContext(kind domain.SourceKind) (driven.CorpusContext, error) {
	cctx := driven.CorpusContext{
		NoteIDs:      askNoteIDs,
		HistoryDays:  askDays,
		MaxResults:   askMaxResults,
		CaptureDepth: askDepth,
	}

	switch kind {
	case domain.SourcePage:
		if askPageFile == "" {
			return cctx, errors.New("--file is required for the page corpus")
		}
		html, err := os.ReadFile(askPageFile)
		if err != nil {
			return cctx, fmt.Errorf("failed to read page file: %w", err)
		}
		cctx.PageHTML = string(html)
		cctx.PageURL = askPageURL
		if cctx.PageURL == "" {
			abs, err := filepath.Abs(askPageFile)
			if err != nil {
				abs = askPageFile
			}
			cctx.PageURL = "file://" + abs
		}
	case domain.SourceContext:
		if len(askSnippets) == 0 {
			return cctx, errors.New("--snippet is required for the ctx corpus")
		}
		for _, raw := range askSnippets {
			cctx.Snippets = append(cctx.Snippets, parseSnippet(raw))
		}
	}
	return cctx, nil
}

// parseSnippet splits "title: body" into a text snippet. Without a
// separator the whole string becomes the body.
func parseSnippet(raw string) driven.Snippet {
	s := driven.Snippet{Kind: driven.SnippetText, Text: raw}
	if title, body, ok := strings.Cut(raw, ":"); ok {
		s.Title = strings.TrimSpace(title)
		s.Text = strings.TrimSpace(body)
	}
	return s
}
