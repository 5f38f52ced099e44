package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

var (
	captureFile   string
	captureURL    string
	captureDepth  int
	captureChunks bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a page and print its documents",
	Long: `Runs page capture on an HTML file and prints the extracted
documents. Useful for inspecting what the page adapter sees.`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureFile, "file", "f", "", "HTML file holding the captured page")
	captureCmd.Flags().StringVar(&captureURL, "url", "", "URL of the captured page")
	captureCmd.Flags().IntVar(&captureDepth, "depth", 0, "capture depth for same-origin sub-documents")
	captureCmd.Flags().BoolVar(&captureChunks, "chunks", false, "also print the chunks of each document")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, _ []string) error {
	adapter := adapterFor(domain.SourcePage)
	if adapter == nil {
		return errors.New("page adapter not configured")
	}
	if captureFile == "" {
		return errors.New("--file is required")
	}

	html, err := os.ReadFile(captureFile)
	if err != nil {
		return fmt.Errorf("failed to read page file: %w", err)
	}
	pageURL := captureURL
	if pageURL == "" {
		abs, err := filepath.Abs(captureFile)
		if err != nil {
			abs = captureFile
		}
		pageURL = "file://" + abs
	}

	cctx := driven.CorpusContext{
		PageURL:      pageURL,
		PageHTML:     string(html),
		CaptureDepth: captureDepth,
	}
	docs, err := adapter.ListDocuments(cmd.Context(), cctx)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	cmd.Printf("Captured %d document(s) from %s\n", len(docs), pageURL)
	for i := range docs {
		doc := &docs[i]
		cmd.Println()
		cmd.Printf("  [%d] %s\n", i+1, doc.Title)
		cmd.Printf("      id: %s  chars: %d  headings: %d\n", doc.ID, len(doc.Text), len(doc.Headings))
		if !captureChunks {
			continue
		}
		chunks, err := adapter.ChunkDocument(doc, driven.ChunkOptions{})
		if err != nil {
			return fmt.Errorf("chunking failed: %w", err)
		}
		for _, ch := range chunks {
			cmd.Printf("      chunk %s  chars: %d  heading: %s\n", ch.ID, len(ch.Content), ch.Heading)
		}
	}
	return nil
}

func adapterFor(kind domain.SourceKind) driven.CorpusAdapter {
	for _, a := range corpusAdapters {
		if a.Kind() == kind {
			return a
		}
	}
	return nil
}
