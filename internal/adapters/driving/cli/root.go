package cli

import (
	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/core/ports/driving"
	"github.com/pagelens/pagelens/internal/logger"
)

var version = "dev"

// Services are injected by main before Execute. Commands guard against
// a nil service so a partially wired binary fails with a clear message.
var (
	answerService  driving.AnswerService
	corpusAdapters []driven.CorpusAdapter
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "pagelens",
	Short: "Question answering over local browser corpora",
	Long: `Pagelens answers questions about the page you are reading and the
rest of your local browsing context (notes, history, bookmarks,
downloads, pinned snippets) using a local model.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetAnswerService injects the pipeline the ask command drives.
func SetAnswerService(s driving.AnswerService) {
	answerService = s
}

// SetCorpusAdapters injects the adapters the capture command inspects.
func SetCorpusAdapters(adapters []driven.CorpusAdapter) {
	corpusAdapters = adapters
}

// SetVersion overrides the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
