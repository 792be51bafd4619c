package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/config"
	"github.com/LLLin000/paper-fetcher/internal/history"
	"github.com/LLLin000/paper-fetcher/internal/sources"
)

var (
	searchLimit int
	searchYear  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search papers by keyword",
	Long: `Search for papers by keyword via Semantic Scholar.

Set S2_API_KEY (environment or .env) to raise rate limits. Queries are
recorded in the local search history; see 'paperfetch history'.

Examples:
  paperfetch search "protein folding"
  paperfetch search "CRISPR" --limit 20 --year 2020-2024`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", sources.DefaultSearchLimit, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchYear, "year", "", "Publication year range (e.g., 2020-2024)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	query := args[0]
	cfg := mustLoadConfig()
	logger := newLogger()

	s2 := sources.NewSemanticScholar(
		sources.WithSemanticScholarAPIKey(cfg.S2APIKey),
		sources.WithSemanticScholarLogger(logger),
	)

	records, err := s2.Search(context.Background(), query, searchLimit, searchYear)
	if err != nil {
		if sources.IsRateLimited(err) {
			exitWithError(ExitError, "Semantic Scholar rate limit hit; retry later or set S2_API_KEY")
		}
		exitWithError(ExitError, "search: %v", err)
	}

	recordSearch(cfg, logger, query, len(records))

	if humanOutput {
		printRecordSummaryHuman(records)
	} else {
		outputJSON(records)
	}
}

// recordSearch appends the query to the local history. History failures
// are logged, never fatal.
func recordSearch(cfg *config.Config, logger zerolog.Logger, query string, count int) {
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Warn().Err(err).Msg("opening search history")
		return
	}
	defer store.Close()
	if err := store.Add(query, "semanticscholar", count); err != nil {
		logger.Warn().Err(err).Msg("recording search history")
	}
}
