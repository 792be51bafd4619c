package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Long: `Show the local search history, newest first.

Examples:
  paperfetch history
  paperfetch history --limit 25
  paperfetch history search crispr
  paperfetch history clear`,
	Args: cobra.NoArgs,
	Run:  runHistoryRecent,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Find past searches by keyword",
	Args:  cobra.ExactArgs(1),
	Run:   runHistorySearch,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the search history",
	Args:  cobra.NoArgs,
	Run:   runHistoryClear,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum entries to show")
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// mustOpenHistory opens the history database, exits on error.
// The caller is responsible for calling Close() on the returned store.
func mustOpenHistory() *history.Store {
	cfg := mustLoadConfig()
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		exitWithError(ExitError, "opening history: %v", err)
	}
	return store
}

func runHistoryRecent(cmd *cobra.Command, args []string) {
	store := mustOpenHistory()
	defer store.Close()

	records, err := store.Recent(historyLimit)
	if err != nil {
		exitWithError(ExitError, "reading history: %v", err)
	}
	printHistory(records)
}

func runHistorySearch(cmd *cobra.Command, args []string) {
	store := mustOpenHistory()
	defer store.Close()

	records, err := store.Search(args[0])
	if err != nil {
		exitWithError(ExitError, "searching history: %v", err)
	}
	printHistory(records)
}

func runHistoryClear(cmd *cobra.Command, args []string) {
	store := mustOpenHistory()
	defer store.Close()

	if err := store.Clear(); err != nil {
		exitWithError(ExitError, "clearing history: %v", err)
	}

	if humanOutput {
		outputHuman("History cleared\n")
	} else {
		outputJSON(StatusResponse{Status: "cleared"})
	}
}

func printHistory(records []history.Record) {
	if humanOutput {
		for _, r := range records {
			fmt.Printf("%s  %-15s %3d results  %s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04"), r.Source, r.ResultCount, r.Query)
		}
		return
	}
	outputJSON(records)
}
