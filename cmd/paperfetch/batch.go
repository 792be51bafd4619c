package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/orchestrator"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

var (
	batchFile        string
	batchFormat      string
	batchConcurrency int
	batchForce       bool
	batchNoProxy     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [identifiers...]",
	Short: "Fetch multiple papers",
	Long: `Fetch several papers in one run.

Identifiers come from the arguments, from --file (one per line, blank
lines and # comments ignored), or both. Items are fetched concurrently
and one failure never aborts the rest. Batch runs never prompt for a
proxy login; run 'paperfetch login' first if proxy access is needed.

Examples:
  paperfetch batch 10.1038/nature12373 2301.08745
  paperfetch batch --file dois.txt --concurrency 5`,
	Run: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "File with one identifier per line")
	batchCmd.Flags().StringVar(&batchFormat, "format", "text", "Output format: text, markdown, or json")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", orchestrator.DefaultBatchConcurrency, "Concurrent fetches")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "Bypass the cache and refetch")
	batchCmd.Flags().BoolVar(&batchNoProxy, "no-proxy", false, "Skip the institutional proxy layer")
	rootCmd.AddCommand(batchCmd)
}

// BatchItemResponse is one entry in the batch JSON output.
type BatchItemResponse struct {
	Input  string             `json:"input"`
	Result *paper.FetchResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) {
	format, err := paper.ParseFormat(batchFormat)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	inputs := append([]string(nil), args...)
	if batchFile != "" {
		fromFile, err := readIdentifierFile(batchFile)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		inputs = append(inputs, fromFile...)
	}
	if len(inputs) == 0 {
		exitWithError(ExitError, "no identifiers given; pass arguments or --file")
	}

	cfg := mustLoadConfig()
	orch := mustBuildOrchestrator(cfg, !batchNoProxy)

	items := orch.FetchBatch(context.Background(), inputs, batchConcurrency, orchestrator.FetchOptions{
		Force:  batchForce,
		Format: format,
	})

	failures := 0
	responses := make([]BatchItemResponse, 0, len(items))
	for _, item := range items {
		resp := BatchItemResponse{Input: item.Input, Result: item.Result}
		if item.Err != nil {
			resp.Error = item.Err.Error()
			failures++
		}
		responses = append(responses, resp)
	}

	if humanOutput {
		for _, resp := range responses {
			if resp.Error != "" {
				fmt.Printf("FAIL %s: %s\n", resp.Input, resp.Error)
				continue
			}
			fmt.Printf("ok   %s (%s)\n", resp.Input, resp.Result.Layer)
		}
		outputHuman("\n%d fetched, %d failed\n", len(responses)-failures, failures)
	} else {
		outputJSON(responses)
	}

	if failures == len(responses) {
		os.Exit(ExitError)
	}
}

// readIdentifierFile reads one identifier per line, ignoring blanks and
// # comments.
func readIdentifierFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading identifier file: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading identifier file: %w", err)
	}
	return ids, nil
}
