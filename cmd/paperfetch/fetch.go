package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/orchestrator"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

var (
	fetchForce   bool
	fetchFormat  string
	fetchNoProxy bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <identifier>",
	Short: "Fetch a paper's full text and metadata",
	Long: `Fetch a paper by DOI, arXiv ID, PMID, PMCID, or article URL.

Open access sources are tried first, then the institutional proxy
(when one is configured), then metadata-only. A browser login may be
required the first time the proxy is used.

Examples:
  paperfetch fetch 10.1038/nature12373
  paperfetch fetch 2301.08745
  paperfetch fetch 38123456 --format markdown
  paperfetch fetch https://doi.org/10.1126/science.1259855 --force`,
	Args: cobra.ExactArgs(1),
	Run:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Bypass the cache and refetch")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "text", "Output format: text, markdown, or json")
	fetchCmd.Flags().BoolVar(&fetchNoProxy, "no-proxy", false, "Skip the institutional proxy layer")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	format, err := paper.ParseFormat(fetchFormat)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	cfg := mustLoadConfig()
	orch := mustBuildOrchestrator(cfg, !fetchNoProxy)

	result, err := orch.Fetch(context.Background(), args[0], orchestrator.FetchOptions{
		Force:                 fetchForce,
		Format:                format,
		AllowInteractiveLogin: !fetchNoProxy,
	})
	if err != nil {
		if identifier.IsUnrecognized(err) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		printResultHuman(result)
	} else {
		outputJSON(result)
	}
}
