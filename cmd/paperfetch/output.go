package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/LLLin000/paper-fetcher/internal/paper"
)

const (
	// Title truncation length in list-style output
	ListTitleMaxLen = 70

	// Authors shown before "et al." in summaries
	SummaryAuthorMax = 3
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// printResultHuman prints a fetch result: a short header, then the
// rendered text when full text was extracted.
func printResultHuman(result *paper.FetchResult) {
	rec := result.Record
	fmt.Printf("%s\n", result.Identifier)
	if rec.Title != "" {
		fmt.Printf("  %s\n", truncateString(rec.Title, ListTitleMaxLen))
	}
	if len(rec.Authors) > 0 {
		fmt.Printf("  %s", formatAuthorsShort(rec.Authors, SummaryAuthorMax))
		if rec.Year > 0 {
			fmt.Printf(" (%d)", rec.Year)
		}
		fmt.Println()
	}
	fmt.Printf("  access: %s\n", result.Layer)
	if result.PDFPath != "" {
		fmt.Printf("  pdf: %s\n", result.PDFPath)
	}
	if result.HasText() {
		fmt.Printf("\n%s\n", result.Render())
	} else if rec.Abstract != "" {
		fmt.Printf("\n%s\n", rec.Abstract)
	}
}

// printRecordSummaryHuman prints numbered record summaries (search results).
func printRecordSummaryHuman(records []paper.Record) {
	for i, r := range records {
		fmt.Printf("%d. %s\n", i+1, truncateString(r.Title, ListTitleMaxLen))
		fmt.Printf("   %s", formatAuthorsShort(r.Authors, SummaryAuthorMax))
		if r.Year > 0 {
			fmt.Printf(" (%d)", r.Year)
		}
		fmt.Println()
		if r.DOI != "" {
			fmt.Printf("   doi: %s\n", r.DOI)
		}
		fmt.Println()
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatBytes formats bytes in a human-readable way.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatAuthorsShort joins authors with "et al." after maxCount.
func formatAuthorsShort(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}
	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, a)
	}
	return strings.Join(names, ", ")
}
