// Package paper defines the core domain types for fetched papers.
package paper

import (
	"fmt"
	"strings"
	"time"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
)

// AccessLayer is the tier at which a fetch request was ultimately satisfied.
type AccessLayer string

const (
	LayerOpenAccess   AccessLayer = "open_access"
	LayerProxy        AccessLayer = "proxy"
	LayerMetadataOnly AccessLayer = "metadata_only"
)

// Format selects the final serialization of a fetched paper. It does not
// alter the fetch strategy.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatMarkdown, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (valid: text, markdown, json)", s)
}

// Record holds descriptive metadata for a paper, assembled from one or more
// metadata providers. Fields are filled by enrichment: a later provider only
// supplies fields the earlier ones left empty.
type Record struct {
	Identifier identifier.Identifier `json:"identifier"`
	DOI        string                `json:"doi,omitempty"`
	Title      string                `json:"title,omitempty"`
	Authors    []string              `json:"authors,omitempty"`
	Journal    string                `json:"journal,omitempty"`
	Year       int                   `json:"year,omitempty"`
	Abstract   string                `json:"abstract,omitempty"`
	OAURL      string                `json:"oa_url,omitempty"`  // Open Access full-text URL, if any
	OAPDFURL   string                `json:"oa_pdf_url,omitempty"`
	ArXivID    string                `json:"arxiv_id,omitempty"`
	URL        string                `json:"url,omitempty"` // Canonical article URL (publisher site)
	Source     string                `json:"source,omitempty"` // Provider that supplied the metadata
}

// Enrich merges fields from other into r, filling only fields that r lacks.
// Authors merge as a whole list, not element-wise.
func (r *Record) Enrich(other Record) {
	if r.DOI == "" {
		r.DOI = other.DOI
	}
	if r.Title == "" {
		r.Title = other.Title
	}
	if len(r.Authors) == 0 {
		r.Authors = other.Authors
	}
	if r.Journal == "" {
		r.Journal = other.Journal
	}
	if r.Year == 0 {
		r.Year = other.Year
	}
	if r.Abstract == "" {
		r.Abstract = other.Abstract
	}
	if r.OAURL == "" {
		r.OAURL = other.OAURL
	}
	if r.OAPDFURL == "" {
		r.OAPDFURL = other.OAPDFURL
	}
	if r.ArXivID == "" {
		r.ArXivID = other.ArXivID
	}
	if r.URL == "" {
		r.URL = other.URL
	}
	if r.Source == "" {
		r.Source = other.Source
	}
}

// FetchResult is the outcome of one fetch attempt. It is created once per
// attempt and never mutated afterwards; a re-fetch creates a new result.
type FetchResult struct {
	Identifier identifier.Identifier `json:"identifier"`
	Layer      AccessLayer           `json:"layer"`
	Record     Record                `json:"record"`
	Text       string                `json:"text,omitempty"`     // Extracted full text (absent for metadata_only)
	Figures    []string              `json:"figures,omitempty"`  // Figure captions
	PDFPath    string                `json:"pdf_path,omitempty"` // On-disk PDF, if one was saved
	Format     Format                `json:"format"`
	FetchedAt  time.Time             `json:"fetched_at"`
}

// HasText reports whether full text was extracted.
func (fr *FetchResult) HasText() bool {
	return fr.Text != ""
}

// Render serializes the result in its requested format. JSON rendering is
// left to the caller's encoder; Render covers text and markdown.
func (fr *FetchResult) Render() string {
	switch fr.Format {
	case FormatMarkdown:
		return fr.Markdown()
	default:
		return fr.PlainText()
	}
}

// PlainText renders title, abstract, and body with minimal framing.
func (fr *FetchResult) PlainText() string {
	var parts []string
	if fr.Record.Title != "" {
		parts = append(parts, fr.Record.Title, "")
	}
	if fr.Record.Abstract != "" {
		parts = append(parts, fr.Record.Abstract, "")
	}
	if fr.Text != "" {
		parts = append(parts, fr.Text)
	}
	return strings.Join(parts, "\n")
}

// Markdown renders a structured document: metadata header plus body.
func (fr *FetchResult) Markdown() string {
	var sb strings.Builder

	title := fr.Record.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(fr.Record.Authors) > 0 {
		fmt.Fprintf(&sb, "**Authors:** %s\n", strings.Join(fr.Record.Authors, ", "))
	}
	if fr.Record.Journal != "" {
		fmt.Fprintf(&sb, "**Journal:** %s\n", fr.Record.Journal)
	}
	if fr.Record.Year != 0 {
		fmt.Fprintf(&sb, "**Year:** %d\n", fr.Record.Year)
	}
	if fr.Record.DOI != "" {
		fmt.Fprintf(&sb, "**DOI:** %s\n", fr.Record.DOI)
	}
	fmt.Fprintf(&sb, "**Access layer:** %s\n\n", fr.Layer)

	if fr.Record.Abstract != "" {
		sb.WriteString("## Abstract\n\n")
		sb.WriteString(fr.Record.Abstract)
		sb.WriteString("\n\n")
	}

	if fr.Text != "" {
		sb.WriteString("## Full Text\n\n")
		sb.WriteString(fr.Text)
		sb.WriteString("\n\n")
	}

	if len(fr.Figures) > 0 {
		sb.WriteString("## Figures\n\n")
		for i, fig := range fr.Figures {
			fmt.Fprintf(&sb, "**Figure %d:** %s\n", i+1, fig)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
