package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

const (
	// ArXivBaseURL is the arXiv Atom API endpoint.
	ArXivBaseURL = "http://export.arxiv.org/api/query"

	arxivPDFBase = "https://arxiv.org/pdf"
	arxivAbsBase = "https://arxiv.org/abs"
)

// Matches modern IDs like 2301.08745v2 and legacy ones like hep-ph/0601001.
var (
	arxivIDPattern      = regexp.MustCompile(`(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+/\d{7}(?:v\d+)?)`)
	arxivVersionPattern = regexp.MustCompile(`v\d+$`)
	yearPrefixPattern   = regexp.MustCompile(`^(\d{4})`)
)

// ExtractArXivID pulls an arXiv ID out of a URL, DOI, or raw string.
// Returns "" when no ID is present.
func ExtractArXivID(text string) string {
	return arxivIDPattern.FindString(text)
}

// ArXivPDFURL returns the canonical PDF URL for an arXiv ID, with any
// version suffix stripped.
func ArXivPDFURL(arxivID string) string {
	return arxivPDFBase + "/" + stripArXivVersion(arxivID) + ".pdf"
}

func stripArXivVersion(arxivID string) string {
	return arxivVersionPattern.ReplaceAllString(arxivID, "")
}

// ArXiv fetches metadata and PDF locations from the arXiv Atom API.
type ArXiv struct {
	client  *apiClient
	baseURL string
	logger  zerolog.Logger
}

// ArXivOption configures an ArXiv provider.
type ArXivOption func(*ArXiv)

// WithArXivBaseURL overrides the API endpoint (for testing).
func WithArXivBaseURL(u string) ArXivOption {
	return func(p *ArXiv) { p.baseURL = u }
}

// WithArXivLogger sets the provider logger.
func WithArXivLogger(l zerolog.Logger) ArXivOption {
	return func(p *ArXiv) { p.logger = l }
}

// NewArXiv creates an arXiv provider. arXiv asks for at most one request
// every three seconds.
func NewArXiv(opts ...ArXivOption) *ArXiv {
	p := &ArXiv{
		client:  newAPIClient(1.0 / 3.0),
		baseURL: ArXivBaseURL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ArXiv) Name() string { return "arxiv" }

// Atom feed shapes, limited to the fields we read.
type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// GetByIdentifier fetches metadata for an arXiv ID. The identifier may be a
// URL or DOI containing an ID; KindURL and KindDOI inputs without one return
// ErrWrongKind.
func (p *ArXiv) GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error) {
	arxivID := ExtractArXivID(id.Value)
	if arxivID == "" {
		return nil, ErrWrongKind
	}
	rec, err := p.Lookup(ctx, arxivID)
	if err != nil {
		return nil, err
	}
	rec.Identifier = id
	return rec, nil
}

// Lookup fetches metadata for a known arXiv ID.
func (p *ArXiv) Lookup(ctx context.Context, arxivID string) (*paper.Record, error) {
	cleanID := stripArXivVersion(arxivID)

	q := url.Values{}
	q.Set("id_list", cleanID)
	q.Set("max_results", "1")

	body, err := p.client.get(ctx, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv lookup %s: %w", arxivID, err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv lookup %s: %w: %v", arxivID, ErrUnavailable, err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("arxiv lookup %s: %w", arxivID, ErrNotFound)
	}
	entry := feed.Entries[0]
	// The API answers an unknown ID with an entry that has no title.
	if strings.TrimSpace(entry.Title) == "" {
		return nil, fmt.Errorf("arxiv lookup %s: %w", arxivID, ErrNotFound)
	}

	rec := &paper.Record{
		Title:      collapseSpace(entry.Title),
		Abstract:   collapseSpace(entry.Summary),
		ArXivID:    cleanID,
		OAPDFURL:   ArXivPDFURL(cleanID),
		URL:        arxivAbsBase + "/" + cleanID,
		Source:     "arxiv",
	}
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	if m := yearPrefixPattern.FindString(entry.Published); m != "" {
		rec.Year, _ = strconv.Atoi(m)
	}

	p.logger.Debug().Str("arxiv_id", cleanID).Str("title", rec.Title).Msg("arxiv lookup")
	return rec, nil
}

// Search is not offered; Semantic Scholar covers keyword search.
func (p *ArXiv) Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error) {
	return nil, ErrNoSearch
}

// collapseSpace folds the newlines arXiv wraps titles and abstracts with.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
