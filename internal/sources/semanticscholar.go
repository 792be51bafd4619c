package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

const (
	// SemanticScholarBaseURL is the Semantic Scholar Graph API base.
	SemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

	s2Fields = "title,authors,year,abstract,externalIds,journal,citationCount,url"
)

// SemanticScholar searches and looks up papers on the Semantic Scholar
// Graph API. An API key raises the rate limit; without one the API answers
// 429 freely, which the shared client absorbs with backoff.
type SemanticScholar struct {
	client  *apiClient
	baseURL string
	apiKey  string
	logger  zerolog.Logger
}

// SemanticScholarOption configures a SemanticScholar provider.
type SemanticScholarOption func(*SemanticScholar)

// WithSemanticScholarBaseURL overrides the API base URL (for testing).
func WithSemanticScholarBaseURL(u string) SemanticScholarOption {
	return func(p *SemanticScholar) { p.baseURL = u }
}

// WithSemanticScholarAPIKey sets the API key.
func WithSemanticScholarAPIKey(key string) SemanticScholarOption {
	return func(p *SemanticScholar) { p.apiKey = key }
}

// WithSemanticScholarLogger sets the provider logger.
func WithSemanticScholarLogger(l zerolog.Logger) SemanticScholarOption {
	return func(p *SemanticScholar) { p.logger = l }
}

// NewSemanticScholar creates a Semantic Scholar provider.
func NewSemanticScholar(opts ...SemanticScholarOption) *SemanticScholar {
	p := &SemanticScholar{
		client:  newAPIClient(1),
		baseURL: SemanticScholarBaseURL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SemanticScholar) Name() string { return "semanticscholar" }

type s2Paper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Year          int    `json:"year"`
	CitationCount int    `json:"citationCount"`
	URL           string `json:"url"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
	Journal struct {
		Name string `json:"name"`
	} `json:"journal"`
}

func (sp *s2Paper) toRecord() paper.Record {
	rec := paper.Record{
		DOI:        strings.ToLower(sp.ExternalIDs.DOI),
		Title:      sp.Title,
		Abstract:   sp.Abstract,
		Year:       sp.Year,
		ArXivID:    sp.ExternalIDs.ArXiv,
		Journal:    sp.Journal.Name,
		URL:        sp.URL,
		Source:     "semanticscholar",
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			rec.Authors = append(rec.Authors, a.Name)
		}
	}
	return rec
}

// GetByIdentifier looks up a paper by DOI.
func (p *SemanticScholar) GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error) {
	if id.Kind != identifier.KindDOI {
		return nil, ErrWrongKind
	}

	u := fmt.Sprintf("%s/paper/DOI:%s?fields=%s", p.baseURL, id.Value, s2Fields)
	var sp s2Paper
	if err := p.client.getJSON(ctx, u, p.header(), &sp); err != nil {
		return nil, fmt.Errorf("semanticscholar lookup %s: %w", id.Value, err)
	}
	if sp.PaperID == "" {
		return nil, fmt.Errorf("semanticscholar lookup %s: %w", id.Value, ErrNotFound)
	}

	rec := sp.toRecord()
	rec.Identifier = id
	p.logger.Debug().Str("doi", id.Value).Str("title", rec.Title).Msg("semanticscholar lookup")
	return &rec, nil
}

// Search runs a keyword relevance search. years is an optional filter like
// "2020-2024" or "2020-".
func (p *SemanticScholar) Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", fmt.Sprintf("%d", clampLimit(limit)))
	q.Set("fields", s2Fields)
	if years != "" {
		q.Set("year", years)
	}

	var data struct {
		Total int       `json:"total"`
		Data  []s2Paper `json:"data"`
	}
	if err := p.client.getJSON(ctx, p.baseURL+"/paper/search?"+q.Encode(), p.header(), &data); err != nil {
		return nil, fmt.Errorf("semanticscholar search %q: %w", query, err)
	}

	records := make([]paper.Record, 0, len(data.Data))
	for i := range data.Data {
		records = append(records, data.Data[i].toRecord())
	}
	p.logger.Debug().Str("query", query).Int("results", len(records)).Msg("semanticscholar search")
	return records, nil
}

func (p *SemanticScholar) header() http.Header {
	if p.apiKey == "" {
		return nil
	}
	return http.Header{"X-Api-Key": []string{p.apiKey}}
}
