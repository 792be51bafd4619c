package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

// UnpaywallBaseURL is the Unpaywall REST API base.
const UnpaywallBaseURL = "https://api.unpaywall.org/v2"

// DefaultEmail is sent to APIs that require a contact address when the user
// has not configured one.
const DefaultEmail = "paper-fetcher@example.com"

// Unpaywall looks up open-access locations for a DOI.
type Unpaywall struct {
	client  *apiClient
	baseURL string
	email   string
	logger  zerolog.Logger
}

// UnpaywallOption configures an Unpaywall provider.
type UnpaywallOption func(*Unpaywall)

// WithUnpaywallBaseURL overrides the API base URL (for testing).
func WithUnpaywallBaseURL(u string) UnpaywallOption {
	return func(p *Unpaywall) { p.baseURL = u }
}

// WithUnpaywallLogger sets the provider logger.
func WithUnpaywallLogger(l zerolog.Logger) UnpaywallOption {
	return func(p *Unpaywall) { p.logger = l }
}

// NewUnpaywall creates an Unpaywall provider. The email is required by the
// Unpaywall terms of service.
func NewUnpaywall(email string, opts ...UnpaywallOption) *Unpaywall {
	if email == "" {
		email = DefaultEmail
	}
	p := &Unpaywall{
		client:  newAPIClient(5),
		baseURL: UnpaywallBaseURL,
		email:   email,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Unpaywall) Name() string { return "unpaywall" }

// unpaywallResponse is the subset of the Unpaywall record we consume.
type unpaywallResponse struct {
	IsOA           bool                `json:"is_oa"`
	Title          string              `json:"title"`
	JournalName    string              `json:"journal_name"`
	Year           int                 `json:"year"`
	ZAuthors       []unpaywallAuthor   `json:"z_authors"`
	BestOALocation *unpaywallLocation  `json:"best_oa_location"`
	OALocations    []unpaywallLocation `json:"oa_locations"`
}

type unpaywallAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type unpaywallLocation struct {
	URLForPDF             string `json:"url_for_pdf"`
	URLForLandingPage     string `json:"url_for_landing_page"`
	HostType              string `json:"host_type"`
	RepositoryInstitution string `json:"repository_institution"`
}

// GetByIdentifier resolves a DOI's open-access locations. The record's
// OAPDFURL/OAURL fields are filled when an OA copy exists; Source records
// where the copy lives ("arxiv", "publisher", "repository").
func (p *Unpaywall) GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error) {
	if id.Kind != identifier.KindDOI {
		return nil, ErrWrongKind
	}

	var data unpaywallResponse
	url := fmt.Sprintf("%s/%s?email=%s", p.baseURL, id.Value, p.email)
	if err := p.client.getJSON(ctx, url, nil, &data); err != nil {
		return nil, fmt.Errorf("unpaywall lookup %s: %w", id.Value, err)
	}

	rec := &paper.Record{
		Identifier: id,
		DOI:        id.Value,
		Title:      data.Title,
		Journal:    data.JournalName,
		Year:       data.Year,
	}
	for _, a := range data.ZAuthors {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	if !data.IsOA {
		return rec, nil
	}

	if best := data.BestOALocation; best != nil {
		rec.OAPDFURL = best.URLForPDF
		rec.OAURL = best.URLForLandingPage
		rec.Source = classifyOAHost(best)
		if rec.Source == "arxiv" {
			rec.ArXivID = ExtractArXivID(best.URLForPDF + " " + best.URLForLandingPage)
		}
	}
	// Best location may lack a PDF even when another mirror has one.
	if rec.OAPDFURL == "" {
		for _, loc := range data.OALocations {
			if loc.URLForPDF != "" {
				rec.OAPDFURL = loc.URLForPDF
				break
			}
		}
	}

	p.logger.Debug().Str("doi", id.Value).Bool("oa", data.IsOA).
		Str("pdf", rec.OAPDFURL).Msg("unpaywall lookup")
	return rec, nil
}

// Search is not part of the Unpaywall API.
func (p *Unpaywall) Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error) {
	return nil, ErrNoSearch
}

func classifyOAHost(loc *unpaywallLocation) string {
	joined := strings.ToLower(loc.URLForPDF + loc.URLForLandingPage + loc.RepositoryInstitution)
	switch {
	case strings.Contains(joined, "arxiv"):
		return "arxiv"
	case loc.HostType == "publisher":
		return "publisher"
	default:
		return "repository"
	}
}
