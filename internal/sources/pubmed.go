package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

// PubMedBaseURL is the NCBI E-utilities base.
const PubMedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// The efetch payload is a large XML document; we only need a handful of
// well-formed elements out of it, so targeted patterns beat a full schema.
var (
	pubmedDOIPattern      = regexp.MustCompile(`<ArticleId IdType="doi">([^<]+)</ArticleId>`)
	pubmedPMCPattern      = regexp.MustCompile(`<ArticleId IdType="pmc">([^<]+)</ArticleId>`)
	pubmedTitlePattern    = regexp.MustCompile(`<ArticleTitle>([^<]+)</ArticleTitle>`)
	pubmedJournalPattern  = regexp.MustCompile(`<Title>([^<]+)</Title>`)
	pubmedYearPattern     = regexp.MustCompile(`<Year>(\d{4})</Year>`)
	pubmedAbstractPattern = regexp.MustCompile(`<AbstractText[^>]*>([^<]+)</AbstractText>`)
	pubmedAuthorPattern   = regexp.MustCompile(`<LastName>([^<]+)</LastName>\s*<ForeName>([^<]+)</ForeName>`)
)

// PubMed resolves PMIDs to DOIs and article metadata via NCBI E-utilities.
type PubMed struct {
	client  *apiClient
	baseURL string
	email   string
	logger  zerolog.Logger
}

// PubMedOption configures a PubMed provider.
type PubMedOption func(*PubMed)

// WithPubMedBaseURL overrides the E-utilities base URL (for testing).
func WithPubMedBaseURL(u string) PubMedOption {
	return func(p *PubMed) { p.baseURL = u }
}

// WithPubMedLogger sets the provider logger.
func WithPubMedLogger(l zerolog.Logger) PubMedOption {
	return func(p *PubMed) { p.logger = l }
}

// NewPubMed creates a PubMed provider. NCBI allows 3 requests per second
// without an API key; the email joins the polite pool.
func NewPubMed(email string, opts ...PubMedOption) *PubMed {
	if email == "" {
		email = DefaultEmail
	}
	p := &PubMed{
		client:  newAPIClient(3),
		baseURL: PubMedBaseURL,
		email:   email,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PubMed) Name() string { return "pubmed" }

// GetByIdentifier fetches article metadata for a PMID. The returned record
// carries the DOI when PubMed knows one, which is how PMID inputs join the
// DOI-based access layers.
func (p *PubMed) GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error) {
	if id.Kind != identifier.KindPMID {
		return nil, ErrWrongKind
	}

	xmlText, err := p.efetch(ctx, id.Value)
	if err != nil {
		return nil, fmt.Errorf("pubmed lookup %s: %w", id.Value, err)
	}

	rec := &paper.Record{
		Identifier: id,
		Source:     "pubmed",
	}
	if m := pubmedDOIPattern.FindStringSubmatch(xmlText); m != nil {
		rec.DOI = strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := pubmedTitlePattern.FindStringSubmatch(xmlText); m != nil {
		rec.Title = strings.TrimSpace(m[1])
	}
	if m := pubmedJournalPattern.FindStringSubmatch(xmlText); m != nil {
		rec.Journal = strings.TrimSpace(m[1])
	}
	if m := pubmedYearPattern.FindStringSubmatch(xmlText); m != nil {
		rec.Year, _ = strconv.Atoi(m[1])
	}
	if m := pubmedAbstractPattern.FindStringSubmatch(xmlText); m != nil {
		rec.Abstract = strings.TrimSpace(m[1])
	}
	for _, m := range pubmedAuthorPattern.FindAllStringSubmatch(xmlText, -1) {
		rec.Authors = append(rec.Authors, strings.TrimSpace(m[1])+" "+strings.TrimSpace(m[2]))
	}

	if rec.DOI == "" && rec.Title == "" {
		return nil, fmt.Errorf("pubmed lookup %s: %w", id.Value, ErrNotFound)
	}

	p.logger.Debug().Str("pmid", id.Value).Str("doi", rec.DOI).Msg("pubmed lookup")
	return rec, nil
}

// ResolveDOI converts a PMID to its DOI, or ErrNotFound when PubMed has
// no DOI on record.
func (p *PubMed) ResolveDOI(ctx context.Context, pmid string) (string, error) {
	xmlText, err := p.efetch(ctx, pmid)
	if err != nil {
		return "", fmt.Errorf("pmid %s to doi: %w", pmid, err)
	}
	m := pubmedDOIPattern.FindStringSubmatch(xmlText)
	if m == nil {
		return "", fmt.Errorf("pmid %s to doi: %w", pmid, ErrNotFound)
	}
	return strings.ToLower(strings.TrimSpace(m[1])), nil
}

// Search is not offered here; Semantic Scholar covers keyword search.
func (p *PubMed) Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error) {
	return nil, ErrNoSearch
}

func (p *PubMed) efetch(ctx context.Context, pmid string) (string, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", strings.TrimSpace(pmid))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")
	q.Set("email", p.email)

	body, err := p.client.get(ctx, p.baseURL+"/efetch.fcgi?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
