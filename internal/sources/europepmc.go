package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

// EuropePMCBaseURL is the Europe PMC REST API base.
const EuropePMCBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

const pmcArticleBase = "https://www.ncbi.nlm.nih.gov/pmc/articles"

// EuropePMC finds open-access PubMed Central copies for PMIDs and PMCIDs.
type EuropePMC struct {
	client  *apiClient
	baseURL string
	logger  zerolog.Logger
}

// EuropePMCOption configures a EuropePMC provider.
type EuropePMCOption func(*EuropePMC)

// WithEuropePMCBaseURL overrides the API base URL (for testing).
func WithEuropePMCBaseURL(u string) EuropePMCOption {
	return func(p *EuropePMC) { p.baseURL = u }
}

// WithEuropePMCLogger sets the provider logger.
func WithEuropePMCLogger(l zerolog.Logger) EuropePMCOption {
	return func(p *EuropePMC) { p.logger = l }
}

// NewEuropePMC creates a Europe PMC provider.
func NewEuropePMC(opts ...EuropePMCOption) *EuropePMC {
	p := &EuropePMC{
		client:  newAPIClient(5),
		baseURL: EuropePMCBaseURL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *EuropePMC) Name() string { return "europepmc" }

type epmcSearchResponse struct {
	ResultList struct {
		Result []epmcResult `json:"result"`
	} `json:"resultList"`
}

type epmcResult struct {
	PMID         string `json:"pmid"`
	PMCID        string `json:"pmcid"`
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	AuthorString string `json:"authorString"`
	JournalTitle string `json:"journalTitle"`
	PubYear      string `json:"pubYear"`
	IsOpenAccess string `json:"isOpenAccess"`
}

// GetByIdentifier resolves a PMID or PMCID against Europe PMC. For
// open-access articles the record's OAURL/OAPDFURL point at the PMC copy.
func (p *EuropePMC) GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error) {
	var query string
	switch id.Kind {
	case identifier.KindPMID:
		query = "PMID:" + id.Value
	case identifier.KindPMCID:
		query = "PMCID:" + id.Value
	default:
		return nil, ErrWrongKind
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("format", "json")
	q.Set("pageSize", "1")

	var data epmcSearchResponse
	if err := p.client.getJSON(ctx, p.baseURL+"/search?"+q.Encode(), nil, &data); err != nil {
		return nil, fmt.Errorf("europepmc lookup %s: %w", id.Value, err)
	}
	if len(data.ResultList.Result) == 0 {
		return nil, fmt.Errorf("europepmc lookup %s: %w", id.Value, ErrNotFound)
	}
	article := data.ResultList.Result[0]

	rec := &paper.Record{
		Identifier: id,
		DOI:        strings.ToLower(article.DOI),
		Title:      article.Title,
		Journal:    article.JournalTitle,
		Source:     "europepmc",
	}
	if article.AuthorString != "" {
		for _, name := range strings.Split(article.AuthorString, ",") {
			if name = strings.TrimSpace(strings.TrimSuffix(name, ".")); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
	}
	fmt.Sscanf(article.PubYear, "%d", &rec.Year)

	if article.IsOpenAccess == "Y" && article.PMCID != "" {
		rec.OAURL = pmcArticleBase + "/" + article.PMCID + "/"
		rec.OAPDFURL = pmcArticleBase + "/" + article.PMCID + "/pdf/"
	}

	p.logger.Debug().Str("id", id.Value).Str("pmcid", article.PMCID).
		Bool("oa", article.IsOpenAccess == "Y").Msg("europepmc lookup")
	return rec, nil
}

// Search is not offered here.
func (p *EuropePMC) Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error) {
	return nil, ErrNoSearch
}

// FullTextXML fetches the JATS full text for an open-access PMCID.
func (p *EuropePMC) FullTextXML(ctx context.Context, pmcid string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.ToUpper(pmcid), "PMC")
	body, err := p.client.get(ctx, p.baseURL+"/PMC"+clean+"/fullTextXML", nil)
	if err != nil {
		return nil, fmt.Errorf("europepmc full text PMC%s: %w", clean, err)
	}
	return body, nil
}
