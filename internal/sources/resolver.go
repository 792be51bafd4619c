package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/fetch"
)

// DOIOrgBaseURL is the public DOI resolver.
const DOIOrgBaseURL = "https://doi.org"

// publisherURL builds a direct publisher landing URL from a DOI.
type publisherURL func(doi string) string

// Prefixes whose landing pages we can construct without a network round
// trip. Unlisted prefixes fall through to doi.org.
var doiPrefixMap = map[string]struct {
	publisher string
	build     publisherURL
}{
	"10.1016": {"Elsevier", func(doi string) string {
		return "https://www.sciencedirect.com/science/article/pii/" + strings.ToUpper(doiSuffix(doi))
	}},
	"10.1006": {"Elsevier (Academic Press)", func(doi string) string {
		return "https://www.sciencedirect.com/science/article/pii/" + strings.ToUpper(doiSuffix(doi))
	}},
	"10.1007": {"Springer", func(doi string) string {
		return "https://link.springer.com/article/" + doi
	}},
	"10.1038": {"Nature", func(doi string) string {
		return "https://www.nature.com/articles/" + doiSuffix(doi)
	}},
	"10.1186": {"BioMed Central", func(doi string) string {
		return "https://link.springer.com/article/" + doi
	}},
	"10.1002": {"Wiley", func(doi string) string {
		return "https://onlinelibrary.wiley.com/doi/" + doi
	}},
	"10.1021": {"ACS", func(doi string) string {
		return "https://pubs.acs.org/doi/" + doi
	}},
	"10.1126": {"Science (AAAS)", func(doi string) string {
		return "https://www.science.org/doi/" + doi
	}},
	"10.1073": {"PNAS", func(doi string) string {
		return "https://www.pnas.org/doi/" + doi
	}},
	"10.1177": {"SAGE", func(doi string) string {
		return "https://journals.sagepub.com/doi/" + doi
	}},
	"10.1056": {"NEJM", func(doi string) string {
		return "https://www.nejm.org/doi/full/" + doi
	}},
}

func doiSuffix(doi string) string {
	if i := strings.LastIndexByte(doi, '/'); i >= 0 {
		return doi[i+1:]
	}
	return doi
}

// PublisherURL maps a DOI to a direct publisher landing URL when its prefix
// is known. Returns ("", "", false) for unknown prefixes.
func PublisherURL(doi string) (publisher, url string, ok bool) {
	prefix, _, found := strings.Cut(doi, "/")
	if !found {
		return "", "", false
	}
	entry, ok := doiPrefixMap[prefix]
	if !ok {
		return "", "", false
	}
	return entry.publisher, entry.build(doi), true
}

// Resolver turns a DOI into a fetchable publisher URL: known prefixes map
// directly, everything else goes through doi.org redirects.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverBaseURL overrides the doi.org endpoint (for testing).
func WithResolverBaseURL(u string) ResolverOption {
	return func(r *Resolver) { r.baseURL = u }
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a DOI resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DOIOrgBaseURL,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the publisher URL for a DOI. A DOI that lands on PubMed
// resolves to ErrNotFound: the PubMed record page carries no full text and
// proxying it gains nothing.
func (r *Resolver) Resolve(ctx context.Context, doi string) (string, error) {
	if publisher, u, ok := PublisherURL(doi); ok {
		r.logger.Debug().Str("doi", doi).Str("publisher", publisher).Str("url", u).Msg("doi prefix mapped")
		return u, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+doi, nil)
	if err != nil {
		return "", fmt.Errorf("resolving doi %s: %w", doi, err)
	}
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving doi %s: %w: %v", doi, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("resolving doi %s: %w", doi, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resolving doi %s: %w: status %d", doi, ErrUnavailable, resp.StatusCode)
	}

	final := resp.Request.URL.String()
	if strings.Contains(final, "pubmed.ncbi.nlm.nih.gov") {
		r.logger.Warn().Str("doi", doi).Msg("doi resolves to pubmed record page, no full text there")
		return "", fmt.Errorf("resolving doi %s: %w", doi, ErrNotFound)
	}

	r.logger.Debug().Str("doi", doi).Str("url", final).Msg("doi resolved via doi.org")
	return final, nil
}
