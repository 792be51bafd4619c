// Package orchestrator drives the three-layer access fallback: open access
// first, then the institutional proxy, then metadata only. It owns no
// network code itself; fetching, extraction, providers, proxy, and cache are
// all injected.
package orchestrator

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/LLLin000/paper-fetcher/internal/cache"
	"github.com/LLLin000/paper-fetcher/internal/extract"
	"github.com/LLLin000/paper-fetcher/internal/fetch"
	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
	"github.com/LLLin000/paper-fetcher/internal/sources"
)

// minUsefulText is the extraction size below which a discovered PDF's text
// replaces the HTML text.
const minUsefulText = 500

// Fetcher retrieves a URL directly.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// ProxyFetcher retrieves a URL through an authenticated institutional
// session. A nil ProxyFetcher means no proxy is configured.
type ProxyFetcher interface {
	HasSession() bool
	Login(ctx context.Context, force bool) error
	Fetch(ctx context.Context, target string) (*fetch.Response, error)
}

// URLResolver turns a DOI into a fetchable publisher URL.
type URLResolver interface {
	Resolve(ctx context.Context, doi string) (string, error)
}

// ArXivLookup fetches metadata for a raw arXiv ID.
type ArXivLookup interface {
	Lookup(ctx context.Context, arxivID string) (*paper.Record, error)
}

// Orchestrator composes providers, fetchers, extraction, and cache into the
// per-request access decision.
type Orchestrator struct {
	fetcher   Fetcher
	pipeline  *extract.Pipeline
	providers []sources.Provider
	arxiv     ArXivLookup
	resolver  URLResolver
	proxy     ProxyFetcher
	cache     *cache.Cache
	papersDir string
	logger    zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProviders sets the metadata providers, queried in order.
func WithProviders(ps ...sources.Provider) Option {
	return func(o *Orchestrator) { o.providers = ps }
}

// WithArXiv sets the arXiv lookup used when an OA location is an arXiv copy.
func WithArXiv(a ArXivLookup) Option {
	return func(o *Orchestrator) { o.arxiv = a }
}

// WithResolver sets the DOI-to-publisher-URL resolver.
func WithResolver(r URLResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithProxy sets the institutional proxy. Leaving it unset skips the proxy
// layer entirely.
func WithProxy(p ProxyFetcher) Option {
	return func(o *Orchestrator) { o.proxy = p }
}

// WithCache sets the result cache. Leaving it unset disables caching.
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithPapersDir sets the directory fetched PDFs are saved into. Leaving it
// unset disables PDF saving.
func WithPapersDir(dir string) Option {
	return func(o *Orchestrator) { o.papersDir = dir }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator.
func New(fetcher Fetcher, pipeline *extract.Pipeline, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:  fetcher,
		pipeline: pipeline,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchOptions tune a single fetch request.
type FetchOptions struct {
	// Force bypasses the cache and overwrites the stored entry.
	Force bool

	// Format selects the result serialization. Defaults to text.
	Format paper.Format

	// AllowInteractiveLogin permits a blocking browser login when the
	// proxy layer is reached without a session. Batch runs leave it off.
	AllowInteractiveLogin bool
}

// Fetch resolves one identifier through the fallback chain. The only fatal
// error is an unrecognized identifier; every other fault degrades the
// access layer, bottoming out at a metadata-only result.
func (o *Orchestrator) Fetch(ctx context.Context, raw string, opts FetchOptions) (*paper.FetchResult, error) {
	id, err := identifier.Normalize(raw)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = paper.FormatText
	}

	// PMID inputs always resolve fresh: the interesting identity is the
	// DOI they map to, and that mapping can appear over time.
	useCache := o.cache != nil && !opts.Force && id.Kind != identifier.KindPMID
	if useCache {
		if cached, err := o.cache.Lookup(id, format); err == nil && cached != nil {
			o.logger.Info().Str("id", id.Value).Msg("cache hit")
			return cached, nil
		}
	}

	record := o.resolveMetadata(ctx, id)

	result := &paper.FetchResult{
		Identifier: id,
		Format:     format,
		FetchedAt:  time.Now().UTC(),
	}

	if done := o.tryOpenAccess(ctx, &record, result); !done {
		if done = o.tryProxy(ctx, &record, result, opts.AllowInteractiveLogin); !done {
			result.Layer = paper.LayerMetadataOnly
			result.Text = ""
		}
	}
	result.Record = record

	o.storeResult(id, record, result)

	o.logger.Info().Str("id", id.Value).Str("layer", string(result.Layer)).
		Bool("text", result.HasText()).Msg("fetch complete")
	return result, nil
}

// resolveMetadata queries every provider, enriching one record. Total
// provider failure is fine: fetch attempts proceed on whatever is known.
func (o *Orchestrator) resolveMetadata(ctx context.Context, id identifier.Identifier) paper.Record {
	record := paper.Record{Identifier: id}
	switch id.Kind {
	case identifier.KindDOI:
		record.DOI = id.Value
	case identifier.KindURL:
		record.URL = id.Value
	}

	o.enrichFrom(ctx, id, &record)

	// A PMID or PMCID that mapped to a DOI unlocks the DOI-keyed
	// providers on a second pass.
	if record.DOI != "" && id.Kind != identifier.KindDOI {
		if doiID, err := identifier.Normalize(record.DOI); err == nil {
			record.DOI = doiID.Value
			o.enrichFrom(ctx, doiID, &record)
		}
	}
	return record
}

func (o *Orchestrator) enrichFrom(ctx context.Context, id identifier.Identifier, record *paper.Record) {
	for _, p := range o.providers {
		rec, err := p.GetByIdentifier(ctx, id)
		if err != nil {
			if err != sources.ErrWrongKind && !sources.IsNotFound(err) {
				o.logger.Warn().Str("provider", p.Name()).Str("id", id.Value).
					Err(err).Msg("provider lookup failed")
			}
			continue
		}
		record.Enrich(*rec)
	}
}

// tryOpenAccess attempts the open layer: an arXiv copy first, then a direct
// OA PDF, then the OA landing page. Returns true when full text landed.
func (o *Orchestrator) tryOpenAccess(ctx context.Context, record *paper.Record, result *paper.FetchResult) bool {
	if record.ArXivID != "" && o.fetchArXiv(ctx, record, result) {
		result.Layer = paper.LayerOpenAccess
		return true
	}

	if record.OAPDFURL != "" {
		if resp, err := o.getWithRetry(ctx, record.OAPDFURL); err == nil && resp.IsPDF() {
			if o.extractInto(resp, record, result) {
				result.PDFPath = o.savePDF(pdfBaseName(record), resp.Body)
				result.Layer = paper.LayerOpenAccess
				return true
			}
		}
	}

	if record.OAURL != "" {
		if resp, err := o.getWithRetry(ctx, record.OAURL); err == nil {
			if o.extractInto(resp, record, result) {
				result.Layer = paper.LayerOpenAccess
				return true
			}
		}
	}

	return false
}

func (o *Orchestrator) fetchArXiv(ctx context.Context, record *paper.Record, result *paper.FetchResult) bool {
	if o.arxiv != nil {
		if meta, err := o.arxiv.Lookup(ctx, record.ArXivID); err == nil {
			record.Enrich(*meta)
		}
	}
	resp, err := o.getWithRetry(ctx, sources.ArXivPDFURL(record.ArXivID))
	if err != nil || !resp.IsPDF() {
		return false
	}
	if !o.extractInto(resp, record, result) {
		return false
	}
	result.PDFPath = o.savePDF("arxiv_"+record.ArXivID, resp.Body)
	return true
}

// tryProxy attempts the institutional layer. Any failure here, including a
// missing or unobtainable session, degrades to metadata only.
func (o *Orchestrator) tryProxy(ctx context.Context, record *paper.Record, result *paper.FetchResult, allowLogin bool) bool {
	if o.proxy == nil {
		return false
	}

	if !o.proxy.HasSession() {
		if !allowLogin {
			o.logger.Info().Msg("no proxy session and interactive login not permitted, skipping proxy layer")
			return false
		}
		if err := o.proxy.Login(ctx, false); err != nil {
			o.logger.Warn().Err(err).Msg("proxy login failed, degrading to metadata only")
			return false
		}
	}

	target := o.articleURL(ctx, record)
	if target == "" {
		return false
	}

	resp, err := o.proxy.Fetch(ctx, target)
	if err != nil {
		o.logger.Warn().Str("url", target).Err(err).Msg("proxied fetch failed")
		return false
	}

	if resp.IsPDF() {
		if !o.extractInto(resp, record, result) {
			return false
		}
		result.PDFPath = o.savePDF(pdfBaseName(record), resp.Body)
		result.Layer = paper.LayerProxy
		return true
	}

	ok := o.extractInto(resp, record, result)

	// Publisher HTML often links the real PDF; grab it through the same
	// session while it is hot.
	if pdfURL := extract.FindPDFLink(resp.Body, resp.FinalURL); pdfURL != "" {
		if pdfResp, err := o.proxy.Fetch(ctx, pdfURL); err == nil && pdfResp.IsPDF() {
			result.PDFPath = o.savePDF(pdfBaseName(record), pdfResp.Body)
			if len(result.Text) < minUsefulText {
				var pdfOut paper.FetchResult
				if o.extractInto(pdfResp, record, &pdfOut) {
					result.Text = pdfOut.Text
					if len(pdfOut.Figures) > 0 {
						result.Figures = pdfOut.Figures
					}
					ok = true
				}
			}
		}
	}

	if ok {
		result.Layer = paper.LayerProxy
	}
	return ok
}

// articleURL picks the URL the proxy layer should rewrite: an explicit URL
// identifier wins, else the DOI is resolved to its publisher page.
func (o *Orchestrator) articleURL(ctx context.Context, record *paper.Record) string {
	if record.URL != "" {
		return record.URL
	}
	if record.DOI == "" || o.resolver == nil {
		return ""
	}
	target, err := o.resolver.Resolve(ctx, record.DOI)
	if err != nil {
		o.logger.Warn().Str("doi", record.DOI).Err(err).Msg("doi resolution failed")
		return ""
	}
	return target
}

// extractInto runs the pipeline on a response and fills the result's text
// and figures, enriching the record with whatever the page knew about
// itself. A pipeline failure degrades to raw best-effort text.
func (o *Orchestrator) extractInto(resp *fetch.Response, record *paper.Record, result *paper.FetchResult) bool {
	extracted, err := o.pipeline.Extract(resp.Body, resp.ContentType, hostOf(resp.FinalURL))
	if err != nil {
		// Raw text is a markup-stripping salvage; on a PDF that failed
		// extraction it would surface binary bytes as full text.
		if resp.IsPDF() {
			return false
		}
		if raw := extract.RawText(resp.Body); raw != "" {
			result.Text = raw
			return true
		}
		return false
	}

	record.Enrich(paper.Record{
		Title:    extracted.Title,
		Authors:  extracted.Authors,
		Abstract: extracted.Abstract,
	})
	result.Text = extracted.Text
	result.Figures = extracted.Figures
	return result.HasText()
}

// getWithRetry fetches a URL, retrying once on a transient failure.
func (o *Orchestrator) getWithRetry(ctx context.Context, rawURL string) (*fetch.Response, error) {
	resp, err := o.fetcher.Get(ctx, rawURL)
	if err != nil && fetch.IsTransient(err) && ctx.Err() == nil {
		o.logger.Debug().Str("url", rawURL).Msg("transient failure, retrying once")
		resp, err = o.fetcher.Get(ctx, rawURL)
	}
	return resp, err
}

// storeResult persists a terminal result. PMID inputs are stored under
// their resolved DOI so later DOI requests hit.
func (o *Orchestrator) storeResult(id identifier.Identifier, record paper.Record, result *paper.FetchResult) {
	if o.cache == nil {
		return
	}
	toStore := *result
	if id.Kind == identifier.KindPMID {
		if record.DOI == "" {
			return
		}
		doiID, err := identifier.Normalize(record.DOI)
		if err != nil {
			return
		}
		toStore.Identifier = doiID
	}
	if err := o.cache.Store(&toStore); err != nil {
		o.logger.Warn().Str("id", toStore.Identifier.Value).Err(err).Msg("cache store failed")
	}
}

var unsafeNameChars = regexp.MustCompile(`[^\w\-.]`)

// savePDF writes PDF bytes under the papers directory, returning the path
// or "" when saving is disabled or fails.
func (o *Orchestrator) savePDF(baseName string, data []byte) string {
	if o.papersDir == "" || len(data) == 0 {
		return ""
	}
	if err := os.MkdirAll(o.papersDir, 0o755); err != nil {
		o.logger.Warn().Err(err).Msg("creating papers directory failed")
		return ""
	}
	name := unsafeNameChars.ReplaceAllString(baseName, "_") + ".pdf"
	path := filepath.Join(o.papersDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.logger.Warn().Str("path", path).Err(err).Msg("saving pdf failed")
		return ""
	}
	o.logger.Info().Str("path", path).Msg("saved pdf")
	return path
}

func pdfBaseName(record *paper.Record) string {
	if record.DOI != "" {
		return record.DOI
	}
	if record.Identifier.Value != "" {
		return record.Identifier.Value
	}
	return "unknown"
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
