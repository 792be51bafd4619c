// Package sources implements the metadata providers papers are resolved
// against: Unpaywall, PubMed, Europe PMC, Semantic Scholar, arXiv, and the
// doi.org resolver. Callers depend on the Provider interface; each concrete
// provider is a small rate-limited HTTP client.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
	"github.com/LLLin000/paper-fetcher/internal/paper"
)

const (
	// DefaultTimeout bounds a single provider API request.
	DefaultTimeout = 15 * time.Second

	// DefaultSearchLimit is used when a caller passes limit <= 0.
	DefaultSearchLimit = 10

	// MaxSearchLimit is the largest page any provider is asked for.
	MaxSearchLimit = 100
)

// Sentinel errors shared by all providers.
var (
	// ErrNotFound means the provider has no record for the identifier.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited means the provider refused the request with 429 and
	// retries were exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable means the provider could not be reached or answered
	// with a server error.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNoSearch means the provider only supports identifier lookup.
	ErrNoSearch = errors.New("provider does not support search")

	// ErrWrongKind means the provider cannot resolve this identifier kind.
	ErrWrongKind = errors.New("identifier kind not handled by provider")
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsRateLimited reports whether err is an exhausted 429.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsUnavailable reports whether err is a reachability or server failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// Provider resolves bibliographic metadata. GetByIdentifier returns
// ErrWrongKind for identifier kinds the provider does not handle, so an
// orchestrator can try each provider in turn without knowing which is which.
type Provider interface {
	Name() string
	GetByIdentifier(ctx context.Context, id identifier.Identifier) (*paper.Record, error)
	Search(ctx context.Context, query string, limit int, years string) ([]paper.Record, error)
}

// apiClient is the shared HTTP plumbing under every provider: one request
// per rate-limit tick, bounded exponential backoff on 429, JSON decoding.
type apiClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

func newAPIClient(perSecond float64) *apiClient {
	return &apiClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		maxRetries: 3,
	}
}

// get fetches a URL and returns the response body. 404 maps to ErrNotFound,
// 429 retries with backoff and maps to ErrRateLimited when exhausted, 5xx
// and transport failures map to ErrUnavailable.
func (c *apiClient) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var body []byte

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	err := backoff.Retry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
		}
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getJSON fetches a URL and decodes the JSON body into out.
func (c *apiClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := c.get(ctx, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return nil
}

// clampLimit normalizes a caller-supplied search limit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
