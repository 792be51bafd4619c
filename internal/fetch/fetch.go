// Package fetch performs rate-limited HTTP retrieval with paywall-aware
// error classification.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent mimics a desktop browser; several publishers refuse
	// requests with obvious bot user agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxBodySize caps response bodies at 50 MB.
	maxBodySize = 50 << 20
)

// paywallMarkers are body substrings that indicate a paywall page served
// with HTTP 200.
var paywallMarkers = []string{
	"institutional access",
	"purchase this article",
	"buy article",
	"get access",
	"access through your institution",
}

// Response is a fetched payload.
type Response struct {
	Body        []byte
	ContentType string
	FinalURL    string // URL after redirects
	StatusCode  int
}

// IsPDF reports whether the payload is a PDF, judged by content type with a
// magic-bytes fallback for servers that mislabel PDFs.
func (r *Response) IsPDF() bool {
	if strings.Contains(strings.ToLower(r.ContentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(r.Body, []byte("%PDF-"))
}

// IsHTML reports whether the payload looks like an HTML document.
func (r *Response) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

// Client fetches URLs politely. All requests wait on the shared HostLimiter
// before going out.
type Client struct {
	httpClient *http.Client
	limiter    *HostLimiter
	userAgent  string
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (e.g. one carrying a session
// cookie jar, or a test client).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a fetch client waiting on the given shared limiter.
func NewClient(limiter *HostLimiter, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    limiter,
		userAgent:  DefaultUserAgent,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a URL, applying the politeness delay first. Failures are
// classified into the access-denied / not-found / transient taxonomy.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("url", rawURL).Msg("fetching")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &StatusError{URL: rawURL, Kind: ErrTransient}
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransient, err)
	}

	result := &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
	}

	// A 200 can still be a paywall interstitial.
	if result.IsHTML() && containsPaywallMarker(body) {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Kind: ErrAccessDenied}
	}

	return result, nil
}

// classifyStatus maps an HTTP status to the fetch error taxonomy.
func classifyStatus(url string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &StatusError{URL: url, StatusCode: status, Kind: ErrAccessDenied}
	case status == http.StatusNotFound || status == http.StatusGone:
		return &StatusError{URL: url, StatusCode: status, Kind: ErrNotFound}
	case status >= 500 || status == http.StatusTooManyRequests:
		return &StatusError{URL: url, StatusCode: status, Kind: ErrTransient}
	case status >= 400:
		return &StatusError{URL: url, StatusCode: status, Kind: ErrNotFound}
	}
	return nil
}

// containsPaywallMarker scans the first part of an HTML body for paywall
// phrases. Only the head of the document is checked to keep this cheap.
func containsPaywallMarker(body []byte) bool {
	head := body
	if len(head) > 64<<10 {
		head = head[:64<<10]
	}
	lower := strings.ToLower(string(head))
	for _, marker := range paywallMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
