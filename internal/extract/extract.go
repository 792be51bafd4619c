// Package extract converts raw HTML or PDF payloads into normalized text,
// dispatching to publisher-specific strategies when the source domain is
// recognized.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrExtractionFailed indicates no strategy could produce usable text from
// the payload. Strategies return this instead of panicking on malformed
// input so the caller can degrade to raw best-effort text.
var ErrExtractionFailed = errors.New("extraction failed")

// Extracted is the normalized output of a strategy.
type Extracted struct {
	Title      string
	Authors    []string
	Abstract   string
	Text       string
	Figures    []string
	References []string
}

// Strategy extracts paper content from a payload. CanHandle is probed with
// the source domain; strategies are tried in registration order.
type Strategy interface {
	Name() string
	CanHandle(domain string) bool
	Extract(payload []byte) (*Extracted, error)
}

// Pipeline routes payloads to strategies. The registry always ends with the
// generic HTML extractor, so every HTML payload has a handler; PDF payloads
// bypass the registry and go to the PDF extractor.
type Pipeline struct {
	strategies []Strategy
	pdf        *pdfExtractor
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline with the publisher strategies registered in
// priority order and the generic extractor as the mandatory last entry.
func NewPipeline(logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		strategies: []Strategy{
			newNatureStrategy(),
			newElsevierStrategy(),
			newWileyStrategy(),
			newACSStrategy(),
			newGenericStrategy(),
		},
		pdf:    &pdfExtractor{},
		logger: logger,
	}
}

// Register inserts a strategy before the generic fallback.
func (p *Pipeline) Register(s Strategy) {
	last := len(p.strategies) - 1
	p.strategies = append(p.strategies[:last], s, p.strategies[last])
}

// Extract dispatches a payload to the right strategy. contentType comes from
// the HTTP response; sourceDomain is the host the payload was fetched from.
func (p *Pipeline) Extract(payload []byte, contentType, sourceDomain string) (*Extracted, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrExtractionFailed)
	}

	if isPDFPayload(payload, contentType) {
		out, err := p.pdf.Extract(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf: %v", ErrExtractionFailed, err)
		}
		return out, nil
	}

	domain := strings.ToLower(sourceDomain)
	for _, s := range p.strategies {
		if !s.CanHandle(domain) {
			continue
		}
		out, err := s.Extract(payload)
		if err != nil {
			// A broken publisher strategy must not abort the pipeline;
			// fall through to the next match (ultimately the generic one).
			p.logger.Debug().Str("strategy", s.Name()).Err(err).Msg("strategy failed, trying next")
			continue
		}
		p.logger.Debug().Str("strategy", s.Name()).Str("domain", domain).Msg("extracted")
		return out, nil
	}

	return nil, fmt.Errorf("%w: no strategy produced text for %s", ErrExtractionFailed, sourceDomain)
}

// RawText is the best-effort fallback when every strategy fails: strip
// anything tag-shaped and collapse whitespace.
func RawText(payload []byte) string {
	var sb strings.Builder
	inTag := false
	for _, r := range string(payload) {
		switch {
		case r == '<':
			inTag = true
			sb.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return collapseWhitespace(sb.String())
}

// IsExtractionFailed returns true if the error indicates extraction failure.
func IsExtractionFailed(err error) bool {
	return errors.Is(err, ErrExtractionFailed)
}

func isPDFPayload(payload []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return bytes.HasPrefix(payload, []byte("%PDF-"))
}

// collapseWhitespace squeezes runs of whitespace into single spaces while
// preserving paragraph breaks.
func collapseWhitespace(s string) string {
	var out []string
	for _, para := range strings.Split(s, "\n\n") {
		fields := strings.Fields(para)
		if len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n\n")
}
