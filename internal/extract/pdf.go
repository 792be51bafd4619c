package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Matches figure captions like "Figure 3: ..." or "Fig. 2. ..." at line start.
var figureCaptionPattern = regexp.MustCompile(`(?im)^(Fig(?:ure|\.)\s*\d+[.:]\s*.+)$`)

// pdfExtractor pulls plain text out of PDF bytes.
type pdfExtractor struct{}

func (e *pdfExtractor) Name() string { return "pdf" }

// CanHandle is unused for PDFs; dispatch is on content type, not domain.
func (e *pdfExtractor) CanHandle(string) bool { return false }

func (e *pdfExtractor) Extract(payload []byte) (*Extracted, error) {
	text, err := pdfText(payload, 0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text (scanned or image-only pdf)")
	}

	return &Extracted{
		Text:    cleanPDFText(text),
		Figures: figureCaptionsFromText(text),
	}, nil
}

// pdfText extracts text from up to maxPages pages (0 = all).
func pdfText(payload []byte, maxPages int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	if maxPages <= 0 || maxPages > reader.NumPage() {
		maxPages = reader.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken content streams are skipped, not fatal.
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// cleanPDFText removes hyphenation artifacts and squeezes blank runs.
func cleanPDFText(text string) string {
	// Rejoin words hyphenated across line breaks.
	text = strings.ReplaceAll(text, "-\n", "")
	return collapseWhitespace(text)
}

func figureCaptionsFromText(text string) []string {
	matches := figureCaptionPattern.FindAllString(text, -1)
	var captions []string
	for _, m := range matches {
		if m = strings.TrimSpace(m); len(m) > 15 {
			captions = append(captions, m)
		}
	}
	return captions
}
