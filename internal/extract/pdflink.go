package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pdfLinkKeywords mark anchors that point at a full-text PDF.
var pdfLinkKeywords = []string{"pdf", "download pdf", "full text pdf"}

// FindPDFLink scans an HTML page for a link to the article's PDF and
// resolves it against baseURL. Returns "" if no candidate is found.
func FindPDFLink(payload []byte, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" {
			return true
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		class, _ := a.Attr("class")
		class = strings.ToLower(class)

		match := strings.HasSuffix(strings.ToLower(href), ".pdf") || strings.Contains(class, "pdf")
		for _, kw := range pdfLinkKeywords {
			if strings.Contains(text, kw) {
				match = true
				break
			}
		}
		if !match {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	return found
}
