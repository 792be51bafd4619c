package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlRules describes one publisher's page layout as ordered selector lists.
// The first selector that matches wins. A publisher with section-structured
// bodies supplies a custom body function instead of bodySelectors.
type htmlRules struct {
	name            string
	domains         []string
	titleSelectors  []string
	authorSelectors []string
	absSelectors    []string
	bodySelectors   []string
	refSelectors    []string
	body            func(doc *goquery.Document) string
}

// htmlStrategy extracts via goquery using a rule set.
type htmlStrategy struct {
	rules htmlRules
}

func (s *htmlStrategy) Name() string { return s.rules.name }

func (s *htmlStrategy) CanHandle(domain string) bool {
	for _, d := range s.rules.domains {
		if strings.Contains(domain, d) {
			return true
		}
	}
	return false
}

func (s *htmlStrategy) Extract(payload []byte) (*Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	// Strip chrome before extracting text.
	doc.Find("script, style, nav, header, footer, aside").Remove()

	out := &Extracted{
		Title:      s.title(doc),
		Authors:    extractAuthors(doc, s.rules.authorSelectors),
		Abstract:   firstText(doc, s.rules.absSelectors),
		Figures:    figureCaptions(doc),
		References: extractReferences(doc, s.rules.refSelectors),
	}

	if s.rules.body != nil {
		out.Text = s.rules.body(doc)
	}
	if out.Text == "" {
		out.Text = firstSubstantialText(doc, s.rules.bodySelectors)
	}

	if out.Text == "" && out.Abstract == "" {
		return nil, fmt.Errorf("%w: no body or abstract found", ErrExtractionFailed)
	}
	return out, nil
}

func (s *htmlStrategy) title(doc *goquery.Document) string {
	for _, sel := range s.rules.titleSelectors {
		if strings.HasPrefix(sel, "meta[") {
			if v, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
			continue
		}
		if el := doc.Find(sel).First(); el.Length() > 0 {
			if t := strings.TrimSpace(el.Text()); t != "" {
				return t
			}
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return ""
}

// extractAuthors prefers citation_author meta tags, which publishers emit
// consistently, before falling back to layout-specific selectors.
func extractAuthors(doc *goquery.Document, selectors []string) []string {
	var authors []string
	doc.Find(`meta[name="citation_author"]`).Each(func(_ int, sel *goquery.Selection) {
		if name, ok := sel.Attr("content"); ok {
			if name = strings.TrimSpace(name); name != "" {
				authors = append(authors, name)
			}
		}
	})
	if len(authors) > 0 {
		return authors
	}
	for _, s := range selectors {
		doc.Find(s).Each(func(_ int, sel *goquery.Selection) {
			if name := strings.TrimSpace(sel.Text()); name != "" {
				authors = append(authors, name)
			}
		})
		if len(authors) > 0 {
			break
		}
	}
	return authors
}

func extractReferences(doc *goquery.Document, selectors []string) []string {
	var refs []string
	for _, s := range selectors {
		section := doc.Find(s).First()
		if section.Length() == 0 {
			continue
		}
		section.Find("li").Each(func(_ int, sel *goquery.Selection) {
			if t := collapseWhitespace(sel.Text()); len(t) > 20 {
				refs = append(refs, t)
			}
		})
		if len(refs) > 0 {
			break
		}
	}
	return refs
}

func figureCaptions(doc *goquery.Document) []string {
	var captions []string
	doc.Find("figure").Each(func(_ int, fig *goquery.Selection) {
		cap := fig.Find("figcaption").First()
		if cap.Length() == 0 {
			return
		}
		if t := collapseWhitespace(cap.Text()); len(t) > 10 {
			captions = append(captions, t)
		}
	})
	return captions
}

// firstText returns the cleaned text of the first selector that matches.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		if el := doc.Find(s).First(); el.Length() > 0 {
			if t := collapseWhitespace(el.Text()); t != "" {
				return t
			}
		}
	}
	return ""
}

// firstSubstantialText returns the first selector match whose text looks like
// an article body rather than a stub.
func firstSubstantialText(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		if el := doc.Find(s).First(); el.Length() > 0 {
			if t := collapseWhitespace(el.Text()); len(t) > 500 {
				return t
			}
		}
	}
	return ""
}

// newGenericStrategy builds the mandatory registry tail: it handles every
// domain and tries common article layouts, ending with a largest-block scan.
func newGenericStrategy() Strategy {
	return &genericStrategy{
		htmlStrategy{rules: htmlRules{
			name: "generic",
			titleSelectors: []string{
				`meta[name="citation_title"]`,
				"h1.article-title", "h1.c-article-title", "h1#title",
				".article-header h1", "article h1", "h1",
			},
			absSelectors: []string{
				"#abstract", ".abstract", `section[data-title="Abstract"]`,
				"section.abstract", "div.abstractSection",
			},
			bodySelectors: []string{
				"article", `[role="main"]`, "main",
				".article-body", ".article-content", "#body", ".body",
			},
			refSelectors: []string{"#references", ".references", "section.bibliography"},
		}},
	}
}

type genericStrategy struct {
	htmlStrategy
}

func (s *genericStrategy) CanHandle(string) bool { return true }

func (s *genericStrategy) Extract(payload []byte) (*Extracted, error) {
	out, err := s.htmlStrategy.Extract(payload)
	if err == nil {
		return out, nil
	}

	// Last resort before giving up: the largest text block on the page.
	doc, derr := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if derr != nil {
		return nil, fmt.Errorf("parsing html: %w", derr)
	}
	doc.Find("script, style, nav, header, footer, aside").Remove()

	best := ""
	doc.Find("div, section").Each(func(_ int, sel *goquery.Selection) {
		if t := collapseWhitespace(sel.Text()); len(t) > len(best) {
			best = t
		}
	})
	if best == "" {
		return nil, err
	}
	return &Extracted{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  best,
	}, nil
}
