package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Publisher strategies mirror each publisher's article layout. Authors come
// from citation_author meta tags first in all of them (see extractAuthors);
// the selectors here are layout fallbacks.

func newNatureStrategy() Strategy {
	return &htmlStrategy{rules: htmlRules{
		name:    "nature",
		domains: []string{"nature.com", "springer.com", "springerlink.com"},
		titleSelectors: []string{
			"h1.c-article-title", "h1.article-item__title", "h1",
		},
		authorSelectors: []string{"li.c-article-author-list__item a"},
		absSelectors: []string{
			"#Abs1-content", `div.c-article-section__content[id*="Abs"]`,
			"#abstract", `section[data-title="Abstract"]`,
		},
		bodySelectors: []string{"div.c-article-body", "div.article__body"},
		refSelectors:  []string{`section[data-title="References"]`, "#Bib1"},
		body:          natureBody,
	}}
}

// natureBody walks section[data-title] blocks, which Nature uses for article
// sections, skipping abstract and back matter.
func natureBody(doc *goquery.Document) string {
	var parts []string
	doc.Find("section[data-title]").Each(func(_ int, sec *goquery.Selection) {
		title, _ := sec.Attr("data-title")
		switch strings.ToLower(title) {
		case "abstract", "references", "supplementary information":
			return
		}
		content := sec.Find(".c-article-section__content").First()
		if content.Length() == 0 {
			return
		}
		if text := collapseWhitespace(content.Text()); text != "" {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", title, text))
		}
	})
	return strings.Join(parts, "\n\n")
}

func newElsevierStrategy() Strategy {
	return &htmlStrategy{rules: htmlRules{
		name:    "elsevier",
		domains: []string{"sciencedirect.com", "elsevier.com"},
		titleSelectors: []string{
			"span.title-text", "h1.article-header__title", `meta[name="citation_title"]`,
		},
		authorSelectors: []string{".author-group .author span.content"},
		absSelectors: []string{
			"div.abstract", "#abstracts", "div.Abstracts", "section#abstract",
		},
		bodySelectors: []string{"div#body", "div.Body", "article", "#main-content"},
		refSelectors:  []string{"#bibliography", "section.bibliography"},
	}}
}

func newWileyStrategy() Strategy {
	return &htmlStrategy{rules: htmlRules{
		name:    "wiley",
		domains: []string{"onlinelibrary.wiley.com", "wiley.com"},
		titleSelectors: []string{
			"h1.citation__title", ".article-header__title", `meta[name="citation_title"]`,
		},
		authorSelectors: []string{".loa-authors .author-name span"},
		absSelectors: []string{
			"section.article-section__abstract", "div.abstract-group", "#abstract",
		},
		bodySelectors: []string{"article.article__body", ".article-body-section"},
		refSelectors:  []string{"section#references-section"},
		body:          wileyBody,
	}}
}

func wileyBody(doc *goquery.Document) string {
	var parts []string
	doc.Find("section.article-section__content").Each(func(_ int, sec *goquery.Selection) {
		if text := collapseWhitespace(sec.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

func newACSStrategy() Strategy {
	return &htmlStrategy{rules: htmlRules{
		name:    "acs",
		domains: []string{"pubs.acs.org"},
		titleSelectors: []string{
			"h1.article_header-title", ".article-title", `meta[name="citation_title"]`,
		},
		authorSelectors: []string{".loa li .hlFld-ContribAuthor"},
		absSelectors: []string{
			"div.article_abstract-content", "#abstractBox", "p.articleBody_abstractText",
		},
		bodySelectors: []string{"article", "#article-body"},
		refSelectors:  []string{"#references", ".article_references"},
		body:          acsBody,
	}}
}

func acsBody(doc *goquery.Document) string {
	content := doc.Find("div.article_content").First()
	if content.Length() == 0 {
		return ""
	}
	var parts []string
	content.Find(".NLM_sec").Each(func(_ int, sec *goquery.Selection) {
		if text := collapseWhitespace(sec.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return collapseWhitespace(content.Text())
	}
	return strings.Join(parts, "\n\n")
}
