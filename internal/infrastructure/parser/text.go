package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceExpr = regexp.MustCompile(`[\s\p{Zs}]+`)
	priceExpr = regexp.MustCompile(`[\d.,]+`)
)

// collapseSpace trims s and folds every whitespace run into a single space.
func collapseSpace(s string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(s, " "))
}

// stripSpace removes all whitespace, used for rating values like "4, 5".
func stripSpace(s string) string {
	return spaceExpr.ReplaceAllString(s, "")
}

// matchPrice returns the first numeric run (digits and separators) in text.
func matchPrice(text string) string {
	return priceExpr.FindString(strings.TrimSpace(text))
}

// resolveURL makes ref absolute against base. Refs already starting with
// "http" are returned verbatim.
func resolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "http") {
		return ref, true
	}
	if base == nil {
		return "", false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(parsed).String(), true
}

// resolveOptional is resolveURL for optional fields: unresolvable refs become "".
func resolveOptional(base *url.URL, ref string) string {
	resolved, _ := resolveURL(base, ref)
	return resolved
}

// ownText returns the trimmed text of sel's direct text nodes, ignoring child elements.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) > 0 && s.Nodes[0].Type == html.TextNode {
			b.WriteString(s.Nodes[0].Data)
		}
	})
	return strings.TrimSpace(b.String())
}

// metaContent reads a meta tag by property, falling back to name.
func metaContent(doc *goquery.Document, key string) string {
	if v, ok := doc.Find(`meta[property="` + key + `"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="` + key + `"]`).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// firstAttr returns the first non-empty attribute among names.
func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
