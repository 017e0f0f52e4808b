package parser

import (
	"ProductScanner/internal/domain"
	"ProductScanner/internal/scanner"
)

// OpenGraph derives a single product from social preview meta tags.
type OpenGraph struct{}

var _ scanner.Strategy = (*OpenGraph)(nil)

// NewOpenGraph builds the single-product fallback stage.
func NewOpenGraph() *OpenGraph {
	return &OpenGraph{}
}

// Name identifies the stage in logs and metrics.
func (o *OpenGraph) Name() string {
	return "open-graph"
}

// Extract returns at most one record and only when og:title and og:url are both set.
func (o *OpenGraph) Extract(page scanner.Page) []domain.ProductRecord {
	title := collapseSpace(metaContent(page.Doc, "og:title"))
	productURL, ok := resolveURL(page.URL, metaContent(page.Doc, "og:url"))
	if title == "" || !ok {
		return nil
	}

	return []domain.ProductRecord{{
		URL:         productURL,
		Title:       title,
		Description: metaContent(page.Doc, "og:description"),
		Image:       resolveOptional(page.URL, metaContent(page.Doc, "og:image")),
		Price:       metaContent(page.Doc, "product:price:amount"),
		Currency:    metaContent(page.Doc, "product:price:currency"),
	}}
}
