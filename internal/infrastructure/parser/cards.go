package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/scanner"
)

const (
	// minCardMatches: a selector must match more than this many elements to count as a grid.
	minCardMatches = 2
	// minTitleLength: shorter titles are icons, badges or ratings rather than product names.
	minTitleLength = 2

	cardTitleSelector = `.product-item-link, .product-name, .product-title, .name, h2, h3, h4, h5, [class*="title"], [class*="name"]`
	cardPriceSelector = `.price, .amount, .money, [class*="price"]`
	cardStockSelector = `.stock, .availability, .inventory, .in-stock, .out-of-stock, [class*="stock"], [class*="availability"]`
)

// cardSelectors is ordered from most to least specific; the first grid that
// yields a valid product wins.
var cardSelectors = []string{
	".product-card",
	".product-item",
	".grid-view-item",
	"li.product",
	".card",
	".item",
	"[data-product-id]",
	".product",
	".products-grid > div",
	".product-list > div",
	".shop-item",
	"article",
	".product-tile",
	".product-wrapper",
	".v-card",
}

// CardGrid detects repeating product cards on listing pages.
type CardGrid struct {
	selectors []string
}

var _ scanner.Strategy = (*CardGrid)(nil)

// NewCardGrid builds the card stage with the default selector list.
func NewCardGrid() *CardGrid {
	return &CardGrid{selectors: cardSelectors}
}

// Name identifies the stage in logs and metrics.
func (c *CardGrid) Name() string {
	return "card-grid"
}

// Extract scans selectors in order and returns the candidates of the first
// grid with at least one valid card.
func (c *CardGrid) Extract(page scanner.Page) []domain.ProductRecord {
	for _, selector := range c.selectors {
		elements := page.Doc.Find(selector)
		if elements.Length() <= minCardMatches {
			continue
		}

		var candidates []domain.ProductRecord
		elements.Each(func(_ int, card *goquery.Selection) {
			if rec, ok := parseCard(card, page); ok {
				candidates = append(candidates, rec)
			}
		})

		if len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

func parseCard(card *goquery.Selection, page scanner.Page) (domain.ProductRecord, bool) {
	links := card.Find("a")
	link := links.First()
	img := card.Find("img").First()
	if link.Length() == 0 || img.Length() == 0 {
		return domain.ProductRecord{}, false
	}

	title := collapseSpace(cardTitle(card, links))
	if utf8.RuneCountInString(title) <= minTitleLength {
		return domain.ProductRecord{}, false
	}

	href, _ := link.Attr("href")
	productURL, ok := resolveURL(page.URL, href)
	if !ok {
		return domain.ProductRecord{}, false
	}

	return domain.ProductRecord{
		URL:   productURL,
		Title: title,
		Image: resolveOptional(page.URL, firstAttr(img, "src", "data-src", "data-lazy-src")),
		Price: matchPrice(card.Find(cardPriceSelector).Text()),
		Stock: strings.TrimSpace(card.Find(cardStockSelector).First().Text()),
	}, true
}

// cardTitle prefers an explicit title element, then the first link text,
// then the second link (the first one often wraps only the image).
func cardTitle(card, links *goquery.Selection) string {
	if title := strings.TrimSpace(card.Find(cardTitleSelector).First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(links.First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(links.Eq(1).Text())
}
