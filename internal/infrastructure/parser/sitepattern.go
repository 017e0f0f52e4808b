package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/scanner"
)

const (
	altrexRowSelector = "a.product.item"
	altrexStockLabel  = "Voorraad"
	altrexCurrency    = "EUR"
	altrexBrand       = "Altrex"
)

// AltrexTable matches the anchor-per-row spare parts table used by the Altrex shop.
type AltrexTable struct{}

var _ scanner.Strategy = (*AltrexTable)(nil)

// NewAltrexTable builds the site-pattern stage.
func NewAltrexTable() *AltrexTable {
	return &AltrexTable{}
}

// Name identifies the stage in logs and metrics.
func (a *AltrexTable) Name() string {
	return "altrex-table"
}

// Extract returns one record per row when the page has more than one row.
func (a *AltrexTable) Extract(page scanner.Page) []domain.ProductRecord {
	rows := page.Doc.Find(altrexRowSelector)
	if rows.Length() <= 1 {
		return nil
	}

	var records []domain.ProductRecord
	rows.Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find(".col.name").Text())
		href, _ := row.Attr("href")
		if title == "" {
			return
		}
		productURL, ok := resolveURL(page.URL, href)
		if !ok {
			return
		}

		img, _ := row.Find(".col.image img").First().Attr("src")
		sku := ownText(row.Find(".col.sku").First())

		rec := domain.ProductRecord{
			URL:      productURL,
			Title:    title,
			Image:    resolveOptional(page.URL, img),
			Price:    matchPrice(row.Find(".col.price").Text()),
			Currency: altrexCurrency,
			Brand:    altrexBrand,
			SKU:      sku,
			Stock:    altrexStock(row),
		}
		if sku != "" {
			rec.Description = "SKU: " + sku
		}
		records = append(records, rec)
	})

	return records
}

func altrexStock(row *goquery.Selection) string {
	switch {
	case row.Find(".stock-status-wrapper .in-stock").Length() > 0:
		return "In Stock"
	case row.Find(".stock-status-wrapper .out-of-stock").Length() > 0:
		return "Out of Stock"
	}
	raw := strings.TrimSpace(row.Find(".col.stock").Text())
	return strings.TrimSpace(strings.Replace(raw, altrexStockLabel, "", 1))
}
