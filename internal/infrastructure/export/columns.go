package export

import (
	"regexp"
	"strings"

	"ProductScanner/internal/domain"
)

// Fields lists the exported record fields in column order.
var Fields = []string{
	"title", "price", "stock", "rating", "reviewCount", "shortDescription",
	"longDescription", "sku", "brand", "url", "image",
}

var fileNameSpace = regexp.MustCompile(`\s+`)

// Headers resolves the header for every field: custom names first, then
// defaults, then the field name itself.
func Headers(defaults, custom map[string]string) []string {
	headers := make([]string, len(Fields))
	for i, field := range Fields {
		switch {
		case custom[field] != "":
			headers[i] = custom[field]
		case defaults[field] != "":
			headers[i] = defaults[field]
		default:
			headers[i] = field
		}
	}
	return headers
}

// Row renders a record in Fields order. The short description falls back
// to the listing description.
func Row(rec domain.ProductRecord) []string {
	short := rec.ShortDescription
	if short == "" {
		short = rec.Description
	}
	return []string{
		rec.Title, rec.Price, rec.Stock, rec.Rating, rec.ReviewCount, short,
		rec.LongDescription, rec.SKU, rec.Brand, rec.URL, rec.Image,
	}
}

// FileName derives a download name from a session name.
func FileName(name, ext string) string {
	base := fileNameSpace.ReplaceAllString(strings.TrimSpace(name), "_")
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "products"
	}
	return base + "." + ext
}

// Records unwraps stored items.
func Records(items []domain.Item) []domain.ProductRecord {
	records := make([]domain.ProductRecord, len(items))
	for i, item := range items {
		records[i] = item.ProductRecord
	}
	return records
}
