package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
)

const (
	ratingSelector    = `.rating-result, .rating-summary, [itemprop="ratingValue"]`
	shortDescSelector = `.product-info-main .description, .short-description, .product-short-description`
	longDescSelector  = `.product.attribute.description, #description, .description, .product-long-description`
	skuSelector       = `.sku, .product-sku`
	gtinSelector      = `[itemprop="gtin13"], [itemprop="gtin"]`
	stockSelector     = `.stock, .availability, [class*="stock"]`
)

// availability maps schema.org availability URIs to display strings.
var availability = []struct {
	token string
	label string
}{
	{"InStock", "In Stock"},
	{"OutOfStock", "Out of Stock"},
	{"PreOrder", "Pre-Order"},
}

// Detail holds the fields a product detail page can add to a listing record.
type Detail struct {
	Rating           string
	ReviewCount      string
	ShortDescription string
	LongDescription  string
	SKU              string
	EAN              string
	Stock            string
}

// ParseDetail reads a product detail page. Structured data wins over markup
// heuristics for every field. onError observes malformed linked-data blocks.
func ParseDetail(doc *goquery.Document, onError func(error)) Detail {
	product := detailProduct(doc, onError)

	var d Detail

	rating := product.field("aggregateRating").first()
	d.Rating = rating.field("ratingValue").text()
	d.ReviewCount = rating.firstText("reviewCount", "ratingCount")
	if d.Rating == "" {
		if el := doc.Find(ratingSelector).First(); el.Length() > 0 {
			d.Rating = firstAttr(el, "content", "title")
			if d.Rating == "" {
				d.Rating = strings.TrimSpace(el.Text())
			}
		}
	}
	d.Rating = stripSpace(d.Rating)

	shortEls := doc.Find(shortDescSelector)
	d.ShortDescription = product.field("description").text()
	if d.ShortDescription == "" {
		d.ShortDescription = metaNameContent(doc, "description")
	}
	if d.ShortDescription == "" && shortEls.Length() > 0 {
		d.ShortDescription = strings.TrimSpace(shortEls.First().Text())
	}
	d.LongDescription = strings.TrimSpace(doc.Find(longDescSelector).NotSelection(shortEls).First().Text())

	d.SKU = product.field("sku").text()
	if d.SKU == "" {
		d.SKU = strings.TrimSpace(doc.Find(`[itemprop="sku"]`).First().Text())
	}
	if d.SKU == "" {
		d.SKU = strings.TrimSpace(strings.Replace(doc.Find(skuSelector).First().Text(), "SKU:", "", 1))
	}

	d.EAN = product.firstText("gtin13", "gtin", "gtin12", "gtin14", "gtin8")
	if d.EAN == "" {
		d.EAN = firstAttr(doc.Find(gtinSelector).First(), "content")
	}

	d.Stock = stockLabel(product.field("offers").first().field("availability").text())
	if d.Stock == "" {
		d.Stock = strings.TrimSpace(doc.Find(stockSelector).First().Text())
	}

	return d
}

// Apply fills item with detail values, keeping the listing value wherever the
// detail page had nothing.
func (d Detail) Apply(item domain.ProductRecord) domain.ProductRecord {
	item.Rating = prefer(d.Rating, item.Rating)
	item.ReviewCount = prefer(d.ReviewCount, item.ReviewCount)
	item.ShortDescription = prefer(d.ShortDescription, item.ShortDescription)
	item.LongDescription = prefer(d.LongDescription, item.LongDescription)
	item.SKU = prefer(d.SKU, item.SKU)
	item.EAN = prefer(d.EAN, item.EAN)
	item.Stock = prefer(d.Stock, item.Stock)
	return item
}

// detailProduct returns the last Product object across all linked-data blocks.
func detailProduct(doc *goquery.Document, onError func(error)) node {
	var product node
	for _, obj := range linkedDataObjects(doc, onError) {
		if obj.isType("Product") {
			product = obj
		}
	}
	return product
}

func stockLabel(value string) string {
	if value == "" {
		return ""
	}
	for _, a := range availability {
		if strings.Contains(value, a.token) {
			return a.label
		}
	}
	return ""
}

func metaNameContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}

func prefer(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
