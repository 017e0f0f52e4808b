package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/scanner"
)

const linkedDataSelector = `script[type="application/ld+json"]`

// node wraps one decoded JSON-LD value. The payloads mix three shapes for
// the same property (plain string, list, object), so every accessor below
// switches over exactly those variants.
type node struct {
	v any
}

func (n node) present() bool {
	return n.v != nil
}

// text renders scalar variants; lists and objects have no text form.
func (n node) text() string {
	switch t := n.v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func (n node) object() (map[string]any, bool) {
	obj, ok := n.v.(map[string]any)
	return obj, ok
}

func (n node) list() []node {
	switch t := n.v.(type) {
	case []any:
		out := make([]node, 0, len(t))
		for _, v := range t {
			out = append(out, node{v: v})
		}
		return out
	case nil:
		return nil
	default:
		return []node{n}
	}
}

// first unwraps a list to its first element; other variants pass through.
func (n node) first() node {
	if items, ok := n.v.([]any); ok {
		if len(items) == 0 {
			return node{}
		}
		return node{v: items[0]}
	}
	return n
}

func (n node) field(key string) node {
	obj, ok := n.object()
	if !ok {
		return node{}
	}
	return node{v: obj[key]}
}

// firstText returns the first non-empty text among keys.
func (n node) firstText(keys ...string) string {
	for _, key := range keys {
		if v := n.field(key).text(); v != "" {
			return v
		}
	}
	return ""
}

// isType matches @type given either as a string or as a list of strings.
func (n node) isType(name string) bool {
	for _, t := range n.field("@type").list() {
		if t.text() == name {
			return true
		}
	}
	return false
}

// imageRef resolves image: string | list (first) | object{url}.
func (n node) imageRef() string {
	switch n.v.(type) {
	case string:
		return n.text()
	case []any:
		return n.first().imageRef()
	case map[string]any:
		return n.field("url").text()
	default:
		return ""
	}
}

// name resolves brand-like values: string | object{name}.
func (n node) name() string {
	switch n.v.(type) {
	case string:
		return n.text()
	case map[string]any:
		return n.field("name").text()
	case []any:
		return n.first().name()
	default:
		return ""
	}
}

// decodeBlock parses one JSON-LD script body and flattens array and @graph
// payloads into a uniform object list.
func decodeBlock(raw string) ([]node, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode linked data: %w", err)
	}

	root := node{v: payload}
	var candidates []node
	switch payload.(type) {
	case []any:
		candidates = root.list()
	case map[string]any:
		if graph := root.field("@graph"); graph.present() {
			candidates = graph.list()
		} else {
			candidates = []node{root}
		}
	}

	objects := make([]node, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := c.object(); ok {
			objects = append(objects, c)
		}
	}
	return objects, nil
}

// linkedDataObjects decodes every JSON-LD block of doc; malformed blocks are
// reported through onError and skipped.
func linkedDataObjects(doc *goquery.Document, onError func(error)) []node {
	var objects []node
	doc.Find(linkedDataSelector).Each(func(_ int, s *goquery.Selection) {
		decoded, err := decodeBlock(s.Text())
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		objects = append(objects, decoded...)
	})
	return objects
}

// StructuredData extracts products from schema.org Product and ItemList blocks.
type StructuredData struct {
	logger *slog.Logger
}

var _ scanner.Strategy = (*StructuredData)(nil)

// NewStructuredData builds the linked-data stage.
func NewStructuredData(logger *slog.Logger) *StructuredData {
	return &StructuredData{logger: logger}
}

// Name identifies the stage in logs and metrics.
func (s *StructuredData) Name() string {
	return "structured-data"
}

// Extract walks each block separately so that products precede list entries
// of the same block, matching document order across blocks.
func (s *StructuredData) Extract(page scanner.Page) []domain.ProductRecord {
	var records []domain.ProductRecord

	page.Doc.Find(linkedDataSelector).Each(func(i int, sel *goquery.Selection) {
		objects, err := decodeBlock(sel.Text())
		if err != nil {
			s.debug("skip malformed linked data", "block", i, "error", err)
			return
		}

		for _, obj := range objects {
			if !obj.isType("Product") {
				continue
			}
			if rec, ok := productFromNode(obj, page.URL); ok {
				records = append(records, rec)
			}
		}

		for _, obj := range objects {
			if !obj.isType("ItemList") {
				continue
			}
			for _, el := range obj.field("itemListElement").list() {
				if rec, ok := listEntryFromNode(el, page.URL); ok {
					records = append(records, rec)
				}
			}
		}
	})

	return records
}

func productFromNode(product node, base *url.URL) (domain.ProductRecord, bool) {
	title := collapseSpace(product.field("name").text())
	if title == "" {
		return domain.ProductRecord{}, false
	}

	offer := product.field("offers").first()
	link := product.field("url").text()
	if link == "" {
		link = offer.field("url").text()
	}

	return domain.ProductRecord{
		URL:         resolveOrPage(base, link),
		Title:       title,
		Description: product.field("description").text(),
		Image:       resolveOptional(base, product.field("image").imageRef()),
		Price:       offer.firstText("price", "lowPrice"),
		Currency:    offer.field("priceCurrency").text(),
		Brand:       product.field("brand").name(),
	}, true
}

// listEntryFromNode handles both wrapped ({"item": {...}}) and bare list elements.
func listEntryFromNode(el node, base *url.URL) (domain.ProductRecord, bool) {
	product := el
	link := ""
	item := el.field("item")
	switch item.v.(type) {
	case map[string]any:
		product = item
	case string:
		link = item.text()
	}
	if link == "" {
		link = product.field("url").text()
	}

	title := collapseSpace(product.field("name").text())
	if title == "" {
		title = collapseSpace(el.field("name").text())
	}
	if title == "" {
		return domain.ProductRecord{}, false
	}

	offer := product.field("offers").first()
	return domain.ProductRecord{
		URL:         resolveOrPage(base, link),
		Title:       title,
		Description: product.field("description").text(),
		Image:       resolveOptional(base, product.field("image").imageRef()),
		Price:       offer.firstText("price", "lowPrice"),
		Currency:    offer.field("priceCurrency").text(),
	}, true
}

func resolveOrPage(base *url.URL, link string) string {
	if resolved, ok := resolveURL(base, link); ok {
		return resolved
	}
	if base == nil {
		return ""
	}
	return base.String()
}

func (s *StructuredData) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
