package domain

import (
	"strconv"
	"time"
)

// ProductRecord is a single product extracted from a listing or detail page.
type ProductRecord struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	ShortDescription string `json:"shortDescription,omitempty"`
	LongDescription  string `json:"longDescription,omitempty"`
	Image            string `json:"image,omitempty"`
	Price            string `json:"price,omitempty"`
	Currency         string `json:"currency,omitempty"`
	Brand            string `json:"brand,omitempty"`
	Rating           string `json:"rating,omitempty"`
	ReviewCount      string `json:"reviewCount,omitempty"`
	SKU              string `json:"sku,omitempty"`
	EAN              string `json:"ean,omitempty"`
	Stock            string `json:"stock,omitempty"`
	Error            bool   `json:"error,omitempty"`
}

// Key identifies a record for deduplication.
func (p ProductRecord) Key() string {
	return p.URL + p.Title
}

// ExtractionResult is the ordered output of one pipeline run.
type ExtractionResult struct {
	Items    []ProductRecord `json:"items"`
	Duration string          `json:"duration"`
}

// ValidItems drops failure placeholders.
func (r ExtractionResult) ValidItems() []ProductRecord {
	valid := make([]ProductRecord, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Error {
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

// HasFailure reports whether the result carries a failure placeholder.
func (r ExtractionResult) HasFailure() bool {
	for _, item := range r.Items {
		if item.Error {
			return true
		}
	}
	return false
}

// FailedPage builds the placeholder returned when the listing page answers with a non-2xx status.
func FailedPage(url string, status int) ProductRecord {
	return ProductRecord{
		URL:         url,
		Title:       "Failed to access URL",
		Description: "Status: " + strconv.Itoa(status),
		Error:       true,
	}
}

// Item is a persisted product record inside a session.
type Item struct {
	ID string `json:"id"`
	ProductRecord
	CreatedAt time.Time `json:"createdAt"`
}

// Session groups items extracted from one source for later editing and export.
type Session struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	SourceURL    string            `json:"sourceUrl,omitempty"`
	Hostname     string            `json:"hostname,omitempty"`
	Favicon      string            `json:"favicon,omitempty"`
	LastDuration string            `json:"lastDuration,omitempty"`
	Columns      map[string]string `json:"columns,omitempty"`
	Items        []Item            `json:"items"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
