package parser

import (
	"log/slog"

	"ProductScanner/internal/domain"
	"ProductScanner/internal/scanner"
)

// DetailEnricher applies ParseDetail to a fetched product page.
type DetailEnricher struct {
	logger *slog.Logger
}

var _ scanner.Enricher = (*DetailEnricher)(nil)

// NewDetailEnricher builds the detail-page enricher.
func NewDetailEnricher(logger *slog.Logger) *DetailEnricher {
	return &DetailEnricher{logger: logger}
}

// Enrich fills rating, descriptions, identifiers and stock from the detail page.
func (e *DetailEnricher) Enrich(page scanner.Page, listing domain.ProductRecord) domain.ProductRecord {
	detail := ParseDetail(page.Doc, func(err error) {
		e.debug("skip malformed linked data on detail page", "url", listing.URL, "error", err)
	})
	return detail.Apply(listing)
}

func (e *DetailEnricher) debug(msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, args...)
}
