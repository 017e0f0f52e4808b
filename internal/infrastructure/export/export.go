package export

import (
	"fmt"
	"io"

	"ProductScanner/internal/domain"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Exporter renders records with the configured default column names.
type Exporter struct {
	defaults map[string]string
}

// NewExporter keeps a copy of the default column names.
func NewExporter(defaults map[string]string) *Exporter {
	copied := make(map[string]string, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}
	return &Exporter{defaults: copied}
}

// Write renders records in format; custom overrides default column names.
func (e *Exporter) Write(w io.Writer, format string, records []domain.ProductRecord, custom map[string]string) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, Headers(e.defaults, custom), records)
	case FormatXLSX:
		return WriteXLSX(w, Headers(e.defaults, custom), records)
	case FormatJSON:
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}
