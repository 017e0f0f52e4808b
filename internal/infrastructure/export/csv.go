package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"ProductScanner/internal/domain"
)

// WriteCSV writes one header row followed by a row per record.
func WriteCSV(w io.Writer, headers []string, records []domain.ProductRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(Row(rec)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
