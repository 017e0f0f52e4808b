package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"ProductScanner/internal/domain"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadJSON decodes imported records given either as an array or as an
// object with an "items" array.
func ReadJSON(r io.Reader) ([]domain.ProductRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode import: empty document")
	}

	var records []domain.ProductRecord
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode import: %w", err)
		}
	} else {
		var wrapper struct {
			Items []domain.ProductRecord `json:"items"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode import: %w", err)
		}
		records = wrapper.Items
	}

	if records == nil {
		records = []domain.ProductRecord{}
	}
	return records, nil
}
