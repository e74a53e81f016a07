package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/manifold/core/convention"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats a page of records as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, d convention.Derived, records []map[string]any, opts FormatOptions) error {
	filtered := filterRecords(records, opts.Columns)

	output := map[string]any{
		"entity": d.Source.Name,
		"count":  len(filtered),
		"data":   filtered,
	}

	return f.encode(w, output, opts.Compact)
}

// FormatRecord formats a single record as JSON.
func (f *JSONFormatter) FormatRecord(w io.Writer, d convention.Derived, record map[string]any, opts FormatOptions) error {
	output := map[string]any{
		"entity": d.Source.Name,
		"data":   filterRecord(record, opts.Columns),
	}

	return f.encode(w, output, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// filterRecords narrows a page of records to the requested columns.
func filterRecords(records []map[string]any, columns []string) []map[string]any {
	if len(columns) == 0 {
		return records
	}

	result := make([]map[string]any, len(records))
	for i, record := range records {
		result[i] = filterRecord(record, columns)
	}
	return result
}

// filterRecord narrows a single record to the requested columns.
func filterRecord(record map[string]any, columns []string) map[string]any {
	if record == nil || len(columns) == 0 {
		return record
	}

	result := make(map[string]any)
	for _, col := range columns {
		if val, ok := record[col]; ok {
			result[col] = val
		}
	}
	return result
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
