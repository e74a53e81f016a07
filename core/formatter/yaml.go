package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/artpar/manifold/core/convention"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatList formats a page of records as YAML.
func (f *YAMLFormatter) FormatList(w io.Writer, d convention.Derived, records []map[string]any, opts FormatOptions) error {
	output := map[string]any{
		"entity": d.Source.Name,
		"count":  len(records),
		"data":   filterRecords(records, opts.Columns),
	}

	return f.encode(w, output)
}

// FormatRecord formats a single record as YAML.
func (f *YAMLFormatter) FormatRecord(w io.Writer, d convention.Derived, record map[string]any, opts FormatOptions) error {
	output := map[string]any{
		"entity": d.Source.Name,
		"data":   filterRecord(record, opts.Columns),
	}

	return f.encode(w, output)
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
