package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/manifold/core/convention"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatList formats a page of records as a table. Without an explicit
// column list, the table shows the id and the declared fields; the
// implicit timestamps stay out of the way.
func (f *TableFormatter) FormatList(w io.Writer, d convention.Derived, records []map[string]any, opts FormatOptions) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	columns := f.resolveColumns(d, opts.Columns)

	if !opts.NoHeader {
		var headers []string
		for _, col := range columns {
			headers = append(headers, strings.ToUpper(col))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, record := range records {
		var values []string
		for _, col := range columns {
			values = append(values, f.formatValue(record[col], opts.MaxWidth))
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single record as key-value pairs, including
// the timestamps.
func (f *TableFormatter) FormatRecord(w io.Writer, d convention.Derived, record map[string]any, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	columns := opts.Columns
	if len(columns) == 0 {
		for _, field := range d.Fields {
			columns = append(columns, field.Name)
		}
	}

	for _, col := range columns {
		label := f.formatLabel(col)
		val := f.formatValue(record[col], 0)
		fmt.Fprintf(tw, "%s:\t%s\n", label, val)
	}

	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// resolveColumns determines which columns the list view shows.
func (f *TableFormatter) resolveColumns(d convention.Derived, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	var columns []string
	for _, field := range d.Fields {
		if field.Implicit && field.Name != "id" {
			continue
		}
		columns = append(columns, field.Name)
	}
	return columns
}

// formatLabel converts a snake_case field name to a Title Case label.
func (f *TableFormatter) formatLabel(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case float64:
		// Collapse whole numbers so counts read cleanly.
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 0 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func init() {
	if err := Register(NewTableFormatter()); err != nil {
		fmt.Printf("failed to register table formatter: %v\n", err)
	}
}
