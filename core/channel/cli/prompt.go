package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

// Prompter reads interactive answers for commands that ask before they
// act: delete confirmation and interactive create.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter over the given streams.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Prompt displays a label and reads one line of input.
func (p *Prompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Anything but yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.Prompt(label + " [y/N]: ")
	if err != nil {
		return false, err
	}

	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// PromptForFields asks for each required declared field that has no
// default and was not already provided. Values collected from flags are
// kept as-is.
func (p *Prompter) PromptForFields(d convention.Derived, existing map[string]any) (map[string]any, error) {
	data := make(map[string]any, len(existing))
	for k, v := range existing {
		data[k] = v
	}

	for _, f := range d.Fields {
		if f.Implicit || !f.Required || f.Default != nil {
			continue
		}
		if _, ok := data[f.Name]; ok {
			continue
		}

		value, err := p.Prompt(promptLabel(f.Name) + " (required): ")
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, fmt.Errorf("field %q is required", f.Name)
		}

		converted, err := convertPrompted(value, f.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		data[f.Name] = converted
	}

	return data, nil
}

// convertPrompted parses a typed value out of a prompted line.
func convertPrompted(value string, kind schema.FieldKind) (any, error) {
	switch kind {
	case schema.FieldKindInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		return n, nil
	case schema.FieldKindDecimal:
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return x, nil
	case schema.FieldKindBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return b, nil
	case schema.FieldKindJSON:
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return v, nil
	default:
		return value, nil
	}
}

// promptLabel turns a snake_case field name into a readable label.
func promptLabel(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
