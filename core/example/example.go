// Package example ships a small set of declared entities. The demo server
// falls back to them when no definitions directory is configured, and the
// end-to-end tests exercise every channel through them.
package example

import "github.com/artpar/manifold/core/schema"

// Entities returns the built-in demo entities in registration order.
func Entities() []schema.Entity {
	return []schema.Entity{Invoice(), Category(), Tag()}
}

// Invoice declares a billable invoice with a custom send operation.
// Every channel exposes the defaults plus send; the AI channel is
// narrowed to read-and-send only.
func Invoice() schema.Entity {
	minTotal := 0.0

	return schema.Entity{
		Name:        "Invoice",
		Description: "Customer invoice with totals and payment state",
		Fields: []schema.Field{
			{
				Name:        "total",
				Kind:        schema.FieldKindDecimal,
				Required:    true,
				Constraints: schema.Constraints{Min: &minTotal},
				Description: "Amount due in the invoice currency",
			},
			{
				Name:        "currency",
				Kind:        schema.FieldKindText,
				Default:     "EUR",
				Constraints: schema.Constraints{Pattern: "^[A-Z]{3}$"},
				Description: "ISO 4217 currency code",
			},
			{
				Name:        "paid",
				Kind:        schema.FieldKindBoolean,
				Default:     false,
				Description: "Whether payment has been received",
			},
			{
				Name:        "issued_at",
				Kind:        schema.FieldKindDatetime,
				Description: "When the invoice was issued",
			},
			{
				Name:        "category",
				Kind:        schema.FieldKindReference,
				Constraints: schema.Constraints{Target: "Category"},
				Description: "Billing category",
			},
		},
		Operations: []schema.Operation{
			{
				Name:        "send",
				Public:      true,
				Params:      []schema.Param{{Name: "recipient", Kind: schema.FieldKindText, Description: "Email address to deliver the invoice to"}},
				Returns:     schema.FieldKindBoolean,
				Description: "Deliver the invoice and mark it as sent",
			},
		},
		Access: schema.Channels{
			API: schema.AccessPolicy{
				Mode:    schema.PolicyFiltered,
				Include: []string{"list", "get", "create", "update", "delete", "send"},
			},
			CLI: schema.AccessPolicy{
				Mode:    schema.PolicyFiltered,
				Include: []string{"list", "get", "create", "update", "delete", "send"},
			},
			Tool: schema.AccessPolicy{
				Mode:    schema.PolicyFiltered,
				Include: []string{"list", "get", "send"},
			},
		},
	}
}

// Category declares a plain lookup entity with zero access configuration,
// which exposes the default actions on every channel.
func Category() schema.Entity {
	maxName := 80

	return schema.Entity{
		Name:        "Category",
		Description: "Billing category for grouping invoices",
		Fields: []schema.Field{
			{
				Name:        "name",
				Kind:        schema.FieldKindText,
				Required:    true,
				Constraints: schema.Constraints{Unique: true, MaxLength: &maxName},
			},
			{
				Name: "description",
				Kind: schema.FieldKindText,
			},
		},
	}
}

// Tag declares a label entity hidden from the AI channel.
func Tag() schema.Entity {
	return schema.Entity{
		Name:        "Tag",
		Description: "Freeform label attachable to invoices",
		Fields: []schema.Field{
			{
				Name:        "name",
				Kind:        schema.FieldKindText,
				Required:    true,
				Constraints: schema.Constraints{Unique: true},
			},
			{
				Name:        "color",
				Kind:        schema.FieldKindText,
				Default:     "#cccccc",
				Constraints: schema.Constraints{Pattern: "^#[0-9a-fA-F]{6}$"},
				Description: "Display color as a hex triplet",
			},
		},
		Access: schema.Channels{
			Tool: schema.AccessPolicy{Mode: schema.PolicyNone},
		},
	}
}
