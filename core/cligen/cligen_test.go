package cligen

import (
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

func makeInvoice() schema.Entity {
	return schema.Entity{
		Name: "Invoice",
		Fields: []schema.Field{
			{Name: "total", Kind: schema.FieldKindDecimal, Required: true},
			{Name: "note", Kind: schema.FieldKindText},
		},
		Operations: []schema.Operation{
			{
				Name:   "send",
				Public: true,
				Params: []schema.Param{{Name: "recipient", Kind: schema.FieldKindText}},
			},
		},
	}
}

func TestGenerate_DefaultPolicy(t *testing.T) {
	d := convention.Derive(makeInvoice())

	commands, err := Generate(d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(commands) != 5 {
		t.Fatalf("got %d commands, want 5", len(commands))
	}

	for _, cmd := range commands {
		if cmd.Group != "invoice" {
			t.Errorf("command %s group = %q, want invoice", cmd.Action, cmd.Group)
		}
	}

	wantOrder := []string{"list", "get", "create", "update", "delete"}
	for i, want := range wantOrder {
		if commands[i].Action != want {
			t.Errorf("commands[%d].Action = %q, want %q", i, commands[i].Action, want)
		}
	}
}

func TestGenerate_ListFlags(t *testing.T) {
	d := convention.Derive(makeInvoice())

	commands, err := Generate(d)
	if err != nil {
		t.Fatal(err)
	}

	list := commands[0]
	if list.IDArg {
		t.Error("list should not take an id argument")
	}

	wantFlags := []string{"limit", "offset", "orderBy", "where"}
	if len(list.Flags) != len(wantFlags) {
		t.Fatalf("list has %d flags, want %d", len(list.Flags), len(wantFlags))
	}
	for i, want := range wantFlags {
		if list.Flags[i].Name != want {
			t.Errorf("list.Flags[%d].Name = %q, want %q", i, list.Flags[i].Name, want)
		}
	}
}

func TestGenerate_IDBecomesPositional(t *testing.T) {
	d := convention.Derive(makeInvoice())

	commands, err := Generate(d)
	if err != nil {
		t.Fatal(err)
	}

	get := commands[1]
	if !get.IDArg {
		t.Error("get should take an id argument")
	}
	if get.Use != "get <id>" {
		t.Errorf("get.Use = %q, want %q", get.Use, "get <id>")
	}
	if len(get.Flags) != 0 {
		t.Errorf("get should have no flags, got %d", len(get.Flags))
	}

	update := commands[3]
	if !update.IDArg {
		t.Error("update should take an id argument")
	}
	// id is positional, the two fields stay flags.
	if len(update.Flags) != 2 {
		t.Errorf("update has %d flags, want 2", len(update.Flags))
	}
	for _, f := range update.Flags {
		if f.Required {
			t.Errorf("update flag %q should be optional", f.Name)
		}
	}
}

func TestGenerate_CreateFlags(t *testing.T) {
	d := convention.Derive(makeInvoice())

	commands, err := Generate(d)
	if err != nil {
		t.Fatal(err)
	}

	create := commands[2]
	if create.IDArg {
		t.Error("create should not take an id argument")
	}
	if len(create.Flags) != 2 {
		t.Fatalf("create has %d flags, want 2", len(create.Flags))
	}
	if create.Flags[0].Name != "total" || !create.Flags[0].Required {
		t.Errorf("create.Flags[0] = %+v, want required total", create.Flags[0])
	}
	if create.Flags[1].Required {
		t.Error("note flag should be optional")
	}
}

func TestGenerate_CustomOperation(t *testing.T) {
	e := makeInvoice()
	e.Access = schema.Channels{
		CLI: schema.AccessPolicy{
			Mode:    schema.PolicyFiltered,
			Include: []string{"send"},
		},
	}
	d := convention.Derive(e)

	commands, err := Generate(d)
	if err != nil {
		t.Fatal(err)
	}

	if len(commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(commands))
	}

	send := commands[0]
	if send.Use != "send <id>" {
		t.Errorf("send.Use = %q, want %q", send.Use, "send <id>")
	}
	if len(send.Flags) != 1 || send.Flags[0].Name != "recipient" {
		t.Fatalf("send.Flags = %+v, want one recipient flag", send.Flags)
	}
	if !send.Flags[0].Required {
		t.Error("operation params should be required flags")
	}
}

func TestGenerate_PolicyNone(t *testing.T) {
	e := makeInvoice()
	e.Access = schema.Channels{CLI: schema.AccessPolicy{Mode: schema.PolicyNone}}

	commands, err := Generate(convention.Derive(e))
	if err != nil {
		t.Fatal(err)
	}
	if len(commands) != 0 {
		t.Errorf("got %d commands, want none under cli: false", len(commands))
	}
}

func TestGenerate_ChannelIndependence(t *testing.T) {
	// Disabling the CLI channel must not touch the api policy's view.
	e := makeInvoice()
	e.Access = schema.Channels{CLI: schema.AccessPolicy{Mode: schema.PolicyNone}}
	d := convention.Derive(e)

	commands, err := Generate(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(commands) != 0 {
		t.Error("cli: false should remove all commands")
	}

	// The api channel still exposes its defaults.
	if !e.Access.For(schema.ChannelAPI).Allows("list") {
		t.Error("api policy should be unaffected by cli: false")
	}
}

func TestGenerate_InvalidPolicy(t *testing.T) {
	e := makeInvoice()
	e.Access = schema.Channels{
		CLI: schema.AccessPolicy{Mode: schema.PolicyFiltered, Include: []string{"archive"}},
	}

	_, err := Generate(convention.Derive(e))
	var genErr *schema.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %T, want *schema.GenerationError", err)
	}
}

func TestGenerateAll_BatchContinues(t *testing.T) {
	c := catalog.New()

	if err := c.Register(makeInvoice()); err != nil {
		t.Fatal(err)
	}
	broken := schema.Entity{
		Name:   "Broken",
		Fields: []schema.Field{{Name: "value", Kind: schema.FieldKindText}},
		Access: schema.Channels{
			CLI: schema.AccessPolicy{Mode: schema.PolicyFiltered, Include: []string{"nope"}},
		},
	}
	if err := c.Register(broken); err != nil {
		t.Fatal(err)
	}

	commands, err := GenerateAll(c)
	if err == nil {
		t.Fatal("GenerateAll() should report the broken entity")
	}
	if len(commands) != 5 {
		t.Errorf("got %d commands, want 5 from the healthy entity", len(commands))
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	d := convention.Derive(makeInvoice())

	first, err := Generate(d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := Generate(d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Generate() should be idempotent over an unchanged declaration")
	}
}
