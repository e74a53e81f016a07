// Package cligen derives CLI command descriptors from entity
// declarations. Descriptors are pure data: the CLI channel turns them
// into cobra commands, keeping generation testable without a terminal.
package cligen

import (
	"errors"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/schema"
)

// Command describes one generated CLI command.
type Command struct {
	// Entity is the owning class name.
	Entity string

	// Action is the action the command invokes.
	Action string

	// Group is the parent command name (lowercase singular class name).
	Group string

	// Use is the cobra use line, e.g. "get <id>".
	Use string

	// Short is the one-line help text.
	Short string

	// IDArg indicates the command takes the record id as its single
	// positional argument.
	IDArg bool

	// Flags are the command's flags, derived from query and body
	// parameters.
	Flags []Flag
}

// Flag describes one generated command flag.
type Flag struct {
	// Name is the flag name (wire parameter name).
	Name string

	// Kind decides the flag's value type.
	Kind schema.FieldKind

	// Required marks flags cobra should enforce.
	Required bool

	// Usage is the flag help text.
	Usage string

	// Default is the declared default value, when one exists.
	Default any
}

// Generate derives the commands one entity exposes under its cli
// policy. Commands group under the lowercased class name:
//
//	manifold invoice list --limit 10
//	manifold invoice get <id>
//	manifold invoice create --total 99.5
//	manifold invoice send <id> --recipient ops@example.com
func Generate(d convention.Derived) ([]Command, error) {
	e := d.Source

	if err := schema.ValidatePolicy(e, schema.ChannelCLI); err != nil {
		return nil, &schema.GenerationError{Entity: e.Name, Err: err}
	}

	policy := e.Access.For(schema.ChannelCLI)

	var commands []Command
	for _, a := range d.Actions {
		if !policy.Allows(a.Name) {
			continue
		}
		commands = append(commands, commandFor(d, a))
	}

	return commands, nil
}

// commandFor builds the descriptor for one action. The path id becomes
// a positional argument; every other parameter becomes a flag.
func commandFor(d convention.Derived, a convention.DerivedAction) Command {
	cmd := Command{
		Entity: d.Source.Name,
		Action: a.Name,
		Group:  d.Command,
		Use:    a.Name,
		Short:  a.Description,
	}

	for _, p := range a.Params {
		if p.In == convention.InPath {
			cmd.IDArg = true
			continue
		}
		cmd.Flags = append(cmd.Flags, Flag{
			Name:     p.Name,
			Kind:     p.Kind,
			Required: p.Required,
			Usage:    flagUsage(p),
			Default:  p.Default,
		})
	}

	if cmd.IDArg {
		cmd.Use = a.Name + " <id>"
	}

	return cmd
}

// flagUsage picks the flag help text.
func flagUsage(p convention.Param) string {
	if p.Description != "" {
		return p.Description
	}
	return p.Name + " (" + string(p.Kind) + ")"
}

// GenerateAll derives commands for every registered entity in
// registration order, with the same batch semantics as the other
// generators: one failing entity never blocks the rest.
func GenerateAll(c *catalog.Catalog) ([]Command, error) {
	var commands []Command
	var errs []error

	for _, d := range c.List() {
		cmds, err := Generate(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		commands = append(commands, cmds...)
	}

	return commands, errors.Join(errs...)
}
