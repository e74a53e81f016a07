// Package cli provides the command-line channel. Commands come from the
// command generator, so the offered surface always equals the generated
// command set of each entity's cli policy. Each entity becomes a command
// group under its lowercase singular name:
//
//	manifold invoice list --limit 10
//	manifold invoice create --total 99.5
//	manifold invoice send <id> --recipient ops@example.com
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/manifold/adapters/metrics"
	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/cligen"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/formatter"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/schema"
)

// ExecutorFunc resolves the executor a command runs against. The
// default resolves through the catalog binding; a remote resolver lets
// the same commands drive a running server instead.
type ExecutorFunc func(entity string) (runtime.Executor, error)

// Channel binds generated commands onto a cobra command tree.
type Channel struct {
	catalog    *catalog.Catalog
	logger     zerolog.Logger
	formatters *formatter.Registry
	executor   ExecutorFunc
	metrics    *metrics.Collector
}

var _ runtime.Channel = (*Channel)(nil)

// Config configures the CLI channel.
type Config struct {
	// Catalog supplies entities and their bound executors.
	Catalog *catalog.Catalog

	// Logger for generation diagnostics.
	Logger zerolog.Logger

	// Formatters for rendering results. Defaults to the global registry.
	Formatters *formatter.Registry

	// Executor overrides how commands resolve their executor. Defaults
	// to the catalog binding.
	Executor ExecutorFunc

	// Metrics instruments executed actions when set.
	Metrics *metrics.Collector
}

// New builds the channel.
func New(cfg Config) (*Channel, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("cli channel requires a catalog")
	}

	c := &Channel{
		catalog:    cfg.Catalog,
		logger:     cfg.Logger.With().Str("channel", "cli").Logger(),
		formatters: cfg.Formatters,
		executor:   cfg.Executor,
		metrics:    cfg.Metrics,
	}
	if c.formatters == nil {
		c.formatters = formatter.DefaultRegistry
	}
	if c.executor == nil {
		c.executor = cfg.Catalog.Executor
	}

	return c, nil
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "cli"
}

// Start is a no-op; commands execute inside the cobra lifecycle.
func (c *Channel) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op.
func (c *Channel) Stop(ctx context.Context) error {
	return nil
}

// Attach generates and mounts the command group of every registered
// entity onto root. An entity whose generation fails is skipped and
// logged; the remaining entities still mount. The joined error reports
// each failure.
func (c *Channel) Attach(root *cobra.Command) error {
	var errs []error

	for _, d := range c.catalog.List() {
		cmds, err := cligen.Generate(d)
		if err != nil {
			c.logger.Warn().Err(err).Str("entity", d.Source.Name).Msg("skipping entity commands")
			errs = append(errs, err)
			continue
		}
		if len(cmds) == 0 {
			continue
		}

		group := &cobra.Command{
			Use:   d.Command,
			Short: groupShort(d),
		}
		for _, desc := range cmds {
			group.AddCommand(c.buildCommand(d, desc))
		}

		root.AddCommand(group)
		c.logger.Debug().Str("entity", d.Source.Name).Int("commands", len(cmds)).Msg("mounted entity commands")
	}

	return errors.Join(errs...)
}

func groupShort(d convention.Derived) string {
	if d.Source.Description != "" {
		return d.Source.Description
	}
	return "Manage " + d.Resource
}

// buildCommand turns one descriptor into a cobra command.
func (c *Channel) buildCommand(d convention.Derived, desc cligen.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   desc.Use,
		Short: desc.Short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, d, desc, args)
		},
	}
	if desc.IDArg {
		cmd.Args = cobra.ExactArgs(1)
	} else {
		cmd.Args = cobra.NoArgs
	}

	for _, f := range desc.Flags {
		addFlag(cmd, f)
		// A declared default satisfies a required field, so its flag
		// stays optional. Create fields are also left optional so the
		// interactive prompt can fill them.
		if f.Required && f.Default == nil && desc.Action != "create" {
			cmd.MarkFlagRequired(f.Name)
		}
	}

	switch desc.Action {
	case "create":
		cmd.Flags().BoolP("interactive", "i", false, "Prompt for missing required fields")
		c.addOutputFlags(cmd)
	case "delete":
		cmd.Flags().BoolP("force", "f", false, "Delete without confirmation")
	default:
		c.addOutputFlags(cmd)
	}

	return cmd
}

// addFlag registers one typed flag from its descriptor.
func addFlag(cmd *cobra.Command, f cligen.Flag) {
	switch f.Kind {
	case schema.FieldKindInteger:
		def, _ := asInt(f.Default)
		cmd.Flags().Int(f.Name, def, f.Usage)
	case schema.FieldKindDecimal:
		def, _ := asFloat(f.Default)
		cmd.Flags().Float64(f.Name, def, f.Usage)
	case schema.FieldKindBoolean:
		def, _ := f.Default.(bool)
		cmd.Flags().Bool(f.Name, def, f.Usage)
	default:
		def, _ := f.Default.(string)
		cmd.Flags().String(f.Name, def, f.Usage)
	}
}

// addOutputFlags adds the shared output format flags.
func (c *Channel) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "O", "table", "Output format: "+strings.Join(c.formatters.List(), ", "))
	cmd.Flags().StringSlice("columns", nil, "Columns to include")
	cmd.Flags().Bool("no-header", false, "Disable header row (table format)")
	cmd.Flags().Bool("compact", false, "Compact output (json)")
}

// run executes one command against the resolved executor.
func (c *Channel) run(cmd *cobra.Command, d convention.Derived, desc cligen.Command, args []string) error {
	if desc.Action == "delete" {
		proceed, err := c.confirmDelete(cmd, desc, args)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	in, err := c.buildInput(cmd, d, desc, args)
	if err != nil {
		return c.formatError(cmd, err)
	}

	exec, err := c.executor(desc.Entity)
	if err != nil {
		return c.formatError(cmd, err)
	}

	start := time.Now()
	res, err := exec.Execute(cmd.Context(), desc.Entity, desc.Action, in)
	if c.metrics != nil {
		c.metrics.ObserveAction(desc.Entity, desc.Action, "cli", err, time.Since(start))
	}
	if err != nil {
		return c.formatError(cmd, err)
	}

	return c.writeResult(cmd, d, desc, args, res)
}

// confirmDelete asks before deleting unless --force was given.
func (c *Channel) confirmDelete(cmd *cobra.Command, desc cligen.Command, args []string) (bool, error) {
	force, _ := cmd.Flags().GetBool("force")
	if force {
		return true, nil
	}

	p := NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	return p.Confirm(fmt.Sprintf("Delete %s %s?", strings.ToLower(desc.Entity), args[0]))
}

// buildInput assembles the channel-independent input from arguments and
// flags.
func (c *Channel) buildInput(cmd *cobra.Command, d convention.Derived, desc cligen.Command, args []string) (runtime.Input, error) {
	in := runtime.Input{Channel: string(schema.ChannelCLI)}
	if desc.IDArg {
		in.ID = args[0]
	}

	switch desc.Action {
	case "list":
		in.List = listOptions(cmd)

	case "get", "delete":
		// The id argument is the whole input.

	case "create":
		data, err := collectData(cmd, desc)
		if err != nil {
			return in, err
		}
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			p := NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			data, err = p.PromptForFields(d, data)
			if err != nil {
				return in, err
			}
		}
		in.Data = data

	case "update":
		data, err := collectData(cmd, desc)
		if err != nil {
			return in, err
		}
		if len(data) == 0 {
			return in, errors.New("no fields to update")
		}
		in.Data = data

	default:
		data, err := collectData(cmd, desc)
		if err != nil {
			return in, err
		}
		in.Data = data
	}

	return in, nil
}

// listOptions reads the paging and filtering flags.
func listOptions(cmd *cobra.Command) runtime.ListOptions {
	var opts runtime.ListOptions
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Offset, _ = cmd.Flags().GetInt("offset")
	opts.OrderBy, _ = cmd.Flags().GetString("orderBy")
	opts.Where, _ = cmd.Flags().GetString("where")
	return opts
}

// collectData gathers the values of flags the user actually set.
// Unset flags stay absent so server-side defaults apply.
func collectData(cmd *cobra.Command, desc cligen.Command) (map[string]any, error) {
	data := make(map[string]any)

	for _, f := range desc.Flags {
		if !cmd.Flags().Changed(f.Name) {
			continue
		}
		v, err := flagValue(cmd, f)
		if err != nil {
			return nil, err
		}
		data[f.Name] = v
	}

	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// flagValue reads one flag with the type its kind decided.
func flagValue(cmd *cobra.Command, f cligen.Flag) (any, error) {
	switch f.Kind {
	case schema.FieldKindInteger:
		v, err := cmd.Flags().GetInt(f.Name)
		return v, err
	case schema.FieldKindDecimal:
		v, err := cmd.Flags().GetFloat64(f.Name)
		return v, err
	case schema.FieldKindBoolean:
		v, err := cmd.Flags().GetBool(f.Name)
		return v, err
	case schema.FieldKindJSON:
		raw, err := cmd.Flags().GetString(f.Name)
		if err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("flag --%s: invalid JSON: %w", f.Name, err)
		}
		return v, nil
	default:
		v, err := cmd.Flags().GetString(f.Name)
		return v, err
	}
}

// writeResult renders the per-action output.
func (c *Channel) writeResult(cmd *cobra.Command, d convention.Derived, desc cligen.Command, args []string, res runtime.Result) error {
	out := cmd.OutOrStdout()
	lower := strings.ToLower(desc.Entity)

	switch desc.Action {
	case "list":
		return c.pick(cmd).FormatList(out, d, res.Items, c.options(cmd))

	case "get":
		return c.pick(cmd).FormatRecord(out, d, res.Data, c.options(cmd))

	case "create":
		if c.structured(cmd) {
			return c.pick(cmd).FormatRecord(out, d, res.Data, c.options(cmd))
		}
		fmt.Fprintf(out, "Created %s %s\n", lower, res.ID)
		return nil

	case "update":
		if c.structured(cmd) {
			return c.pick(cmd).FormatRecord(out, d, res.Data, c.options(cmd))
		}
		fmt.Fprintf(out, "Updated %s %s\n", lower, args[0])
		return nil

	case "delete":
		fmt.Fprintf(out, "Deleted %s %s\n", lower, args[0])
		return nil

	default:
		// Custom operations print their declared result value, or the
		// record after the operation when no result kind is declared.
		if a, ok := d.Action(desc.Action); ok && a.Returns != "" {
			fmt.Fprintf(out, "%v\n", res.Value)
			return nil
		}
		return c.pick(cmd).FormatRecord(out, d, res.Data, c.options(cmd))
	}
}

// pick selects the formatter for the current command.
func (c *Channel) pick(cmd *cobra.Command) formatter.Formatter {
	name, err := cmd.Flags().GetString("output")
	if err != nil || name == "" {
		return c.formatters.Default()
	}
	if f, ok := c.formatters.Get(name); ok {
		return f
	}
	return c.formatters.Default()
}

// structured reports whether the user asked for machine-readable output.
func (c *Channel) structured(cmd *cobra.Command) bool {
	name, _ := cmd.Flags().GetString("output")
	return name == "json" || name == "yaml"
}

// options builds format options from the shared output flags.
func (c *Channel) options(cmd *cobra.Command) formatter.FormatOptions {
	columns, _ := cmd.Flags().GetStringSlice("columns")
	noHeader, _ := cmd.Flags().GetBool("no-header")
	compact, _ := cmd.Flags().GetBool("compact")

	return formatter.FormatOptions{
		Columns:  columns,
		NoHeader: noHeader,
		Compact:  compact,
		MaxWidth: 40,
	}
}

// formatError renders a failure on stderr and propagates it.
func (c *Channel) formatError(cmd *cobra.Command, err error) error {
	c.pick(cmd).FormatError(cmd.ErrOrStderr(), err)
	return err
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
