package toolgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/schema"
)

const (
	serverKeepAlive = 30 * time.Second
	serverPageSize  = 100
)

// ServerConfig configures the MCP tool server.
type ServerConfig struct {
	// Name is the server name announced to clients.
	Name string

	// Version is the server version.
	Version string

	// Catalog supplies the registered entities and their executors.
	Catalog *catalog.Catalog

	// Logger is the SDK logger (optional).
	Logger *slog.Logger
}

// DefaultServerConfig returns a server configuration with stderr
// logging, suitable for stdio transport where stdout carries the
// protocol stream.
func DefaultServerConfig(c *catalog.Catalog, version string) ServerConfig {
	return ServerConfig{
		Name:    "manifold-mcp",
		Version: version,
		Catalog: c,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// NewServer creates an MCP server exposing one tool per registered
// entity action allowed by that entity's tool policy.
func NewServer(cfg ServerConfig) (*mcpsdk.Server, error) {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcpsdk.ServerOptions{
		Instructions: "Entity operations derived from registered declarations. Tools are named {entity}_{action}; list tools accept limit, offset, orderBy, and where.",
		Logger:       cfg.Logger,
		KeepAlive:    serverKeepAlive,
		PageSize:     serverPageSize,
	})

	tools, err := GenerateAll(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("generating tools: %w", err)
	}

	AddTools(server, cfg.Catalog, tools)

	return server, nil
}

// Serve creates the server and runs it over stdio. Blocks until the
// client disconnects or ctx is cancelled.
func Serve(ctx context.Context, cfg ServerConfig) error {
	server, err := NewServer(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	transport := &mcpsdk.StdioTransport{}

	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("running server: %w", err)
	}

	return nil
}

// AddTools registers tool descriptors on an MCP server, binding each to
// the executor of its owning entity.
func AddTools(server *mcpsdk.Server, c *catalog.Catalog, tools []Tool) {
	for _, t := range tools {
		addTool(server, c, t)
	}
}

func addTool(server *mcpsdk.Server, c *catalog.Catalog, t Tool) {
	mcpTool := &mcpsdk.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}

	handler := func(
		ctx context.Context,
		_ *mcpsdk.CallToolRequest,
		input map[string]any,
	) (*mcpsdk.CallToolResult, map[string]any, error) {
		res, err := callTool(ctx, c, t, input)
		if err != nil {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{
					&mcpsdk.TextContent{Text: fmt.Sprintf("%s failed: %v", t.Name, err)},
				},
			}, nil, nil
		}

		text, err := json.Marshal(resultPayload(res))
		if err != nil {
			return nil, nil, fmt.Errorf("encoding result: %w", err)
		}

		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: string(text)},
			},
		}, nil, nil
	}

	mcpsdk.AddTool(server, mcpTool, handler)
}

// callTool maps tool arguments onto a runtime call against the bound
// executor.
func callTool(ctx context.Context, c *catalog.Catalog, t Tool, input map[string]any) (runtime.Result, error) {
	exec, err := c.Executor(t.Entity)
	if err != nil {
		return runtime.Result{}, err
	}

	return exec.Execute(ctx, t.Entity, t.Action, buildInput(t.Action, input))
}

// buildInput converts tool arguments into a runtime input. The id
// argument becomes the record id; list tools interpret the paging
// arguments; everything else travels as data.
func buildInput(action string, args map[string]any) runtime.Input {
	in := runtime.Input{Channel: string(schema.ChannelTool)}

	data := make(map[string]any, len(args))
	for k, v := range args {
		data[k] = v
	}

	if action == "list" {
		in.List = listOptions(data)
		return in
	}

	if id, ok := data["id"].(string); ok {
		in.ID = id
		delete(data, "id")
	}

	if len(data) > 0 {
		in.Data = data
	}

	return in
}

// listOptions reads the paging arguments. JSON numbers arrive as
// float64 and are truncated to ints.
func listOptions(data map[string]any) runtime.ListOptions {
	var opts runtime.ListOptions

	if v, ok := data["limit"].(float64); ok {
		opts.Limit = int(v)
	}
	if v, ok := data["offset"].(float64); ok {
		opts.Offset = int(v)
	}
	if v, ok := data["orderBy"].(string); ok {
		opts.OrderBy = v
	}
	if v, ok := data["where"].(string); ok {
		opts.Where = v
	}

	return opts
}

// resultPayload shapes an execution result for text content. Lists
// carry their page and total; single-record actions carry the record;
// operations with a declared result kind carry the bare value.
func resultPayload(res runtime.Result) any {
	switch {
	case res.Items != nil:
		return map[string]any{"data": res.Items, "total": res.Total}
	case res.Data != nil:
		return res.Data
	case res.Value != nil:
		return map[string]any{"result": res.Value}
	case res.ID != "":
		return map[string]any{"id": res.ID}
	default:
		return map[string]any{"ok": true}
	}
}
