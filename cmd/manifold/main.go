// Command manifold derives REST routes, CLI commands, AI tool
// descriptors and an OpenAPI document from declarative entity
// definitions, and serves them over HTTP or MCP.
package main

func main() {
	Execute()
}
