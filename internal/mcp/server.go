// Package mcp exposes the sentence compiler as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/hglc/internal/engine"
)

// Server wraps the MCP SDK server around an engine.Service.
type Server struct {
	mcpServer *mcpsdk.Server
	svc       *engine.Service
}

// New creates an MCP server with all hglc tools registered.
func New(svc *engine.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{svc: svc}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "hglc",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all hglc tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hglc_compile",
		Description: "Compile one cooperation sentence (SUBJ:Kind:id INTENT:... ACT:... OBJ:kind/id [CONSENT:scope@until] [POLICY:...] [PROOF:sha256=...]) into its canonical JSON record and SHA-256 fingerprint. Malformed lines return an error with kind, field and reason.",
	}, s.handleCompile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hglc_canonicalize",
		Description: "Re-encode a JSON document in canonical form (sorted keys, no whitespace, ASCII-only escapes).",
	}, s.handleCanonicalize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hglc_fingerprint",
		Description: "Compute the SHA-256 fingerprint of the canonical form of a JSON document.",
	}, s.handleFingerprint)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hglc_lookup",
		Description: "Look up a previously compiled sentence in the ledger by fingerprint.",
	}, s.handleLookup)
}
