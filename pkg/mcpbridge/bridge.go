// Package mcpbridge exposes the inference server as an MCP tool (§4.10,
// domain addition), so MCP-aware agent clients can call it the same way
// they call any other tool server, instead of going through HTTP/WS
// directly.
package mcpbridge

import (
	"context"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/webis-de/llmserve/pkg/envelope"
)

// Submitter is the subset of the Worker Pool's public API the bridge
// needs: submit one text input through the normal queue/batch/cache
// path and block for its envelope. The Worker Pool implements this
// directly, so the bridge never has to know about batching or
// disconnects. The bridge only drives generation-type adapters; a
// metric adapter has no single-text calling convention to expose here.
type Submitter interface {
	Submit(ctx context.Context, text string, kwargs map[string]interface{}) (*envelope.Envelope, error)
}

// ToolInput is the MCP tool's input schema: a single text input plus
// free-form generation kwargs, mirroring a one-element HTTP batch body.
type ToolInput struct {
	Text   string                 `json:"text" jsonschema:"the input text to run the model on"`
	Kwargs map[string]interface{} `json:"kwargs,omitempty" jsonschema:"optional adapter-specific generation settings"`
}

// ToolOutput wraps the envelope's data/error fields for MCP consumers,
// who see structured JSON rather than an HTTP status code.
type ToolOutput struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Bridge owns the MCP server instance and its single registered tool.
type Bridge struct {
	server *mcpsdk.Server
	sub    Submitter
}

// New registers the "generate" tool against sub and returns a Bridge
// ready to Run over a transport.
func New(name, version string, sub Submitter) *Bridge {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	b := &Bridge{server: server, sub: sub}

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "generate",
		Description: "Run the language model on a single input and return its result.",
	}, b.handleGenerate)

	return b
}

func (b *Bridge) handleGenerate(ctx context.Context, _ *mcpsdk.CallToolRequest, in ToolInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	env, err := b.sub.Submit(ctx, in.Text, in.Kwargs)
	if err != nil {
		return nil, ToolOutput{}, fmt.Errorf("mcpbridge: submit failed: %w", err)
	}

	if !env.Success {
		return nil, ToolOutput{Success: false, Error: env.Message}, nil
	}
	return nil, ToolOutput{Success: true, Data: env.Data}, nil
}

// Run serves the bridge over transport until ctx is done or the
// transport closes. Used for stdio-style deployments.
func (b *Bridge) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return b.server.Run(ctx, transport)
}

// Handler returns the bridge as a streamable-HTTP handler, so it can be
// mounted onto the same HTTP server as the inference endpoints (§4.10:
// "a second front door, not a parallel execution path") instead of
// requiring a separate process or transport.
func (b *Bridge) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return b.server
	}, nil)
}
