// Package mcpproxy implements the MCP proxy client (spec §4.12): it
// exposes a service's ContractRegistry as MCP tools to an agent client,
// and forwards each tool invocation to the corresponding HTTP route
// with correctly negotiated authentication.
//
// Grounded on the teacher's cmd/thv/app/mcp_serve.go (server.NewMCPServer,
// mcp.Tool/ToolInputSchema, server.ToolHandlerFunc shape) for the
// exposure half; the forwarding half reuses pkg/authguard.Sign for the
// outbound HMAC so inbound and outbound signing share one implementation.
package mcpproxy

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentworld/control-plane/pkg/contracts"
)

// Config wires one proxy instance to one backend service.
type Config struct {
	// ServiceName picks the environment-variable prefix for auth
	// auto-negotiation fallback, upper-cased: "worldbuilder" reads
	// WORLDBUILDER_SECRET / WORLDBUILDER_TOKEN.
	ServiceName string

	// BaseURL is used directly when CandidateBaseURLs is empty.
	BaseURL string

	// CandidateBaseURLs enables service auto-detection (spec §4.12):
	// the first candidate whose authenticated /health reports
	// success=true becomes active.
	CandidateBaseURLs []string

	HTTPClient *http.Client

	// TimeoutByOperationClass keys a per-operation-class timeout table;
	// DefaultTimeout applies to any operation absent from the table.
	TimeoutByOperationClass map[string]time.Duration
	DefaultTimeout          time.Duration
}

// Proxy forwards MCP tool calls to a backend service's HTTP surface.
type Proxy struct {
	cfg Config

	mu         sync.Mutex
	auth       AuthConfig
	negotiated bool
	activeBase string
	discovered bool
}

// New builds a Proxy. Defaults DefaultTimeout to 10s and HTTPClient to
// http.DefaultClient's timeout-free transport wrapped per request.
func New(cfg Config) *Proxy {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.BaseURL != "" && len(cfg.CandidateBaseURLs) == 0 {
		cfg.CandidateBaseURLs = []string{cfg.BaseURL}
	}
	return &Proxy{cfg: cfg}
}

// RegisterAll exposes every contract in registry as an MCP tool on
// mcpServer, one tool per contract returned by registry.All(). Extra
// tool names added with Registry.Alias are not in that list and are
// not exposed.
func (p *Proxy) RegisterAll(mcpServer *server.MCPServer, registry *contracts.Registry) {
	for _, c := range registry.All() {
		c := c
		mcpServer.AddTool(buildTool(c), p.handlerFor(c))
	}
}

// buildTool renders a description-only JSON schema (spec §4.1/§4.12:
// "no length constraints ... documentation-only hints").
func buildTool(c contracts.Contract) mcp.Tool {
	return mcp.Tool{
		Name:        c.MCPTool,
		Description: fmt.Sprintf("Invoke the %s operation (%s %s).", c.Operation, c.HTTPMethod, c.HTTPRoute),
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func (p *Proxy) handlerFor(c contracts.Contract) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}
		return p.Forward(ctx, c, args)
	}
}

// timeoutFor looks up the operation-class timeout table, falling back
// to DefaultTimeout (spec §4.12: "timeout selection from a per-service
// timeout table keyed by operation class").
func (p *Proxy) timeoutFor(operation string) time.Duration {
	if d, ok := p.cfg.TimeoutByOperationClass[operation]; ok {
		return d
	}
	return p.cfg.DefaultTimeout
}
