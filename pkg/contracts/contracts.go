// Package contracts implements the ContractRegistry (spec §4.11): the
// binding between a logical operation, its HTTP route+method, and its
// MCP tool name.
package contracts

import "fmt"

// Handler is the single signature every controller implements
// (spec §9: "Handlers share one function signature").
type Handler func(payload map[string]any) map[string]any

// Contract is the immutable 4-tuple spec.md §3 defines.
type Contract struct {
	Operation  string
	HTTPRoute  string
	HTTPMethod string // GET or POST
	MCPTool    string
	Handler    Handler
}

type routeKey struct {
	method string
	route  string
}

// Registry holds the contracts for one service, indexed for both HTTP
// ingress (by route+method) and MCP dispatch (by tool name).
type Registry struct {
	contracts []Contract
	byRoute   map[routeKey]Contract
	byTool    map[string]Contract
}

// NewRegistry builds a Registry from a static contract list, validating
// the uniqueness invariants from spec §3 ("a contract's (http_route,
// http_method) pair is unique ...; so is its mcp_tool").
func NewRegistry(cs []Contract) (*Registry, error) {
	r := &Registry{
		contracts: cs,
		byRoute:   make(map[routeKey]Contract, len(cs)),
		byTool:    make(map[string]Contract, len(cs)),
	}
	for _, c := range cs {
		key := routeKey{c.HTTPMethod, c.HTTPRoute}
		if _, dup := r.byRoute[key]; dup {
			return nil, fmt.Errorf("contracts: duplicate route %s %s", c.HTTPMethod, c.HTTPRoute)
		}
		if _, dup := r.byTool[c.MCPTool]; dup {
			return nil, fmt.Errorf("contracts: duplicate mcp_tool %q", c.MCPTool)
		}
		if c.Handler == nil {
			return nil, fmt.Errorf("contracts: operation %q has no implementation", c.Operation)
		}
		r.byRoute[key] = c
		r.byTool[c.MCPTool] = c
	}
	return r, nil
}

// ByRoute looks up a contract for HTTP ingress.
func (r *Registry) ByRoute(method, route string) (Contract, bool) {
	c, ok := r.byRoute[routeKey{method, route}]
	return c, ok
}

// ByTool looks up a contract for MCP dispatch, including legacy aliases
// (multiple MCPTool entries may point at the same Operation/Handler).
func (r *Registry) ByTool(tool string) (Contract, bool) {
	c, ok := r.byTool[tool]
	return c, ok
}

// All returns every registered contract, in registration order.
func (r *Registry) All() []Contract {
	return r.contracts
}

// Alias registers an additional MCP tool name pointing at the same
// operation/handler as an existing contract (spec §3: "operation may
// repeat only to form documented aliases").
func (r *Registry) Alias(existingTool, aliasTool string) error {
	c, ok := r.byTool[existingTool]
	if !ok {
		return fmt.Errorf("contracts: cannot alias unknown tool %q", existingTool)
	}
	if _, dup := r.byTool[aliasTool]; dup {
		return fmt.Errorf("contracts: duplicate mcp_tool %q", aliasTool)
	}
	alias := c
	alias.MCPTool = aliasTool
	r.byTool[aliasTool] = alias
	return nil
}
