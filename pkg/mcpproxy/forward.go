package mcpproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/logging"
)

// Forward translates one MCP tools/call into an authenticated HTTP
// request against the backend service and renders the normalized
// response back as an MCP result (spec §4.12 "Tool dispatch").
func (p *Proxy) Forward(ctx context.Context, c contracts.Contract, args map[string]interface{}) (*mcp.CallToolResult, error) {
	base, err := p.resolveBaseURL(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	auth := p.ensureAuth(ctx, base)
	env, status, err := p.dispatchOnce(ctx, base, c, args, auth)
	if status == http.StatusUnauthorized {
		auth = p.renegotiate(ctx, base)
		env, status, err = p.dispatchOnce(ctx, base, c, args, auth)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", c.Operation, err)), nil
	}
	_ = status
	return resultFromEnvelope(env), nil
}

func (p *Proxy) dispatchOnce(ctx context.Context, base string, c contracts.Contract, args map[string]interface{}, auth AuthConfig) (map[string]any, int, error) {
	timeout := p.timeoutFor(c.Operation)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := p.buildRequest(reqCtx, base, c, args)
	if err != nil {
		return nil, 0, err
	}
	p.signRequest(req, auth, args)

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed reading response: %w", err)
	}
	var env map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("invalid response body: %w", err)
		}
	}
	if env == nil {
		env = apierrors.Failure(apierrors.CodeEmptyResponse, "backend returned no body", nil).ToMap()
	}
	return env, resp.StatusCode, nil
}

// buildRequest constructs the HTTP request for a GET-with-query or
// POST-with-JSON-body contract, using the canonical (sorted, URL-
// encoded) query string both for the signed base string and the
// request URL (spec §4.12).
func (p *Proxy) buildRequest(ctx context.Context, base string, c contracts.Contract, args map[string]interface{}) (*http.Request, error) {
	if c.HTTPMethod == http.MethodGet {
		u := base + c.HTTPRoute
		qs := canonicalQuery(args)
		if qs != "" {
			u += "?" + qs
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, c.HTTPMethod, base+c.HTTPRoute, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// canonicalQuery serializes args as sorted-key, URL-encoded query
// parameters (spec §4.12: "deterministic ... sorted keys, URL-encoded").
func canonicalQuery(args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, fmt.Sprintf("%v", args[k]))
	}
	return values.Encode()
}

// signRequest attaches X-Timestamp/X-Signature and, when a token is
// configured, Authorization: Bearer (spec §4.12). Signing reuses
// authguard.Sign so inbound verification and outbound signing can never
// drift apart.
func (p *Proxy) signRequest(req *http.Request, auth AuthConfig, args map[string]interface{}) {
	if auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	}
	if len(auth.Secret) == 0 {
		return
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	pathWithQuery := req.URL.Path
	if req.URL.RawQuery != "" {
		pathWithQuery += "?" + req.URL.RawQuery
	}
	sig := authguard.Sign(auth.Secret, req.Method, pathWithQuery, timestamp)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", sig)
}

// resultFromEnvelope renders a backend ErrorEnvelope/SuccessEnvelope as
// an MCP result: a human-readable text summary plus the structured
// envelope for callers that requested JSON (spec §4.12).
func resultFromEnvelope(env map[string]any) *mcp.CallToolResult {
	success, _ := env["success"].(bool)
	if !success {
		msg, _ := env["error"].(string)
		if msg == "" {
			msg = "operation failed"
		}
		code, _ := env["error_code"].(string)
		logging.Get().Warn("mcpproxy: backend returned error envelope", "error_code", code, "error", msg)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("%s: %s", code, msg))},
			IsError: true,
		}
	}

	text, err := json.Marshal(env)
	if err != nil {
		return mcp.NewToolResultText("operation succeeded")
	}
	return mcp.NewToolResultStructured(env, string(text))
}
