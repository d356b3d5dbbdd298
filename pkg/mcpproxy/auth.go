package mcpproxy

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/agentworld/control-plane/pkg/logging"
)

// AuthConfig is the outbound auth the proxy has negotiated (or fallen
// back to) for its backend service.
type AuthConfig struct {
	// Mode is "none", "hmac", or "bearer" (both may be set together,
	// matching the inbound guard's "bearer alone or HMAC alone").
	Mode   string
	Secret []byte
	Token  string
}

const (
	authModeNone   = "none"
	authModeHMAC   = "hmac"
	authModeBearer = "bearer"
)

// ensureAuth negotiates once, lazily, on first forwarded call.
func (p *Proxy) ensureAuth(ctx context.Context, baseURL string) AuthConfig {
	p.mu.Lock()
	if p.negotiated {
		defer p.mu.Unlock()
		return p.auth
	}
	p.mu.Unlock()

	cfg := p.negotiate(ctx, baseURL)

	p.mu.Lock()
	p.auth = cfg
	p.negotiated = true
	p.mu.Unlock()
	return cfg
}

// renegotiate clears the cached config and negotiates again, at most
// once per call site (spec §4.12: "re-run at most once when a cached
// config starts producing 401s").
func (p *Proxy) renegotiate(ctx context.Context, baseURL string) AuthConfig {
	cfg := p.negotiate(ctx, baseURL)
	p.mu.Lock()
	p.auth = cfg
	p.negotiated = true
	p.mu.Unlock()
	return cfg
}

// negotiate implements spec §4.12's auto-negotiation: probe GET /health
// unauthenticated; 200 means auth is disabled; 401 means parse
// WWW-Authenticate and fall back to environment-declared credentials;
// anything else means the service is unreachable, so fall back to
// environment configuration without having confirmed it is needed.
func (p *Proxy) negotiate(ctx context.Context, baseURL string) AuthConfig {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return p.fromEnvironment()
	}
	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		logging.Get().Warn("mcpproxy: health probe unreachable, falling back to environment auth", "base_url", baseURL, "error", err)
		return p.fromEnvironment()
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return AuthConfig{Mode: authModeNone}
	case http.StatusUnauthorized:
		challenge := resp.Header.Get("WWW-Authenticate")
		if strings.Contains(strings.ToUpper(challenge), "HMAC-SHA256") || strings.Contains(strings.ToUpper(challenge), "BEARER") {
			return p.fromEnvironment()
		}
		return p.fromEnvironment()
	default:
		logging.Get().Warn("mcpproxy: unexpected health probe status, falling back to environment auth", "base_url", baseURL, "status", resp.StatusCode)
		return p.fromEnvironment()
	}
}

// fromEnvironment reads <SERVICE>_SECRET/<SERVICE>_TOKEN with a global
// AGENTWORLD_SECRET/AGENTWORLD_TOKEN fallback (spec §4.12: "a
// service-specific prefix and a global fallback").
func (p *Proxy) fromEnvironment() AuthConfig {
	prefix := strings.ToUpper(p.cfg.ServiceName)
	secret := firstNonEmpty(os.Getenv(prefix+"_SECRET"), os.Getenv("AGENTWORLD_SECRET"))
	token := firstNonEmpty(os.Getenv(prefix+"_TOKEN"), os.Getenv("AGENTWORLD_TOKEN"))

	cfg := AuthConfig{Mode: authModeNone, Token: token}
	if secret != "" {
		cfg.Secret = []byte(secret)
	}
	switch {
	case token != "" && secret != "":
		cfg.Mode = authModeBearer + "+" + authModeHMAC
	case token != "":
		cfg.Mode = authModeBearer
	case secret != "":
		cfg.Mode = authModeHMAC
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
