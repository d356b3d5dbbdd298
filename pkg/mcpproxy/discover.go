package mcpproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v5"

	"github.com/agentworld/control-plane/pkg/logging"
)

// resolveBaseURL implements spec §4.12 service auto-detection: probe
// each candidate base URL's authenticated /health; the first returning
// success=true becomes active. "The discovery is retried on failure"
// is implemented with cenkalti/backoff/v5's bounded retry rather than a
// bespoke loop, the same dependency the pack's media-pipeline repo uses
// for its own "retry until the dependency answers" probes.
func (p *Proxy) resolveBaseURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.discovered && p.activeBase != "" {
		base := p.activeBase
		p.mu.Unlock()
		return base, nil
	}
	p.mu.Unlock()

	if len(p.cfg.CandidateBaseURLs) == 0 {
		return "", fmt.Errorf("mcpproxy: no candidate base URLs configured")
	}
	if len(p.cfg.CandidateBaseURLs) == 1 {
		p.mu.Lock()
		p.activeBase = p.cfg.CandidateBaseURLs[0]
		p.discovered = true
		p.mu.Unlock()
		return p.activeBase, nil
	}

	base, err := backoff.Retry(ctx, func() (string, error) {
		return p.probeCandidates(ctx)
	}, backoff.WithMaxTries(3))
	if err != nil {
		return "", fmt.Errorf("mcpproxy: no candidate base URL reported success=true: %w", err)
	}

	p.mu.Lock()
	p.activeBase = base
	p.discovered = true
	p.mu.Unlock()
	return base, nil
}

// probeCandidates runs one sweep over every configured candidate,
// returning the first whose authenticated /health reports success=true.
func (p *Proxy) probeCandidates(ctx context.Context) (string, error) {
	for _, candidate := range p.cfg.CandidateBaseURLs {
		auth := p.ensureAuth(ctx, candidate)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate+"/health", nil)
		if err != nil {
			continue
		}
		p.signRequest(req, auth, map[string]any{})
		resp, err := p.cfg.HTTPClient.Do(req)
		if err != nil {
			logging.Get().Warn("mcpproxy: candidate unreachable during discovery", "base_url", candidate, "error", err)
			continue
		}
		var body map[string]any
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if decodeErr != nil {
			continue
		}
		if ok, _ := body["success"].(bool); ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no healthy candidate found in this sweep")
}
