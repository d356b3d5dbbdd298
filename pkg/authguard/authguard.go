// Package authguard implements the inbound HMAC-SHA256 + bearer
// authentication check shared by every route (spec §4.2).
package authguard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/agentworld/control-plane/pkg/apierrors"
)

// Config is the process-wide inbound auth configuration.
type Config struct {
	Enabled     bool
	Secret      []byte
	BearerToken string
	// Window bounds how far X-Timestamp may drift from the server clock.
	Window time.Duration
}

// DefaultWindow is the ±300s timestamp tolerance from spec §4.2.
const DefaultWindow = 300 * time.Second

// Guard verifies inbound requests against Config.
type Guard struct {
	cfg          Config
	now          func() time.Time
	onAuthFailed func()
}

// New builds a Guard. onAuthFailed, if non-nil, is invoked once per
// rejected request (wired to MetricsRegistry.increment_auth_failures).
func New(cfg Config, onAuthFailed func()) *Guard {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	return &Guard{cfg: cfg, now: time.Now, onAuthFailed: onAuthFailed}
}

// Middleware returns the chi-compatible middleware.
func (g *Guard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			if ok := g.authenticate(r); ok {
				next.ServeHTTP(w, r)
				return
			}
			g.reject(w)
		})
	}
}

func (g *Guard) reject(w http.ResponseWriter) {
	if g.onAuthFailed != nil {
		g.onAuthFailed()
	}
	w.Header().Set("WWW-Authenticate", `HMAC-SHA256 realm="isaac-sim"`)
	apierrors.WriteJSON(w, http.StatusUnauthorized, apierrors.Failure(apierrors.CodeUnauthorized, "authentication required", nil))
}

// authenticate implements spec §4.2: bearer alone suffices, or HMAC
// timestamp+signature alone suffices; both may be sent together.
func (g *Guard) authenticate(r *http.Request) bool {
	if g.cfg.BearerToken != "" {
		if tok, ok := bearerToken(r); ok && hmac.Equal([]byte(tok), []byte(g.cfg.BearerToken)) {
			return true
		}
	}
	if len(g.cfg.Secret) == 0 {
		return false
	}
	ts := r.Header.Get("X-Timestamp")
	sig := r.Header.Get("X-Signature")
	if ts == "" || sig == "" {
		return false
	}
	tsVal, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return false
	}
	if math.Abs(float64(g.now().Unix())-tsVal) > g.cfg.Window.Seconds() {
		return false
	}
	expected := Sign(g.cfg.Secret, r.Method, pathWithQuery(r), ts)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

func pathWithQuery(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// Sign computes the lowercase-hex HMAC-SHA256 over "METHOD|PATH|TIMESTAMP"
// used both by inbound verification and by the MCP proxy's outbound signer.
func Sign(secret []byte, method, pathWithQuery, timestamp string) string {
	base := fmt.Sprintf("%s|%s|%s", method, pathWithQuery, timestamp)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}
