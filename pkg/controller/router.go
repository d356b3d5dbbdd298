package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentworld/control-plane/pkg/apierrors"
	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/contracts"
	"github.com/agentworld/control-plane/pkg/logging"
	"github.com/agentworld/control-plane/pkg/metrics"
	"github.com/agentworld/control-plane/pkg/ratelimit"
	"github.com/agentworld/control-plane/pkg/secheaders"
)

// RequestTimeout is the deadline chi's middleware.Timeout puts on each
// request's context. The controller functions do not watch that
// context; once the deadline has passed, the middleware only sets a 504
// status and writes no envelope of its own. Operation-specific queue
// timeouts live in the handler.
const RequestTimeout = 10 * time.Second

// Config wires the shared middleware stack and contract table for one
// service's router (spec §4.5/§9: explicit, process-scoped handles, no
// ambient globals).
type Config struct {
	Service     string
	Registry    *contracts.Registry
	Metrics     *metrics.Registry
	Auth        *authguard.Guard
	RateLimiter *ratelimit.Limiter
	HSTS        secheaders.HSTSConfig
	Health      func(r *http.Request) (ok bool, details map[string]any)
}

// NewRouter builds the chi router for one service: security headers,
// then metrics, then AuthGuard, then RateLimiter, then per-route
// contract dispatch (spec §4.5 steps 1-4), plus the health/metrics
// endpoints every service exposes (spec §6). Security headers come
// first so that auth and rate-limit rejections carry them too.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(secheaders.Middleware(cfg.HSTS))
	r.Use(metricsMiddleware(cfg.Metrics))
	r.Use(cfg.Auth.Middleware())
	r.Use(cfg.RateLimiter.Middleware())

	r.Get("/health", healthHandler(cfg))
	r.Get("/metrics", jsonMetricsHandler(cfg.Metrics))
	r.Get("/metrics.prom", prometheusMetricsHandler(cfg.Metrics))

	for _, c := range cfg.Registry.All() {
		c := c
		r.Method(c.HTTPMethod, c.HTTPRoute, dispatchHandler(c))
	}

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(notFoundHandler)

	return r
}

// metricsMiddleware records requests_received, per-endpoint counts, and
// request_duration_ms on every response, incrementing errors for any
// status of 400 or above (spec §4.9).
func metricsMiddleware(m *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			m.IncrementRequests()
			m.IncrementEndpoint(r.URL.Path)

			next.ServeHTTP(ww, r)

			m.RecordRequestDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
			if ww.Status() >= 400 {
				m.IncrementErrors()
			}
		})
	}
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, details := true, map[string]any(nil)
		if cfg.Health != nil {
			ok, details = cfg.Health(r)
		}
		body := map[string]any{
			"success":   ok,
			"service":   cfg.Service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if details != nil {
			body["details"] = details
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		apierrors.WriteJSONMap(w, status, body)
	}
}

func jsonMetricsHandler(m *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(m.GetJSONMetrics())
	}
}

func prometheusMetricsHandler(m *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(m.GetPrometheusMetrics()))
	}
}

// dispatchHandler implements spec §4.5 steps 3-4: parse the request body
// into a generic payload, call the contract's controller function, and
// normalize the result (spec §4.10) before writing it.
func dispatchHandler(c contracts.Contract) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := parsePayload(r)
		if err != nil {
			apierrors.WriteJSON(w, http.StatusBadRequest,
				apierrors.Failure(apierrors.CodeInvalidParameter, "malformed request body", map[string]any{"cause": err.Error()}))
			return
		}

		result := c.Handler(payload)
		normalized := Normalize(c.Operation, result)
		apierrors.WriteJSONMap(w, StatusFor(normalized), normalized)
	}
}

func parsePayload(r *http.Request) (map[string]any, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodOptions {
		payload := make(map[string]any, len(r.URL.Query()))
		for k, v := range r.URL.Query() {
			if len(v) == 1 {
				payload[k] = v[0]
			} else {
				payload[k] = v
			}
		}
		return payload, nil
	}

	if r.ContentLength == 0 {
		return map[string]any{}, nil
	}
	var payload map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	logging.Get().Debug("controller: no route", "method", r.Method, "path", r.URL.Path)
	apierrors.WriteJSON(w, http.StatusNotFound, apierrors.Failure(apierrors.CodeNoRoute, "no route for this operation", nil))
}
