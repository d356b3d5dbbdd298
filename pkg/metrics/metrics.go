// Package metrics implements the MetricsRegistry (spec §4.9): a fixed
// set of core counters/gauges plus service-registered counters and
// gauges, rendered both as JSON and as Prometheus exposition text.
//
// The JSON half has no client_golang analog (that library renders text
// only), so it is hand-rolled against a small mutex-guarded snapshot;
// the Prometheus half is grounded on the teacher's
// github.com/prometheus/client_golang dependency, using its Registry/
// Gather/expfmt pipeline the way promhttp.Handler itself does.
package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/agentworld/control-plane/pkg/logging"
)

type counterMetric struct {
	help  string
	value int64
}

type gaugeMetric struct {
	help string
	cb   func() float64
}

// Registry is the process-scoped metrics handle a service constructs at
// startup and passes into its router and tick executor (spec §9: "no
// ambient globals").
type Registry struct {
	mu      sync.Mutex
	service string

	startedAt time.Time
	running   bool

	requestsReceived int64
	errorsCount      int64
	authFailures     int64
	rateLimited      int64
	durationMsSum    float64
	durationMsCount  int64

	endpointCounts map[string]int64
	counters       map[string]*counterMetric
	gauges         map[string]*gaugeMetric

	now func() time.Time
}

// New builds a Registry for the named service (used as the Prometheus
// metric-name prefix, spec §4.9: "<service>_<metric>").
func New(service string) *Registry {
	return &Registry{
		service:        service,
		endpointCounts: make(map[string]int64),
		counters:       make(map[string]*counterMetric),
		gauges:         make(map[string]*gaugeMetric),
		now:            time.Now,
	}
}

// StartServer marks the registry as running and resets the uptime
// anchor; StopServer flips server_running to false without resetting
// counters.
func (r *Registry) StartServer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.startedAt = r.now()
}

func (r *Registry) StopServer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

func (r *Registry) IncrementRequests() {
	r.mu.Lock()
	r.requestsReceived++
	r.mu.Unlock()
}

func (r *Registry) IncrementErrors() {
	r.mu.Lock()
	r.errorsCount++
	r.mu.Unlock()
}

func (r *Registry) IncrementAuthFailures() {
	r.mu.Lock()
	r.authFailures++
	r.mu.Unlock()
}

func (r *Registry) IncrementRateLimited() {
	r.mu.Lock()
	r.rateLimited++
	r.mu.Unlock()
}

func (r *Registry) RecordRequestDurationMs(d float64) {
	r.mu.Lock()
	r.durationMsSum += d
	r.durationMsCount++
	r.mu.Unlock()
}

// IncrementEndpoint bumps the per-route request counter (labelled in
// Prometheus rendering, flat-keyed in JSON).
func (r *Registry) IncrementEndpoint(route string) {
	r.mu.Lock()
	r.endpointCounts[route]++
	r.mu.Unlock()
}

// RegisterCounter declares a service-specific counter at zero. Calling
// it again for an existing name is a no-op so startup registration code
// can run idempotently.
func (r *Registry) RegisterCounter(name, help string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[name]; ok {
		return
	}
	r.counters[name] = &counterMetric{help: help}
}

// IncrementCounter bumps a named counter by n, auto-registering it with
// an empty help string if it was never declared.
func (r *Registry) IncrementCounter(name string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &counterMetric{}
		r.counters[name] = c
	}
	c.value += n
}

// RegisterGauge declares a service-specific gauge backed by a zero-arg
// callback invoked at read time (spec §4.9). The callback must be pure
// and non-blocking (spec §5): it runs while the registry mutex is held.
func (r *Registry) RegisterGauge(name, help string, cb func() float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = &gaugeMetric{help: help, cb: cb}
}

// GetJSONMetrics renders {success: true, metrics: {...}} (spec §4.9).
// A gauge callback that panics is treated as a failed read: it
// contributes 0 and a warning is logged, matching the Prometheus
// rendering's "omit rather than corrupt" rule translated to JSON's
// flat-value shape.
func (r *Registry) GetJSONMetrics() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	metrics := map[string]any{
		"requests_received":         r.requestsReceived,
		"errors":                    r.errorsCount,
		"auth_failures":             r.authFailures,
		"rate_limited":              r.rateLimited,
		"request_duration_ms_sum":   r.durationMsSum,
		"request_duration_ms_count": r.durationMsCount,
		"uptime_seconds":            r.uptimeSecondsLocked(),
		"server_running":            r.running,
	}
	for route, n := range r.endpointCounts {
		metrics[fmt.Sprintf("endpoint_%s", route)] = n
	}
	for name, c := range r.counters {
		metrics[name] = c.value
	}
	for name, g := range r.gauges {
		metrics[name] = r.safeGaugeValueLocked(name, g)
	}
	return map[string]any{"success": true, "metrics": metrics}
}

func (r *Registry) uptimeSecondsLocked() float64 {
	if !r.running || r.startedAt.IsZero() {
		return 0
	}
	return r.now().Sub(r.startedAt).Seconds()
}

func (r *Registry) safeGaugeValueLocked(name string, g *gaugeMetric) (v float64) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Get().Warn("metrics: gauge callback failed", "gauge", name, "panic", fmt.Sprint(rec))
			v = 0
		}
	}()
	return g.cb()
}

// GetPrometheusMetrics renders the current snapshot as Prometheus text
// exposition format using client_golang's Registry/Gather pipeline, the
// same mechanism promhttp.Handler uses internally. A gauge whose
// callback panics is omitted entirely rather than emitting a corrupt
// line (spec §4.9).
func (r *Registry) GetPrometheusMetrics() string {
	r.mu.Lock()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	reg := prometheus.NewRegistry()
	prefix := r.service + "_"

	mustCounter := func(name, help string, value float64) {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: prefix + name, Help: help})
		c.Add(value)
		reg.MustRegister(c)
	}
	mustGauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: prefix + name, Help: help})
		g.Set(value)
		reg.MustRegister(g)
	}

	mustCounter("requests_received_total", "Total requests received.", float64(snapshot.requestsReceived))
	mustCounter("errors_total", "Total request errors.", float64(snapshot.errorsCount))
	mustCounter("auth_failures_total", "Total authentication failures.", float64(snapshot.authFailures))
	mustCounter("rate_limited_total", "Total requests rejected by rate limiting.", float64(snapshot.rateLimited))
	mustCounter("request_duration_ms_sum", "Sum of request durations in milliseconds.", snapshot.durationMsSum)
	mustCounter("request_duration_ms_count", "Count of timed requests.", float64(snapshot.durationMsCount))
	mustGauge("uptime_seconds", "Seconds since the server started.", snapshot.uptimeSeconds)
	mustGauge("server_running", "1 if the server is running, else 0.", boolToFloat(snapshot.running))

	for _, route := range sortedKeys(snapshot.endpointCounts) {
		name := prefix + "endpoint_requests_total"
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        "Total requests per endpoint.",
			ConstLabels: prometheus.Labels{"route": route},
		})
		c.Add(float64(snapshot.endpointCounts[route]))
		reg.MustRegister(c)
	}
	for _, name := range sortedKeys(snapshot.counters) {
		c := snapshot.counters[name]
		mustCounter(name+"_total", c.help, float64(c.value))
	}
	for _, name := range sortedKeys(snapshot.gauges) {
		g := snapshot.gauges[name]
		v, ok := r.safeGaugeValueForRender(name, g)
		if !ok {
			continue
		}
		mustGauge(name, g.help, v)
	}

	families, err := reg.Gather()
	if err != nil {
		logging.Get().Warn("metrics: gather failed", "error", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			logging.Get().Warn("metrics: encode failed", "error", err)
		}
	}
	out := buf.String()
	if out == "" || out[len(out)-1] != '\n' {
		out += "\n"
	}
	return out
}

func (r *Registry) safeGaugeValueForRender(name string, g *gaugeMetric) (v float64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Get().Warn("metrics: gauge callback failed, omitting metric", "gauge", name, "panic", fmt.Sprint(rec))
			ok = false
		}
	}()
	return g.cb(), true
}

type snapshot struct {
	requestsReceived int64
	errorsCount      int64
	authFailures     int64
	rateLimited      int64
	durationMsSum    float64
	durationMsCount  int64
	uptimeSeconds    float64
	running          bool
	endpointCounts   map[string]int64
	counters         map[string]*counterMetric
	gauges           map[string]*gaugeMetric
}

// snapshotLocked copies every mutable field while the registry mutex is
// held, so GetPrometheusMetrics can render (and invoke gauge callbacks)
// without holding the lock across calls into a third-party library.
func (r *Registry) snapshotLocked() snapshot {
	endpointCounts := make(map[string]int64, len(r.endpointCounts))
	for k, v := range r.endpointCounts {
		endpointCounts[k] = v
	}
	counters := make(map[string]*counterMetric, len(r.counters))
	for k, v := range r.counters {
		c := *v
		counters[k] = &c
	}
	gauges := make(map[string]*gaugeMetric, len(r.gauges))
	for k, v := range r.gauges {
		g := *v
		gauges[k] = &g
	}
	return snapshot{
		requestsReceived: r.requestsReceived,
		errorsCount:      r.errorsCount,
		authFailures:     r.authFailures,
		rateLimited:      r.rateLimited,
		durationMsSum:    r.durationMsSum,
		durationMsCount:  r.durationMsCount,
		uptimeSeconds:    r.uptimeSecondsLocked(),
		running:          r.running,
		endpointCounts:   endpointCounts,
		counters:         counters,
		gauges:           gauges,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
