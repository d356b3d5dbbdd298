// Package config implements the layered Config loader (spec §1, C1):
// compiled-in defaults, then an optional YAML file, then settings
// injected programmatically by the embedding rendering host, then
// environment variable overrides — the last layer read through
// github.com/spf13/viper exactly as the teacher's
// cmd/thv-registry-api/app/serve.go binds flags/env through viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/agentworld/control-plane/pkg/assets"
	"github.com/agentworld/control-plane/pkg/authguard"
	"github.com/agentworld/control-plane/pkg/secheaders"
)

// RateLimit mirrors the two knobs pkg/ratelimit.New takes.
type RateLimit struct {
	PerMinute int
	Burst     int
}

// MCPProxy holds the outbound-forwarding knobs one service's proxy
// instance needs (pkg/mcpproxy.Config), keyed by the logical service
// name the proxy forwards to.
type MCPProxy struct {
	BaseURL           string
	CandidateBaseURLs []string
	DefaultTimeout    time.Duration
}

// Config is the fully resolved, process-wide configuration for one
// service binary (or the standalone MCP proxy).
type Config struct {
	ServiceName string
	HTTPAddr    string

	AuthGuard authguard.Config
	RateLimit RateLimit
	HSTS      secheaders.HSTSConfig
	Assets    assets.Options

	QueueCapacityPerChannel int
	MaxOpsPerCycle          int

	WaypointStorePath string

	// Proxies maps a backend service name (e.g. "worldbuilder") to its
	// outbound forwarding config, used by the standalone MCP proxy
	// binary which fronts all five services.
	Proxies map[string]MCPProxy
}

// HostSettings is what the embedding rendering host may inject
// programmatically at construction time — spec §1's third layer,
// ranking above the YAML file and below environment overrides.
type HostSettings struct {
	HTTPAddr                *string
	QueueCapacityPerChannel *int
	MaxOpsPerCycle          *int
	WaypointStorePath       *string
	AssetSearchDirs         []string
}

// fileOverrides is the shape of the optional YAML config file. A
// field's zero value means absent, so a partial file only
// overrides what it names, leaving the rest at their compiled-in
// defaults.
type fileOverrides struct {
	HTTPAddr                string   `yaml:"http_addr"`
	QueueCapacityPerChannel int      `yaml:"queue_capacity_per_channel"`
	MaxOpsPerCycle          int      `yaml:"max_ops_per_cycle"`
	WaypointStorePath       string   `yaml:"waypoint_store_path"`
	AssetSearchDirs         []string `yaml:"asset_search_dirs"`
	AssetExtensionAllowList []string `yaml:"asset_extension_allow_list"`
	RateLimitPerMinute      int      `yaml:"rate_limit_per_minute"`
	RateLimitBurst          int      `yaml:"rate_limit_burst"`
}

var knownServices = []string{"worldbuilder", "worldviewer", "worldsurveyor", "worldrecorder", "worldstreamer"}

// defaults returns the compiled-in baseline, the loader's first layer.
func defaults(serviceName string) Config {
	return Config{
		ServiceName: serviceName,
		HTTPAddr:    ":8080",
		AuthGuard: authguard.Config{
			Enabled: true,
			Window:  authguard.DefaultWindow,
		},
		RateLimit: RateLimit{PerMinute: 300, Burst: 60},
		HSTS:      secheaders.HSTSConfig{},
		Assets: assets.Options{
			ExtensionAllowList: []string{".usd", ".usda", ".usdc", ".usdz", ".png", ".jpg", ".jpeg", ".exr", ".hdr"},
			MaxSizeBytes:       512 * 1024 * 1024,
		},
		QueueCapacityPerChannel: 256,
		MaxOpsPerCycle:          32,
		WaypointStorePath:       "waypoints.sqlite",
		Proxies:                map[string]MCPProxy{},
	}
}

// Load resolves a Config for serviceName by applying, in order:
// compiled-in defaults, an optional YAML file at yamlPath (ignored if
// empty or missing), host, and finally environment overrides. Only the
// environment layer is mandatory; every other layer may be absent.
func Load(serviceName, yamlPath string, host *HostSettings) (Config, error) {
	cfg := defaults(serviceName)

	if yamlPath != "" {
		if err := applyYAMLFile(&cfg, yamlPath); err != nil {
			return Config{}, err
		}
	}
	applyHostSettings(&cfg, host)
	applyEnv(&cfg, serviceName)

	return cfg, nil
}

// applyYAMLFile decodes yamlPath with gopkg.in/yaml.v3 and overlays any
// field it sets onto cfg. A missing file is not an error: the YAML
// layer is optional.
func applyYAMLFile(cfg *Config, yamlPath string) error {
	raw, err := os.ReadFile(yamlPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %q: %w", yamlPath, err)
	}

	var f fileOverrides
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: parsing %q: %w", yamlPath, err)
	}

	if f.HTTPAddr != "" {
		cfg.HTTPAddr = f.HTTPAddr
	}
	if f.QueueCapacityPerChannel != 0 {
		cfg.QueueCapacityPerChannel = f.QueueCapacityPerChannel
	}
	if f.MaxOpsPerCycle != 0 {
		cfg.MaxOpsPerCycle = f.MaxOpsPerCycle
	}
	if f.WaypointStorePath != "" {
		cfg.WaypointStorePath = f.WaypointStorePath
	}
	if len(f.AssetSearchDirs) > 0 {
		cfg.Assets.SearchDirs = f.AssetSearchDirs
	}
	if len(f.AssetExtensionAllowList) > 0 {
		cfg.Assets.ExtensionAllowList = f.AssetExtensionAllowList
	}
	if f.RateLimitPerMinute != 0 {
		cfg.RateLimit.PerMinute = f.RateLimitPerMinute
	}
	if f.RateLimitBurst != 0 {
		cfg.RateLimit.Burst = f.RateLimitBurst
	}
	return nil
}

// applyHostSettings overlays settings the embedding rendering host
// passed in programmatically, ranking above the YAML file and below
// environment overrides.
func applyHostSettings(cfg *Config, host *HostSettings) {
	if host == nil {
		return
	}
	if host.HTTPAddr != nil {
		cfg.HTTPAddr = *host.HTTPAddr
	}
	if host.QueueCapacityPerChannel != nil {
		cfg.QueueCapacityPerChannel = *host.QueueCapacityPerChannel
	}
	if host.MaxOpsPerCycle != nil {
		cfg.MaxOpsPerCycle = *host.MaxOpsPerCycle
	}
	if host.WaypointStorePath != nil {
		cfg.WaypointStorePath = *host.WaypointStorePath
	}
	if len(host.AssetSearchDirs) > 0 {
		cfg.Assets.SearchDirs = host.AssetSearchDirs
	}
}

// applyEnv is the final, highest-precedence layer: the fixed inbound
// auth env var names from spec §6, plus per-service overrides and the
// proxy's per-service base URLs, all read through viper so the
// variable-name lookup goes through the same binding surface the
// teacher's serve.go uses for its own flags.
func applyEnv(cfg *Config, serviceName string) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.IsSet("AGENT_EXT_AUTH_ENABLED") {
		cfg.AuthGuard.Enabled = v.GetBool("AGENT_EXT_AUTH_ENABLED")
	}
	if tok := v.GetString("AGENT_EXT_AUTH_TOKEN"); tok != "" {
		cfg.AuthGuard.BearerToken = tok
	}
	if secret := v.GetString("AGENT_EXT_HMAC_SECRET"); secret != "" {
		cfg.AuthGuard.Secret = []byte(secret)
	}

	prefix := "AGENT_" + strings.ToUpper(serviceName) + "_"
	if tok := v.GetString(prefix + "AUTH_TOKEN"); tok != "" {
		cfg.AuthGuard.BearerToken = tok
	}
	if secret := v.GetString(prefix + "HMAC_SECRET"); secret != "" {
		cfg.AuthGuard.Secret = []byte(secret)
	}

	if addr := v.GetString("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if path := v.GetString("WAYPOINT_STORE_PATH"); path != "" {
		cfg.WaypointStorePath = path
	}

	applyProxyEnv(cfg, v)
}

// applyProxyEnv populates cfg.Proxies from AGENT_<SERVICE>_BASE_URL for
// every known backend service, for use by the standalone MCP proxy
// binary (spec §4.12's candidate/base-URL auto-detection).
func applyProxyEnv(cfg *Config, v *viper.Viper) {
	for _, svc := range knownServices {
		key := "AGENT_" + strings.ToUpper(svc) + "_BASE_URL"
		base := v.GetString(key)
		if base == "" {
			continue
		}
		cfg.Proxies[svc] = MCPProxy{
			BaseURL:           base,
			CandidateBaseURLs: []string{base},
			DefaultTimeout:    10 * time.Second,
		}
	}
}
