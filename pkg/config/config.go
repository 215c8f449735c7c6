package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

func copyKeys(src map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

// GetBackendKeys returns a copy of configured backend keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.BackendKeys)
}

// GetFrontendKeys returns a copy of configured frontend keys.
func GetFrontendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.FrontendKeys)
}

// GetAdminKeys returns a copy of configured admin keys.
func GetAdminKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.AdminKeys)
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.newsdb", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// reports whether any env vars were used.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("NEWSDB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("NEWSDB_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("NEWSDB_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("NEWSDB_DB_PATH"); v != "" {
		envUsed = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("NEWSDB_UPSTREAM_ADDR"); v != "" {
		envUsed = true
		cfg.Upstream.Address = v
	}
	if v := os.Getenv("NEWSDB_UPSTREAM_TLS"); v != "" {
		envUsed = true
		vl := strings.ToLower(strings.TrimSpace(v))
		cfg.Upstream.TLS = vl == "1" || vl == "true" || vl == "yes"
	}
	if v := os.Getenv("NEWSDB_UPSTREAM_USER"); v != "" {
		envUsed = true
		cfg.Upstream.Username = v
	}
	if v := os.Getenv("NEWSDB_UPSTREAM_PASS"); v != "" {
		envUsed = true
		cfg.Upstream.Password = v
	}
	if v := os.Getenv("NEWSDB_GROUPS"); v != "" {
		envUsed = true
		cfg.Groups = parseList(v)
	}
	if v := os.Getenv("NEWSDB_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("NEWSDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("NEWSDB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("NEWSDB_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("NEWSDB_API_BACKEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("NEWSDB_API_FRONTEND_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := os.Getenv("NEWSDB_API_ADMIN_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Admin = parseList(v)
	}
	if c := os.Getenv("NEWSDB_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("NEWSDB_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	return envUsed
}

// KeySets derives the runtime key maps from the configured API keys.
func (c *Config) KeySets() *RuntimeConfig {
	rc := &RuntimeConfig{
		BackendKeys:  map[string]struct{}{},
		FrontendKeys: map[string]struct{}{},
		AdminKeys:    map[string]struct{}{},
	}
	for _, k := range c.Security.APIKeys.Backend {
		rc.BackendKeys[k] = struct{}{}
	}
	for _, k := range c.Security.APIKeys.Frontend {
		rc.FrontendKeys[k] = struct{}{}
	}
	for _, k := range c.Security.APIKeys.Admin {
		rc.AdminKeys[k] = struct{}{}
	}
	return rc
}

// LoadEffective loads config from the given path and applies environment
// overrides. It returns the effective config, the derived runtime key sets
// and whether env vars were used. A missing config file is not an error;
// env and defaults still apply.
func LoadEffective(path string) (*Config, *RuntimeConfig, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, cfg.KeySets(), envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value when explicitly set, then NEWSDB_CONFIG, then the flag default.
func ResolveConfigPath(flagValue string, flagSet bool) string {
	if flagSet && flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("NEWSDB_CONFIG"); v != "" {
		return v
	}
	return flagValue
}
