package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds runtime key sets for use by other packages.
type RuntimeConfig struct {
	BackendKeys  map[string]struct{}
	FrontendKeys map[string]struct{}
	AdminKeys    map[string]struct{}
}

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Groups    []string        `yaml:"groups"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Retention RetentionConfig `yaml:"retention"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Threads   ThreadsConfig   `yaml:"threads"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// UpstreamConfig points at the NNTP server articles are pulled from.
type UpstreamConfig struct {
	Address  string   `yaml:"address"`
	TLS      bool     `yaml:"tls"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Timeout  Duration `yaml:"timeout"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// TraceDir, when set, enables the NNTP wire-trace sink under this
	// directory.
	TraceDir string `yaml:"trace_dir"`
}

// RefreshConfig drives the periodic group sync runner.
type RefreshConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	// Chunk is the overview window requested per OVER command.
	Chunk int `yaml:"chunk"`
	// MaxFetch caps how many articles one sync run will pull per group.
	MaxFetch  int     `yaml:"max_fetch"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

// RetentionConfig drives the expiry sweep over cached articles.
type RetentionConfig struct {
	Enabled     bool      `yaml:"enabled"`
	Cron        string    `yaml:"cron"`
	MaxAge      Duration  `yaml:"max_age"`
	MaxArticles int       `yaml:"max_articles"`
	MaxBytes    SizeBytes `yaml:"max_bytes"`
	DryRun      bool      `yaml:"dry_run"`
}

// IngestConfig holds queueing configuration for the fetch pipeline.
type IngestConfig struct {
	Queue QueueConfig `yaml:"queue"`
}

// QueueConfig tunes the in-memory sync queue.
type QueueConfig struct {
	Capacity             int       `yaml:"capacity"`
	Workers              int       `yaml:"workers"`
	MaxPooledBufferBytes SizeBytes `yaml:"max_pooled_buffer_bytes"`
}

// ThreadsConfig bounds per-request thread building.
type ThreadsConfig struct {
	MaxArticles int `yaml:"max_articles"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
