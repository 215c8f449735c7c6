package app

import (
	"fmt"
	"net"
	"os"

	"newsdb/pkg/config"

	"github.com/adhocore/gronx"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(cfg *config.Config) error {
	// DB path must be present
	if cfg.Server.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, NEWSDB_DB_PATH env, or server.db_path in config")
	}

	if p := cfg.Server.Port; p < 0 || p > 65535 {
		return fmt.Errorf("invalid server.port %d: must be 0-65535", p)
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// Upstream is optional; when set it must carry an explicit port since
	// plain and TLS NNTP live on different ones (119 vs 563).
	if addr := cfg.Upstream.Address; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid upstream.address %q: must be host:port", addr)
		}
	}

	// Bad cron expressions should kill the process at startup, not on the
	// first scheduler tick.
	if cfg.Refresh.Enabled && cfg.Refresh.Cron != "" {
		if !gronx.IsValid(cfg.Refresh.Cron) {
			return fmt.Errorf("invalid refresh.cron expression: %q", cfg.Refresh.Cron)
		}
	}
	if cfg.Retention.Enabled && cfg.Retention.Cron != "" {
		if !gronx.IsValid(cfg.Retention.Cron) {
			return fmt.Errorf("invalid retention.cron expression: %q", cfg.Retention.Cron)
		}
	}

	return nil
}
