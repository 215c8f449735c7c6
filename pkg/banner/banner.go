package banner

import (
	"fmt"

	"newsdb/pkg/config"
)

const banner = `
███╗   ██╗███████╗██╗    ██╗███████╗    ██████╗ ██████╗
████╗  ██║██╔════╝██║    ██║██╔════╝    ██╔══██╗██╔══██╗
██╔██╗ ██║█████╗  ██║ █╗ ██║███████╗    ██║  ██║██████╔╝
██║╚██╗██║██╔══╝  ██║███╗██║╚════██║    ██║  ██║██╔══██╗
██║ ╚████║███████╗╚███╔███╔╝███████║    ██████╔╝██████╔╝
╚═╝  ╚═══╝╚══════╝ ╚══╝╚══╝ ╚══════╝    ╚═════╝ ╚═════╝
`

// Print writes the startup banner with the effective config, where it
// came from, and a short production checklist.
func Print(cfg *config.Config, source, version string) {
	addr := ""
	dbPath := ""
	if cfg != nil {
		addr = cfg.Addr()
		dbPath = cfg.Server.DBPath
	}
	if source == "" {
		source = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if cfg != nil && cfg.Upstream.Address != "" {
		up := cfg.Upstream.Address
		if cfg.Upstream.TLS {
			up += " (tls)"
		}
		fmt.Printf("Upstream: %s\n", up)
	} else {
		fmt.Println("Upstream: none (cache-only)")
	}
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", source)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -X POST 'http://<host>:<port>/v1/groups' -d '{\"name\": \"comp.lang.go\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/groups/comp.lang.go/threads?limit=200'")
	fmt.Println("\n== Production? =================================================")
	be := 0
	fe := 0
	ak := 0
	if cfg != nil {
		be = len(cfg.Security.APIKeys.Backend)
		fe = len(cfg.Security.APIKeys.Frontend)
		ak = len(cfg.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	tlsOK := cfg != nil && cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if cfg != nil && cfg.Upstream.Address != "" && cfg.Upstream.Username == "" {
		fmt.Println("- Upstream auth: none (fine for open servers)")
	}

	refEnabled := cfg != nil && cfg.Refresh.Enabled
	if refEnabled {
		expr := cfg.Refresh.Cron
		if expr == "" {
			expr = "*/15 * * * *"
		}
		fmt.Printf("- Refresh: enabled (cron=%s)\n", expr)
	} else {
		fmt.Println("- Refresh: disabled (cache only updates on manual sync)")
	}

	retEnabled := cfg != nil && cfg.Retention.Enabled
	if retEnabled {
		retInfo := ""
		if cfg.Retention.Cron != "" {
			retInfo = "cron=" + cfg.Retention.Cron
		}
		if cfg.Retention.DryRun {
			if retInfo != "" {
				retInfo += ", "
			}
			retInfo += "dry-run"
		}
		if retInfo != "" {
			fmt.Printf("- Retention: enabled (%s)\n", retInfo)
		} else {
			fmt.Println("- Retention: enabled")
		}
	} else {
		fmt.Println("- Retention: disabled (cache grows unbounded)")
	}

	fmt.Println("\n== Logs: =================================================")
}
