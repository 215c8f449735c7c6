package app

import (
	"crypto/tls"
	"net/http"
	"time"

	"newsdb/pkg/api"
	"newsdb/pkg/auth"
	"newsdb/pkg/banner"
	"newsdb/pkg/config"
	"newsdb/pkg/ingest"
	"newsdb/pkg/nntp"
	"newsdb/pkg/telemetry"
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "none" && a.commit != "" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.cfg, a.cfgSource, verStr)
}

// nntpDialer builds the upstream connection factory from config. Each call
// dials and handshakes a fresh session.
func nntpDialer(cfg *config.Config) ingest.Dialer {
	addr := cfg.Upstream.Address
	opts := []nntp.Option{}
	if d := cfg.Upstream.Timeout.Duration(); d > 0 {
		opts = append(opts, nntp.WithTimeout(d))
	}
	if cfg.Upstream.Username != "" {
		opts = append(opts, nntp.WithAuth(cfg.Upstream.Username, cfg.Upstream.Password))
	}
	useTLS := cfg.Upstream.TLS
	return func() (ingest.Upstream, error) {
		if useTLS {
			return nntp.DialTLS(addr, append(opts, nntp.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))...)
		}
		return nntp.Dial(addr, opts...)
	}
}

// secConfig builds the auth gateway configuration from the effective
// config and the runtime key sets.
func (a *App) secConfig() auth.SecConfig {
	sec := auth.SecConfig{
		AllowedOrigins: append([]string{}, a.cfg.Security.CORS.AllowedOrigins...),
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
		IPWhitelist:    append([]string{}, a.cfg.Security.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
		AdminKeys:      map[string]struct{}{},
	}
	for k := range a.rc.BackendKeys {
		sec.BackendKeys[k] = struct{}{}
	}
	for k := range a.rc.FrontendKeys {
		sec.FrontendKeys[k] = struct{}{}
	}
	for k := range a.rc.AdminKeys {
		sec.AdminKeys[k] = struct{}{}
	}
	return sec
}

// startHTTP builds the wrapped handler, starts the server in a goroutine
// and returns a channel carrying any fatal server error.
func (a *App) startHTTP() <-chan error {
	h := api.Handler(a.version, a.commit, a.buildDate)
	wrapped := auth.Gateway(a.secConfig())(h)
	wrapped = telemetry.Middleware(wrapped)

	a.srv = &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cert := a.cfg.Server.TLS.CertFile
		key := a.cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
