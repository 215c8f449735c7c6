package auth

import (
	"net"
	"net/http"
	"strings"

	"newsdb/pkg/logger"
	"newsdb/pkg/utils"
)

// Gateway returns the request middleware enforcing CORS, IP whitelisting,
// API-key authentication and per-caller rate limits. The resolved role is
// stamped on the request as X-Role-Name for handlers downstream.
func Gateway(sec SecConfig) func(http.Handler) http.Handler {
	pool := newLimiterPool(sec)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			if origin := r.Header.Get("Origin"); origin != "" {
				if originAllowed(origin, sec.AllowedOrigins) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Max-Age", "600")
					if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
						w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
					} else {
						w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
					}
					w.Header().Set("Access-Control-Expose-Headers", "X-Role-Name")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if len(sec.IPWhitelist) > 0 && !ipWhitelisted(clientIP(r), sec.IPWhitelist) {
				utils.JSONError(w, http.StatusForbidden, "ip not allowed")
				return
			}

			role := authenticate(r, sec)

			if unauthBypass(r) {
				r.Header.Set("X-Role-Name", roleName(role))
				next.ServeHTTP(w, r)
				return
			}

			if role == RoleUnauth {
				utils.JSONError(w, http.StatusUnauthorized, "missing or invalid API key")
				return
			}
			r.Header.Set("X-Role-Name", roleName(role))

			if role == RoleFrontend && !readOnly(r) {
				utils.JSONError(w, http.StatusForbidden, "frontend keys are read-only")
				return
			}

			key := presentedKey(r)
			if key == "" {
				key = clientIP(r)
			}
			if !pool.Allow(key) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			logger.Info("request_allowed", "path", r.URL.Path, "method", r.Method, "role", roleName(role))
			next.ServeHTTP(w, r)
		})
	}
}

// unauthBypass lists the probe and documentation surfaces that must work
// without a key. Scrapers and load balancers do not send Authorization.
func unauthBypass(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	p := r.URL.Path
	switch p {
	case "/healthz", "/readyz", "/version", "/metrics", "/openapi.yaml":
		return true
	}
	return strings.HasPrefix(p, "/docs")
}

// readOnly reports whether the request only reads state.
func readOnly(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func originAllowed(origin string, allowed []string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func presentedKey(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return tok
	}
	return r.Header.Get("X-API-Key")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate resolves the caller role from the presented key. Admin keys
// win over backend keys, backend over frontend, so one key can appear in
// several sets without weakening it.
func authenticate(r *http.Request, sec SecConfig) Role {
	key := presentedKey(r)
	if key == "" {
		return RoleUnauth
	}
	if _, ok := sec.AdminKeys[key]; ok {
		return RoleAdmin
	}
	if _, ok := sec.BackendKeys[key]; ok {
		return RoleBackend
	}
	if _, ok := sec.FrontendKeys[key]; ok {
		return RoleFrontend
	}
	return RoleUnauth
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ipWhitelisted accepts either literal IPs or CIDR blocks in the whitelist.
func ipWhitelisted(ip string, list []string) bool {
	parsed := net.ParseIP(ip)
	for _, entry := range list {
		if strings.Contains(entry, "/") {
			if _, cidr, err := net.ParseCIDR(entry); err == nil && parsed != nil && cidr.Contains(parsed) {
				return true
			}
			continue
		}
		if want := net.ParseIP(entry); want != nil && parsed != nil {
			if want.Equal(parsed) {
				return true
			}
			continue
		}
		if entry == ip {
			return true
		}
	}
	return false
}
