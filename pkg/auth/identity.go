package auth

import "net/http"

// Role represents the resolved caller role for a request.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

// roleName is the wire form carried in X-Role-Name.
func roleName(r Role) string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	}
	return "unauth"
}

// SecConfig mirrors the security-related configuration used to drive
// authentication, CORS and rate limiting behavior. Put here so limiter.go
// and gateway.go can reference the shared type.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

// RequestRole reads the role the gateway resolved for this request.
func RequestRole(r *http.Request) string {
	return r.Header.Get("X-Role-Name")
}

// IsAdmin reports whether the gateway resolved an admin key.
func IsAdmin(r *http.Request) bool {
	return RequestRole(r) == "admin"
}

// IsBackend reports whether the caller holds a backend or admin key.
func IsBackend(r *http.Request) bool {
	role := RequestRole(r)
	return role == "backend" || role == "admin"
}
