// Package api builds the HTTP surface: liveness and readiness probes,
// prometheus metrics, swagger docs and the versioned /v1 API.
package api

import (
	"encoding/json"
	"net/http"

	"newsdb/pkg/api/handlers"
	"newsdb/pkg/store"
	"newsdb/pkg/telemetry"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler returns the full route tree. The auth gateway and telemetry
// middleware wrap it in internal/app; nothing here does its own auth
// beyond per-route role checks.
func Handler(version, commit, buildDate string) http.Handler {
	r := mux.NewRouter()
	// Match on the escaped path so message-ids containing slashes stay
	// one path segment. Handlers unescape their own vars.
	r.UseEncodedPath()

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyz(version)).Methods(http.MethodGet)
	r.HandleFunc("/version", versionInfo(version, commit, buildDate)).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)

	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs"))).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterGroups(v1)
	handlers.RegisterThreads(v1)
	handlers.RegisterArticles(v1)
	handlers.RegisterAdmin(v1)

	r.HandleFunc("/", rootHelp).Methods(http.MethodGet)
	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyz reports 503 until the store is open, so load balancers hold
// traffic during startup.
func readyz(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		ver := version
		if ver == "" {
			ver = "dev"
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + ver + `"}`))
	}
}

func versionInfo(version, commit, buildDate string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	}
}

func rootHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"endpoints":["GET /v1/groups","POST /v1/groups","GET /v1/groups/{group}","DELETE /v1/groups/{group}","POST /v1/groups/{group}/sync","GET /v1/groups/{group}/threads","GET /v1/groups/{group}/articles","GET /v1/articles/{message-id}","POST /v1/articles","GET /v1/admin/stats"]}`))
}
