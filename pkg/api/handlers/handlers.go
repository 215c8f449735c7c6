// Package handlers holds the /v1 route handlers. Reads are served straight
// from the store; anything that talks to the upstream goes through the
// ingest queue so request latency never depends on the NNTP session.
package handlers

import (
	"context"
	"net/http"
	"net/url"

	"newsdb/pkg/models"

	"github.com/gorilla/mux"
)

// Prober validates a group against the upstream before a subscription is
// accepted.
type Prober interface {
	Probe(ctx context.Context, name string) (models.Group, error)
}

var (
	prober            Prober
	maxThreadArticles = 5000
)

// SetProber installs the upstream prober used by subscribe.
func SetProber(p Prober) { prober = p }

// SetMaxThreadArticles caps how many overview rows one thread build will
// load. Zero or negative keeps the current value.
func SetMaxThreadArticles(n int) {
	if n > 0 {
		maxThreadArticles = n
	}
}

// pathVar returns a route variable with percent-escapes resolved. The
// router matches on the encoded path so message-ids with slashes survive.
func pathVar(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
