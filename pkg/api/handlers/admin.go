package handlers

import (
	"encoding/json"
	"net/http"

	"newsdb/pkg/auth"
	"newsdb/pkg/ingest"
	"newsdb/pkg/models"
	"newsdb/pkg/store"

	"github.com/gorilla/mux"
)

// RegisterAdmin registers operator introspection routes.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/admin/stats", getStats).Methods(http.MethodGet)
}

// getStats handles GET /admin/stats: cache and queue statistics. Admin
// keys only; backend keys run services, admins run the server.
func getStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !auth.IsAdmin(r) {
		http.Error(w, `{"error":"admin key required"}`, http.StatusForbidden)
		return
	}

	vals, err := store.ListGroups()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	perGroup := map[string]int{}
	total := 0
	for _, v := range vals {
		var g models.Group
		if json.Unmarshal([]byte(v), &g) != nil || g.Name == "" {
			continue
		}
		n, cerr := store.CountArticles(g.Name)
		if cerr != nil {
			continue
		}
		perGroup[g.Name] = n
		total += n
	}

	q := ingest.DefaultQueue
	_ = json.NewEncoder(w).Encode(struct {
		Groups    int            `json:"groups"`
		Articles  int            `json:"articles"`
		PerGroup  map[string]int `json:"per_group"`
		DiskBytes uint64         `json:"disk_bytes"`
		Queue     struct {
			Depth    int    `json:"depth"`
			Capacity int    `json:"capacity"`
			Dropped  uint64 `json:"dropped"`
		} `json:"queue"`
	}{
		Groups:    len(perGroup),
		Articles:  total,
		PerGroup:  perGroup,
		DiskBytes: store.DiskUsage(),
		Queue: struct {
			Depth    int    `json:"depth"`
			Capacity int    `json:"capacity"`
			Dropped  uint64 `json:"dropped"`
		}{Depth: q.Len(), Capacity: q.Cap(), Dropped: q.Dropped()},
	})
}
