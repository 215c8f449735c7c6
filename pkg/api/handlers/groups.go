package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsdb/pkg/auth"
	"newsdb/pkg/ingest"
	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/nntp"
	"newsdb/pkg/store"
	"newsdb/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterGroups registers group subscription and sync routes.
func RegisterGroups(r *mux.Router) {
	r.HandleFunc("/groups", listGroups).Methods(http.MethodGet)
	r.HandleFunc("/groups", createGroup).Methods(http.MethodPost)
	r.HandleFunc("/groups/{group}", getGroup).Methods(http.MethodGet)
	r.HandleFunc("/groups/{group}", deleteGroup).Methods(http.MethodDelete)
	r.HandleFunc("/groups/{group}/sync", syncGroup).Methods(http.MethodPost)
}

// listGroups handles GET /groups. Returns every cached group record.
func listGroups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vals, err := store.ListGroups()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	out := make([]models.Group, 0, len(vals))
	for _, v := range vals {
		var g models.Group
		if err := json.Unmarshal([]byte(v), &g); err != nil {
			continue
		}
		out = append(out, g)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Groups []models.Group `json:"groups"`
	}{Groups: out})
}

// createGroup handles POST /groups to subscribe to a newsgroup. The body is
// {"name":"alt.folklore.computers"}. The group is checked against the
// upstream before it is stored; the initial backfill runs through the
// ingest queue.
func createGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if !utils.ValidGroupName(req.Name) {
		http.Error(w, `{"error":"invalid group name"}`, http.StatusBadRequest)
		return
	}
	if prober == nil {
		http.Error(w, `{"error":"upstream not configured"}`, http.StatusServiceUnavailable)
		return
	}

	g, err := prober.Probe(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, nntp.ErrNoSuchGroup) {
			http.Error(w, `{"error":"no such group upstream"}`, http.StatusNotFound)
			return
		}
		logger.Error("subscribe_probe_failed", "group", req.Name, "error", err.Error())
		http.Error(w, `{"error":"upstream unavailable"}`, http.StatusBadGateway)
		return
	}

	// Resubscribing keeps the sync watermarks so backfill does not restart.
	status := http.StatusCreated
	if s, gerr := store.GetGroup(req.Name); gerr == nil {
		var prev models.Group
		if json.Unmarshal([]byte(s), &prev) == nil {
			g.SyncedHigh = prev.SyncedHigh
			g.LastSyncTS = prev.LastSyncTS
			g.Description = prev.Description
		}
		status = http.StatusOK
	}
	g.Subscribed = true

	if err := store.SaveGroup(g); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if err := ingest.DefaultQueue.EnqueueSync(g.Name, utils.GenSyncID()); err != nil {
		// The periodic refresh will pick the group up.
		logger.Warn("subscribe_enqueue_failed", "group", g.Name, "error", err.Error())
	}
	logger.Info("group_subscribed", "group", g.Name, "low", g.Low, "high", g.High)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(g)
}

// getGroup handles GET /groups/{group}. Returns the cached group record.
func getGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	name := pathVar(r, "group")
	s, err := store.GetGroup(name)
	if err != nil {
		http.Error(w, `{"error":"group not cached"}`, http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(s))
}

// deleteGroup handles DELETE /groups/{group}: unsubscribe and drop every
// cached article. Backend or admin keys only.
func deleteGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !auth.IsBackend(r) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	name := pathVar(r, "group")
	if _, err := store.GetGroup(name); err != nil {
		http.Error(w, `{"error":"group not cached"}`, http.StatusNotFound)
		return
	}
	if err := store.DeleteGroup(name); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("group_unsubscribed", "group", name)
	w.WriteHeader(http.StatusNoContent)
}

// syncGroup handles POST /groups/{group}/sync: enqueue an on-demand sync.
// The work itself runs on the ingest workers; the 202 carries the sync id.
func syncGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	name := pathVar(r, "group")
	if _, err := store.GetGroup(name); err != nil {
		http.Error(w, `{"error":"group not cached"}`, http.StatusNotFound)
		return
	}
	id := utils.GenSyncID()
	if err := ingest.DefaultQueue.EnqueueSync(name, id); err != nil {
		if errors.Is(err, ingest.ErrQueueFull) {
			http.Error(w, `{"error":"server busy; try again"}`, http.StatusTooManyRequests)
			return
		}
		http.Error(w, `{"error":"enqueue failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"sync_id": id})
}
