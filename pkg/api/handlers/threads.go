package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"newsdb/pkg/logger"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
	"newsdb/pkg/telemetry"
	"newsdb/pkg/threading"

	"github.com/gorilla/mux"
)

// RegisterThreads registers the thread view route.
func RegisterThreads(r *mux.Router) {
	r.HandleFunc("/groups/{group}/threads", getThreads).Methods(http.MethodGet)
}

// getThreads handles GET /groups/{group}/threads. It loads the group's
// cached overview rows, runs the threading engine over fresh Article values
// and renders the resulting forest. The tree is never stored; every request
// rebuilds it.
//
// Query parameters:
//   - "limit": cap on overview rows loaded (default and ceiling from config).
//   - "subject_fold": "false"/"0" disables subject grouping, leaving only
//     reference-based linking.
func getThreads(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	group := pathVar(r, "group")
	if _, err := store.GetGroup(group); err != nil {
		http.Error(w, `{"error":"group not cached"}`, http.StatusNotFound)
		return
	}

	limit := maxThreadArticles
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		if lim, err := strconv.Atoi(limStr); err == nil && lim > 0 && lim < limit {
			limit = lim
		}
	}
	fold := true
	if fs := r.URL.Query().Get("subject_fold"); fs != "" {
		if v, err := strconv.ParseBool(fs); err == nil {
			fold = v
		}
	}

	rows, err := store.ListArticles(group, 0, 0, limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	// Thread rewrites the articles' link fields, so each request decodes
	// its own copies from the stored JSON.
	arts := make([]threading.Threadable, 0, len(rows))
	for _, s := range rows {
		var a models.Article
		if err := json.Unmarshal([]byte(s), &a); err != nil || a.MessageID == "" {
			continue
		}
		aa := a
		arts = append(arts, &aa)
	}

	// A panic out of Thread means a threading bug; the request-scoped
	// copies are discarded either way, so answer 500 instead of dropping
	// the connection.
	defer func() {
		if p := recover(); p != nil {
			logger.Error("thread_build_panic", "group", group, "panic", fmt.Sprint(p))
			http.Error(w, `{"error":"thread build failed"}`, http.StatusInternalServerError)
		}
	}()

	start := time.Now()
	th := threading.NewThreader()
	th.NoSubjectFold = !fold
	var rootArt *models.Article
	if root := th.Thread(arts); root != nil {
		rootArt = root.(*models.Article)
	}
	forest := models.BuildForest(rootArt)
	if forest == nil {
		forest = []*models.ThreadNode{}
	}
	elapsed := time.Since(start)

	telemetry.RecordThreadBuild(group, elapsed.Seconds(), len(arts))
	logger.Info("threads_built", "group", group, "articles", len(arts), "roots", len(forest), "ms", elapsed.Milliseconds())

	_ = json.NewEncoder(w).Encode(struct {
		Group    string               `json:"group"`
		Articles int                  `json:"articles"`
		Threads  []*models.ThreadNode `json:"threads"`
	}{Group: group, Articles: len(arts), Threads: forest})
}
