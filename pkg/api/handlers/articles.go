package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"newsdb/pkg/auth"
	"newsdb/pkg/ingest"
	"newsdb/pkg/models"
	"newsdb/pkg/store"
	"newsdb/pkg/utils"

	"github.com/gorilla/mux"
)

// Outbound posts larger than this are rejected before they reach the queue.
const maxPostBytes = 1 << 20

// RegisterArticles registers overview listing, message-id lookup and the
// outbound post route.
func RegisterArticles(r *mux.Router) {
	r.HandleFunc("/groups/{group}/articles", listArticles).Methods(http.MethodGet)
	r.HandleFunc("/articles", postArticle).Methods(http.MethodPost)
	r.HandleFunc("/articles/{id}", getArticleByMessageID).Methods(http.MethodGet)
}

// listArticles handles GET /groups/{group}/articles to return raw overview
// rows. Optional query parameters "low", "high" and "limit" bound the
// article-number window.
func listArticles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	group := pathVar(r, "group")
	if _, err := store.GetGroup(group); err != nil {
		http.Error(w, `{"error":"group not cached"}`, http.StatusNotFound)
		return
	}

	var low, high int64
	if s := r.URL.Query().Get("low"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			low = v
		}
	}
	if s := r.URL.Query().Get("high"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			high = v
		}
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	rows, err := store.ListArticles(group, low, high, limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	out := make([]models.Article, 0, len(rows))
	for _, s := range rows {
		var a models.Article
		if err := json.Unmarshal([]byte(s), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Group    string           `json:"group"`
		Count    int              `json:"count"`
		Articles []models.Article `json:"articles"`
	}{Group: group, Count: len(out), Articles: out})
}

// getArticleByMessageID handles GET /articles/{id}. The id may be given
// with or without angle brackets; it is resolved through the message-id
// index to its group and number.
func getArticleByMessageID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		http.Error(w, `{"error":"message id missing"}`, http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(id, "<") {
		id = "<" + id + ">"
	}

	loc, err := store.LookupMessageID(id)
	if err != nil {
		http.Error(w, `{"error":"message id not cached"}`, http.StatusNotFound)
		return
	}
	s, err := store.GetArticle(loc.Group, loc.Number)
	if err != nil {
		http.Error(w, `{"error":"article not cached"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(struct {
		Group   string          `json:"group"`
		Number  int64           `json:"number"`
		Article json.RawMessage `json:"article"`
	}{Group: loc.Group, Number: loc.Number, Article: json.RawMessage(s)})
}

// postArticle handles POST /articles: accept a raw RFC-5536 article body
// and queue it for relay to the upstream. Backend or admin keys only; the
// 202 carries the queued post id.
func postArticle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !auth.IsBackend(r) {
		http.Error(w, `{"error":"backend key required"}`, http.StatusForbidden)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPostBytes))
	if err != nil {
		http.Error(w, `{"error":"article too large"}`, http.StatusRequestEntityTooLarge)
		return
	}
	if len(payload) == 0 {
		http.Error(w, `{"error":"empty article"}`, http.StatusBadRequest)
		return
	}

	id := utils.GenPostID()
	if err := ingest.DefaultQueue.EnqueuePost(id, payload); err != nil {
		if errors.Is(err, ingest.ErrQueueFull) {
			http.Error(w, `{"error":"server busy; try again"}`, http.StatusTooManyRequests)
			return
		}
		http.Error(w, `{"error":"enqueue failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}
