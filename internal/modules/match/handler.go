package match

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketsim-backend/internal/store"
)

type Handler struct {
	engine *Engine
	store  store.Store
}

func NewHandler(engine *Engine, st store.Store) *Handler {
	return &Handler{engine: engine, store: st}
}

func (h *Handler) RegisterRoutes(router *chi.Mux) {
	router.Get("/traces/{user}", h.listTraces)
	router.Get("/metrics", h.metrics)
}

func (h *Handler) listTraces(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	traces, err := h.engine.TracesForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(traces)
}

// metrics exposes the running counters. They are observability only and
// never drive control flow.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	keys := []string{
		"metrics:needs_requested",
		"metrics:needs_satisfied",
		"metrics:products_created",
		"metrics:products_streamed",
	}
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		n, err := h.store.Counter(r.Context(), key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out[key] = n
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
