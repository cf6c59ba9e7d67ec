package need

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/marketsim-backend/internal/store"
)

type Handler struct {
	service    Service
	defaultTTL time.Duration
}

func NewHandler(service Service, defaultTTL time.Duration) *Handler {
	return &Handler{service: service, defaultTTL: defaultTTL}
}

func (h *Handler) RegisterRoutes(router *chi.Mux) {
	router.Post("/needs", h.submitNeed)
	router.Get("/needs", h.listNeeds)
	router.Get("/needs/{id}", h.getNeed)
	router.Delete("/needs/{id}", h.removeNeed)
}

func (h *Handler) submitNeed(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID      string      `json:"user_id"`
		Preferences Preferences `json:"preferences"`
		TTLSeconds  int         `json:"ttl_seconds"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	n, err := h.service.Submit(r.Context(), req.UserID, req.Preferences, ttl)
	if errors.Is(err, ErrUnknownUser) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(n)
}

func (h *Handler) listNeeds(w http.ResponseWriter, r *http.Request) {
	needs, err := h.service.ListActive(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(needs)
}

func (h *Handler) getNeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.service.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "need not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(n)
}

func (h *Handler) removeNeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.service.Remove(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"removed": removed})
}
