package offer

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service    Service
	defaultTTL time.Duration
}

func NewHandler(service Service, defaultTTL time.Duration) *Handler {
	return &Handler{service: service, defaultTTL: defaultTTL}
}

func (h *Handler) RegisterRoutes(router *chi.Mux) {
	router.Post("/offers", h.generateOffer)
	router.Get("/offers", h.listOffers)
	router.Get("/offers/{id}", h.getOffer)
	router.Post("/offers/{id}/price", h.adjustPrice)
	router.Delete("/offers/{id}", h.removeOffer)
}

func (h *Handler) generateOffer(w http.ResponseWriter, r *http.Request) {
	type request struct {
		MerchantID string `json:"merchant_id"`
		Strategy   string `json:"strategy"`
		TTLSeconds int    `json:"ttl_seconds"`
		Staged     bool   `json:"staged"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	var (
		o   *Offer
		err error
	)
	if req.Staged {
		o, err = h.service.Stage(r.Context(), req.MerchantID, req.Strategy, ttl)
	} else {
		o, err = h.service.Generate(r.Context(), req.MerchantID, req.Strategy, ttl)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if o == nil {
		http.Error(w, "no eligible product to offer", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListActive(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offers)
}

func (h *Handler) getOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrOfferNotFound) {
		http.Error(w, "offer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

func (h *Handler) adjustPrice(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Price      float64 `json:"price"`
		TTLSeconds int     `json:"ttl_seconds"`
	}

	id := chi.URLParam(r, "id")
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	o, err := h.service.AdjustPrice(r.Context(), id, req.Price, ttl)
	if errors.Is(err, ErrOfferNotFound) {
		http.Error(w, "offer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

func (h *Handler) removeOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.service.Remove(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"removed": removed})
}
