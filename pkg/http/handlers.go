package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"shortlink/pkg/logging"
	"shortlink/pkg/middleware"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	linkService *service.LinkService
	logger      *logging.Logger
	fallbackURL string
}

func NewHandler(linkService *service.LinkService, logger *logging.Logger, fallbackURL string) *Handler {
	return &Handler{
		linkService: linkService,
		logger:      logger,
		fallbackURL: fallbackURL,
	}
}

// Redirect resolves an address and answers 302 to its target, marking the
// link visited on the way. Unknown and expired addresses degrade to a 302 to
// the fallback URL; a store failure is not a miss and surfaces as a 500.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")

	target, err := h.linkService.Resolve(r.Context(), addr)
	if err != nil {
		h.logger.Error(r.Context(), "redirect resolution failed", "address", addr, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if target == "" {
		target = h.fallbackURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.linkService.CreateLink(r.Context(), &req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, service.ErrInvalidTarget),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidDomain):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrAddressTaken):
		http.Error(w, "address already taken", http.StatusConflict)
	case errors.Is(err, service.ErrAddressExhausted):
		http.Error(w, "try again later", http.StatusServiceUnavailable)
	default:
		h.logger.Error(r.Context(), "link creation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	link, err := h.linkService.GetLink(r.Context(), id)
	if err != nil {
		h.logger.Error(r.Context(), "link lookup failed", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if link == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes wires the two surfaces: the authenticated management API under
// /api and the public catch-all redirect at the root.
func SetupRoutes(r *chi.Mux, handler *Handler, auth func(http.Handler) http.Handler) {
	r.Use(middleware.CorrelationID)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handler.HealthCheck)
		api.Group(func(authed chi.Router) {
			authed.Use(auth)
			authed.Post("/links", handler.CreateLink)
			authed.Get("/links/{id}", handler.GetLink)
		})
	})

	r.Get("/{address}", handler.Redirect)
}
