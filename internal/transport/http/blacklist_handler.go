package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensor/internal/errors"
	"licensor/internal/services"
	"licensor/pkg/contracts/domain"
)

// BlacklistHandler serves the global deny-list record. The record is read
// and replaced whole, matching the store's whole-document contract.
type BlacklistHandler struct {
	service      services.LicenseService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewBlacklistHandler creates a new blacklist handler
func NewBlacklistHandler(service services.LicenseService, logger *slog.Logger) *BlacklistHandler {
	return &BlacklistHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "blacklist")),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// BlacklistRequest is the whole-record replacement payload.
type BlacklistRequest struct {
	DiscordIDs []string `json:"discordIds"`
	IPs        []string `json:"ips,omitempty"`
	HWIDs      []string `json:"hwids,omitempty"`
}

// Bind implements render.Binder.
func (req *BlacklistRequest) Bind(r *http.Request) error { return nil }

// Routes returns the chi router for blacklist endpoints.
func (h *BlacklistHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Replace)
	return r
}

// Get handles GET /api/blacklist
func (h *BlacklistHandler) Get(w http.ResponseWriter, r *http.Request) {
	bl, err := h.service.Blacklist(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, bl)
}

// Replace handles PUT /api/blacklist
func (h *BlacklistHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req BlacklistRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}

	bl := domain.Blacklist{DiscordIDs: req.DiscordIDs, IPs: req.IPs, HWIDs: req.HWIDs}
	if bl.DiscordIDs == nil {
		bl.DiscordIDs = []string{}
	}
	if err := h.service.ReplaceBlacklist(r.Context(), bl); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, bl)
}
