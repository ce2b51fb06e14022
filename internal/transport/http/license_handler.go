package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensor/internal/errors"
	"licensor/internal/middleware"
	"licensor/internal/services"
)

// LicenseHandler handles the administrative license surface.
type LicenseHandler struct {
	service      services.LicenseService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *middleware.RequestValidator
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "license")),
		errorHandler: apierrors.NewErrorHandler(logger),
		validator:    middleware.NewRequestValidator(),
	}
}

// IssueLicenseRequest is the issuance payload. Capacity fields use the
// integer wire encoding (-1 unlimited, -2 untracked) and default from
// config when omitted.
type IssueLicenseRequest struct {
	ProductID       string `json:"productId" validate:"required"`
	DiscordID       string `json:"discordId" validate:"required"`
	DiscordUsername string `json:"discordUsername,omitempty"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	MaxIPs          *int   `json:"maxIps,omitempty"`
	MaxHWIDs        *int   `json:"maxHwids,omitempty"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
}

// Bind implements render.Binder.
func (req *IssueLicenseRequest) Bind(r *http.Request) error { return nil }

// SetStatusRequest toggles the administrative status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (req *SetStatusRequest) Bind(r *http.Request) error { return nil }

// RenewRequest sets a new expiry instant (RFC 3339).
type RenewRequest struct {
	ExpiresAt string `json:"expiresAt" validate:"required"`
}

func (req *RenewRequest) Bind(r *http.Request) error { return nil }

// PatchIdentityRequest inserts evidence administratively.
type PatchIdentityRequest struct {
	IP   string `json:"ip,omitempty"`
	HWID string `json:"hwid,omitempty"`
}

func (req *PatchIdentityRequest) Bind(r *http.Request) error { return nil }

// SubUserRequest names the delegated identity.
type SubUserRequest struct {
	SubUserDiscordID string `json:"subUserDiscordId" validate:"required"`
}

func (req *SubUserRequest) Bind(r *http.Request) error { return nil }

// Routes returns the chi router for the administrative license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Issue)
	r.Route("/{key}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.SetStatus)
		r.Delete("/", h.Delete)
		r.Patch("/renew", h.Renew)
		r.Patch("/identities", h.PatchIdentity)
		r.Post("/sub-users", h.AddSubUser)
		r.Delete("/sub-users", h.RemoveSubUser)
	})
	return r
}

// List handles GET /api/licenses
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, licenses)
}

// Get handles GET /api/licenses/{key}
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	lic, err := h.service.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}

// Issue handles POST /api/licenses
func (h *LicenseHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueLicenseRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lic, err := h.service.Issue(r.Context(), services.IssueParams{
		ProductID:       req.ProductID,
		DiscordID:       req.DiscordID,
		DiscordUsername: req.DiscordUsername,
		Email:           req.Email,
		MaxIPs:          req.MaxIPs,
		MaxHWIDs:        req.MaxHWIDs,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, lic)
}

// SetStatus handles PATCH /api/licenses/{key}
func (h *LicenseHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lic, err := h.service.SetStatus(r.Context(), chi.URLParam(r, "key"), req.Status)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}

// Delete handles DELETE /api/licenses/{key}
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Renew handles PATCH /api/licenses/{key}/renew
func (h *LicenseHandler) Renew(w http.ResponseWriter, r *http.Request) {
	var req RenewRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lic, err := h.service.Renew(r.Context(), chi.URLParam(r, "key"), req.ExpiresAt)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}

// PatchIdentity handles PATCH /api/licenses/{key}/identities
func (h *LicenseHandler) PatchIdentity(w http.ResponseWriter, r *http.Request) {
	var req PatchIdentityRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}

	lic, err := h.service.PatchIdentity(r.Context(), chi.URLParam(r, "key"), req.IP, req.HWID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}

// AddSubUser handles POST /api/licenses/{key}/sub-users
func (h *LicenseHandler) AddSubUser(w http.ResponseWriter, r *http.Request) {
	var req SubUserRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lic, err := h.service.AddSubUser(r.Context(), chi.URLParam(r, "key"), req.SubUserDiscordID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}

// RemoveSubUser handles DELETE /api/licenses/{key}/sub-users
func (h *LicenseHandler) RemoveSubUser(w http.ResponseWriter, r *http.Request) {
	var req SubUserRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	lic, err := h.service.RemoveSubUser(r.Context(), chi.URLParam(r, "key"), req.SubUserDiscordID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, lic)
}
