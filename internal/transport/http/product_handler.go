package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensor/internal/errors"
	"licensor/internal/services"
)

// ProductHandler serves the product catalogue that licenses are issued
// against.
type ProductHandler struct {
	service      services.LicenseService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewProductHandler creates a new product handler
func NewProductHandler(service services.LicenseService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "products")),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// Routes returns the chi router for product endpoints.
func (h *ProductHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"products": products,
		"count":    len(products),
	})
}
