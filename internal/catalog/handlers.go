package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ambtus/checkout-api/internal/common"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	Catalog *Catalog
}

// List returns the full product line.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	if h == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": h.Catalog.List()})
}

// Detail returns a single product by id.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog unavailable", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeSchemaValidation, "product id is required", nil)
		return
	}
	product, err := h.Catalog.Lookup(id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeProductNotFound, "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog error", nil)
		return
	}
	common.JSON(w, http.StatusOK, product)
}
