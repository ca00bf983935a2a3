package shipping

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ambtus/checkout-api/internal/common"
)

// Handler exposes a shipping quote endpoint.
type Handler struct {
	Resolver Resolver
}

// Quote returns the flat shipping fee and delivery estimate for a state.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	uf := strings.TrimSpace(r.URL.Query().Get("uf"))
	fee, err := h.Resolver.Resolve(uf)
	if err != nil {
		if errors.Is(err, ErrInvalidRegion) {
			common.JSONError(w, http.StatusBadRequest, common.CodeSchemaValidation, "uf must be a two-letter state code", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "shipping error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"uf":            strings.ToUpper(uf),
		"shippingCents": fee,
		"estimatedDays": EstimateDelivery(uf),
		"nearRegion":    IsNear(uf),
	})
}
