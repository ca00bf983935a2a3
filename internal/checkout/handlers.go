package checkout

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ambtus/checkout-api/internal/common"
)

type Handler struct {
	Svc *Service
}

// Pay handles POST /api/v1/checkout/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var payload PayRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeSchemaValidation, "invalid payload", nil)
		return
	}
	out, err := h.Svc.Pay(r.Context(), payload, r)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, out)
}

// Simulate handles GET and POST /api/v1/installments/simulate. GET takes
// productId/uf query parameters; POST takes the same fields as JSON.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	productID := "ambtus-flash"
	uf := "SP"
	maxInstallments := 0

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		if v := strings.TrimSpace(q.Get("productId")); v != "" {
			productID = v
		}
		if v := strings.TrimSpace(q.Get("uf")); v != "" {
			uf = v
		}
		if v := q.Get("maxInstallments"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				maxInstallments = n
			}
		}
	} else {
		var body struct {
			ProductID       string `json:"productId"`
			UF              string `json:"uf"`
			MaxInstallments int    `json:"maxInstallments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeSchemaValidation, "invalid payload", nil)
			return
		}
		if strings.TrimSpace(body.ProductID) != "" {
			productID = body.ProductID
		}
		if strings.TrimSpace(body.UF) != "" {
			uf = body.UF
		}
		maxInstallments = body.MaxInstallments
	}

	out, err := h.Svc.Simulate(productID, uf, maxInstallments)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, out)
}

// Status handles GET /api/v1/payments/{id}/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if len(id) < 4 {
		common.JSONError(w, http.StatusBadRequest, common.CodeSchemaValidation, "invalid payment id", nil)
		return
	}
	charge, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"paymentId":   charge.ID,
		"status":      charge.Status,
		"rawStatus":   charge.RawStatus,
		"valueCents":  charge.ValueCents,
		"billingType": charge.BillingType,
	})
}
