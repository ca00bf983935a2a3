package security

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ambtus/checkout-api/internal/common"
	"github.com/ambtus/checkout-api/internal/obs"
)

// EventKind classifies a suspicious checkout interaction.
type EventKind string

const (
	// EventPriceMismatch fires when the client-echoed total disagrees with
	// the server-derived total beyond tolerance.
	EventPriceMismatch EventKind = "price_mismatch"
	// EventProductNotFound fires when a checkout names an unknown product.
	EventProductNotFound EventKind = "product_not_found"
	// EventInvalidInstallments fires when the requested installment count
	// falls outside the allowed range.
	EventInvalidInstallments EventKind = "invalid_installments"
)

// Event is an append-only record of a suspicious interaction, carrying
// enough provenance to correlate with access logs.
type Event struct {
	Kind      EventKind
	ProductID string
	Detail    string

	ExpectedCents int64
	ReceivedCents int64

	IP        string
	UserAgent string
	RequestID string
	Route     string
}

// Recorder accepts security events. Recording must never fail a checkout;
// implementations swallow their own errors.
type Recorder interface {
	Record(ev Event)
}

// LogRecorder writes security events as structured warnings and bumps the
// per-kind counter.
type LogRecorder struct {
	Log zerolog.Logger
}

func (r LogRecorder) Record(ev Event) {
	e := r.Log.Warn().
		Str("security_event", string(ev.Kind)).
		Str("product_id", ev.ProductID).
		Str("ip", ev.IP).
		Str("user_agent", ev.UserAgent).
		Str("request_id", ev.RequestID).
		Str("route", ev.Route)
	if ev.Kind == EventPriceMismatch {
		e = e.Int64("expected_cents", ev.ExpectedCents).
			Int64("received_cents", ev.ReceivedCents).
			Int64("delta_cents", ev.ReceivedCents-ev.ExpectedCents)
	}
	if ev.Detail != "" {
		e = e.Str("detail", ev.Detail)
	}
	e.Msg("security event")

	if obs.SecurityEventsTotal != nil {
		obs.SecurityEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// Provenance fills the request-derived fields of an event in place.
func Provenance(ev *Event, r *http.Request) {
	if r == nil {
		return
	}
	ev.IP = common.ClientIP(r)
	ev.UserAgent = strings.TrimSpace(r.Header.Get("User-Agent"))
	ev.RequestID = middleware.GetReqID(r.Context())
	ev.Route = obs.RoutePatternFromContext(r.Context())
	if ev.Route == "" {
		ev.Route = r.URL.Path
	}
}
