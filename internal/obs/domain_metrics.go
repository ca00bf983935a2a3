package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutChargesTotal counts checkout outcomes by payment method.
	CheckoutChargesTotal *prometheus.CounterVec
	// SecurityEventsTotal counts recorded security events by kind.
	SecurityEventsTotal *prometheus.CounterVec
	// GatewayRequestsTotal counts upstream gateway call outcomes.
	GatewayRequestsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutChargesTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_charges_total",
			Help:      "Count of checkout charge attempts by method and result.",
		}, []string{"method", "result"}))
		SecurityEventsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Count of recorded security events by kind.",
		}, []string{"kind"}))
		GatewayRequestsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Count of payment gateway requests by operation and result.",
		}, []string{"operation", "result"}))
	})
}
