package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentBuildTotal counts payment request builds by gateway and result.
	PaymentBuildTotal *prometheus.CounterVec
	// PaymentCallbackTotal counts inbound gateway callback outcomes.
	PaymentCallbackTotal *prometheus.CounterVec
	// GatewayQueryTotal counts status-query outcomes against the gateways.
	GatewayQueryTotal *prometheus.CounterVec
	// ReconcileSettledTotal counts payments settled by the reconciliation worker.
	ReconcileSettledTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentBuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_build_total",
			Help:      "Count of payment request build outcomes.",
		}, []string{"gateway", "result"})
		PaymentCallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callback_total",
			Help:      "Count of processed gateway callbacks by outcome.",
		}, []string{"gateway", "result"})
		GatewayQueryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_query_total",
			Help:      "Count of gateway status-query outcomes.",
		}, []string{"gateway", "status"})
		ReconcileSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_settled_total",
			Help:      "Count of payments settled by reconciliation.",
		}, []string{"gateway", "status"})

		PaymentBuildTotal = registerCounterVec(reg, PaymentBuildTotal)
		PaymentCallbackTotal = registerCounterVec(reg, PaymentCallbackTotal)
		GatewayQueryTotal = registerCounterVec(reg, GatewayQueryTotal)
		ReconcileSettledTotal = registerCounterVec(reg, ReconcileSettledTotal)
	})
}
