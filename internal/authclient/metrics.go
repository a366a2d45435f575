package authclient

import (
	"github.com/SwissDataScienceCenter/shop-admin-gateway/internal/gwerrors"
	"github.com/prometheus/client_golang/prometheus"
)

type clientMetrics struct {
	requests      *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	forcedLogouts prometheus.Counter
}

func newClientMetrics() *clientMetrics {
	return &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admin_gateway",
			Subsystem: "shop_api",
			Name:      "requests_total",
			Help:      "Logical requests to the shop API by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admin_gateway",
			Subsystem: "shop_api",
			Name:      "token_refreshes_total",
			Help:      "Access token refreshes by result.",
		}, []string{"result"}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "admin_gateway",
			Subsystem: "shop_api",
			Name:      "forced_logouts_total",
			Help:      "Logout signals sent because the session could not be renewed.",
		}),
	}
}

func (m *clientMetrics) register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{m.requests, m.refreshes, m.forcedLogouts} {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (m *clientMetrics) observe(kind gwerrors.Kind) {
	m.requests.WithLabelValues(string(kind)).Inc()
}

func (m *clientMetrics) observeSuccess() {
	m.requests.WithLabelValues("success").Inc()
}
