// Package metrics define las métricas Prometheus del gateway. Van en un
// paquete propio para evitar ciclos de import entre el cliente SCIM2 y las
// capas HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_http_requests_total",
		Help: "Total de requests HTTP recibidos",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_http_request_duration_seconds",
		Help:    "Duración de requests HTTP en segundos",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "path"})

	UpstreamCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_upstream_api_calls_total",
		Help: "Total de llamadas a la API SCIM2 del identity provider",
	}, []string{"method", "endpoint", "status"})

	UpstreamCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_upstream_api_duration_seconds",
		Help:    "Duración de llamadas a la API SCIM2 en segundos",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method", "endpoint"})
)

// Register registra las métricas en el registry dado (o el default si es nil).
// Tolera AlreadyRegisteredError para no romper en tests que registran dos veces.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamCallsTotal,
		UpstreamCallDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveHTTPRequest registra un request HTTP atendido.
func ObserveHTTPRequest(method, path string, status int, dur time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

// ObserveUpstreamCall registra una llamada a la API del provider.
// status 0 significa fallo de red (sin respuesta).
func ObserveUpstreamCall(method, endpoint string, status int, dur time.Duration) {
	UpstreamCallsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	UpstreamCallDuration.WithLabelValues(method, endpoint).Observe(dur.Seconds())
}

// Handler expone el endpoint /metrics en formato Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
