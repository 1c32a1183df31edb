// Package metrics exposes the Prometheus collectors shared by the api and the
// cron worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "gigdesk"

// Registry bundles a private Prometheus registry with the service collectors.
type Registry struct {
	reg        *prometheus.Registry
	Cron       *CronJobMetrics
	HTTP       *HTTPMetrics
	Generation *GenerationMetrics
}

// New builds a registry with runtime collectors and all service metrics registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:        reg,
		Cron:       NewCronJobMetrics(reg),
		HTTP:       NewHTTPMetrics(reg),
		Generation: NewGenerationMetrics(reg),
	}
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
