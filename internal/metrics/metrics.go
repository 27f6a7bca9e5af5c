// Package metrics exposes Prometheus metrics for the snippet service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Snippet lifecycle
	SnippetsWritten prometheus.Counter
	SnippetsDeleted prometheus.Counter
	SnippetsEvicted prometheus.Counter
	SnippetReads    *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates the metrics and registers them, together with the Go
// runtime and process collectors, on a dedicated registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		SnippetsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_snippets_written_total",
			Help: "Snippets created or overwritten.",
		}),
		SnippetsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_snippets_deleted_total",
			Help: "Snippets deleted on request.",
		}),
		SnippetsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_snippets_evicted_total",
			Help: "Expired snippets removed on read or by the reaper.",
		}),
		SnippetReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastebin_snippet_reads_total",
			Help: "Snippet reads by result (hit, miss).",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pastebin_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pastebin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SnippetsWritten,
		r.SnippetsDeleted,
		r.SnippetsEvicted,
		r.SnippetReads,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Evicted is suitable as a domain.WithEvictHook callback.
func (r *Registry) Evicted(string) {
	r.SnippetsEvicted.Inc()
}
