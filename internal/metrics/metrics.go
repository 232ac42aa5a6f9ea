package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// URLsProcessed counts detail URLs by source and outcome (success, failure, duplicate, empty)
	URLsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobextract_urls_total",
		Help: "Detail URLs processed by the worker pool.",
	}, []string{"source", "outcome"})

	// RecordsEmitted counts records a source contributed after its own dedup
	RecordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobextract_records_total",
		Help: "Records emitted per source.",
	}, []string{"source"})

	AuthAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobextract_auth_attempts_total",
		Help: "Token requests made by the HCM API client.",
	})

	Fallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobextract_fallbacks_total",
		Help: "Times the HCM API client fell back to interactive extraction.",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
