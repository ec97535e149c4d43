package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeConcurrency bounds concurrent scrapes; excess scrapes get 503.
const scrapeConcurrency = 4

// Handler serves the collector's registry in the Prometheus or OpenMetrics
// exposition format. Scrape counts and encoding errors are recorded as
// promhttp_metric_handler_* series on the same registry, and a failing
// collector is logged without failing the scrape.
func (c *Collector) Handler() http.Handler {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog:            slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            c.registry,
		MaxRequestsInFlight: scrapeConcurrency,
		EnableOpenMetrics:   true,
	})
	return promhttp.InstrumentMetricHandler(c.registry, h)
}
