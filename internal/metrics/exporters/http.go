// Package exporters publishes capture metrics over HTTP and SSE.
package exporters

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/videocap/internal/logging"
)

// HTTPHandler serves every promauto-registered metric. Clients that ask for
// OpenMetrics get it; a failing collector is logged and the rest are still
// served.
func HTTPHandler() http.Handler {
	errorLog := slog.NewLogLogger(logging.GetLogger("metrics").Handler(), slog.LevelWarn)
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          errorLog,
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}))
}
