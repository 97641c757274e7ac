package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/honeynil/BankClientService/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup installs the default logger, registers the service collectors and
// starts tracing towards otlpEndpoint. The returned func flushes pending spans.
func Setup(serviceName, logLevel, otlpEndpoint string) (func(context.Context) error, http.Handler) {
	observability.InitLogger(logLevel)
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing(serviceName, otlpEndpoint)

	metrics := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		EnableOpenMetrics: true,
	})
	slog.Info("observability initialised", "service", serviceName, "log_level", logLevel)
	return tracerShutdown, metrics
}
