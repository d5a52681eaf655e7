package observability

import (
	"context"
	"net/http"

	"github.com/CeoSolace/stealth-bte/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup initializes logging, metrics and tracing. The returned handler
// serves /metrics; the returned func shuts tracing down.
func Setup(serviceName string) (func(context.Context) error, http.Handler) {
	observability.InitLogger()
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing(serviceName)
	return tracerShutdown, promhttp.Handler()
}
