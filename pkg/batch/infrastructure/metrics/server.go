package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	config "github.com/tigerroll/setwave/pkg/batch/core/config"
	logger "github.com/tigerroll/setwave/pkg/batch/support/util/logger"
)

// metricsShutdownTimeout bounds the graceful shutdown of the /metrics listener.
const metricsShutdownTimeout = 5 * time.Second

// ServerParams defines the dependencies for RegisterMetricsServer.
type ServerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Recorder  *PrometheusRecorder
}

// RegisterMetricsServer exposes the recorder's registry on /metrics when the
// metrics listener is enabled. The listener runs for the life of the
// application and shuts down gracefully with it.
func RegisterMetricsServer(p ServerParams) {
	metricsCfg := p.Config.Setwave.Metrics
	if !metricsCfg.Enabled {
		logger.Debugf("Metrics listener is disabled.")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.Recorder.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", metricsCfg.Port),
		Handler: mux,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Infof("Metrics listener serving on %s/metrics.", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics listener failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, metricsShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
