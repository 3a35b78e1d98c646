package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// CyclesTotal counts completed trading cycles
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_cycles_total",
		Help: "Total trading cycles completed",
	})

	// ModelTurnsTotal counts model request/response turns
	ModelTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_model_turns_total",
		Help: "Total reasoning-model turns across all cycles",
	})

	// ToolDispatchesTotal counts tool invocations by tool name
	ToolDispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_tool_dispatches_total",
		Help: "Total tool dispatches by tool name",
	}, []string{"tool"})

	// TradesExecutedTotal counts executed orders by action
	TradesExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_trades_executed_total",
		Help: "Total executed trade orders by action",
	}, []string{"action"})

	// RiskRejectionsTotal counts orders rejected by the risk gate
	RiskRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_risk_rejections_total",
		Help: "Total orders rejected by risk validation",
	})

	// CycleDuration observes wall-clock time per cycle
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trader_cycle_duration_seconds",
		Help:    "Trading cycle duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Serve runs the Prometheus scrape endpoint until ctx is cancelled
func Serve(ctx context.Context, port int, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", port).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}
