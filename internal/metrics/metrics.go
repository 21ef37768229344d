// Package metrics exposes Prometheus counters and gauges for the trading loop.
//
//   - botia5m_cycles_total{mode}            cycles completed (mode: normal|degraded)
//   - botia5m_decisions_total{action}       finalized decisions by action
//   - botia5m_paper_trades_total{side}      simulated fills
//   - botia5m_guard_rejections_total        actionable decisions the guard rejected
//   - botia5m_backoff_seconds               next degraded backoff
//   - botia5m_reference_price               last reference price seen
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/botia5m/internal/logger"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "botia5m_cycles_total", Help: "Engine cycles completed"},
		[]string{"mode"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "botia5m_decisions_total", Help: "Finalized decisions by action"},
		[]string{"action"},
	)
	PaperTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "botia5m_paper_trades_total", Help: "Simulated fills"},
		[]string{"side"},
	)
	GuardRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "botia5m_guard_rejections_total", Help: "Actionable decisions rejected by the safety guard"},
	)
	BackoffSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "botia5m_backoff_seconds", Help: "Next degraded-mode backoff in seconds"},
	)
	ReferencePrice = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "botia5m_reference_price", Help: "Last reference price observed"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, DecisionsTotal, PaperTradesTotal, GuardRejectionsTotal, BackoffSeconds, ReferencePrice)
}

// Serve starts the /metrics endpoint in the background. Listen failures are
// logged; they never stop the caller.
func Serve(addr string, log *logger.Logger) *http.Server {
	if log == nil {
		log = logger.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics_server_failed", err, logger.Fields{"addr": addr})
		}
	}()
	return srv
}
