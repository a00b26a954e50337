package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoundsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_rounds_settled_total",
		Help: "Rounds settled, by lane duration in minutes.",
	}, []string{"duration"})

	RoundsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_rounds_cancelled_total",
		Help: "Rounds force-cancelled, by lane duration in minutes.",
	}, []string{"duration"})

	WagersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wingo_wagers_settled_total",
		Help: "Wagers settled, by final result.",
	}, []string{"result"})

	StragglersRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wingo_stragglers_recovered_total",
		Help: "Late wagers caught by the recovery sweep.",
	})

	VerifierFixes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wingo_verifier_fixes_total",
		Help: "Lane inconsistencies auto-fixed by the verifier.",
	})

	ProfitPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wingo_house_profit_percent",
		Help: "Lifetime-since-restart house profit percentage.",
	})
)

type HealthFunc func(ctx context.Context) error

// StartServer runs a lightweight HTTP server for /metrics and /healthz on its
// own goroutine, one per process.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
