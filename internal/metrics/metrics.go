package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Recorder records scanner metrics in Prometheus
type Recorder struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	evaluations   *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	scores        *prometheus.HistogramVec
	cycleDuration prometheus.Gauge
	openSignals   prometheus.Gauge
}

// New creates a recorder with its own registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setup_scanner_cycles_total",
				Help: "Total number of scan cycles by result",
			},
			[]string{"result"},
		),
		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setup_scanner_evaluations_total",
				Help: "Total number of asset/timeframe evaluations by outcome",
			},
			[]string{"outcome"},
		),
		alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setup_scanner_alerts_total",
				Help: "Total number of alert decisions by category and status",
			},
			[]string{"category", "status"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "setup_scanner_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "setup_scanner_score",
				Help:    "Distribution of setup scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"regime"},
		),
		cycleDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "setup_scanner_last_cycle_duration_seconds",
			Help: "Duration of the last scan cycle in seconds",
		}),
		openSignals: factory.NewGauge(prometheus.GaugeOpts{
			Name: "setup_scanner_open_signals",
			Help: "Number of signals being monitored",
		}),
	}
}

// RecordCycle records a finished cycle
func (r *Recorder) RecordCycle(result string, d time.Duration) {
	r.cycles.WithLabelValues(result).Inc()
	r.cycleDuration.Set(d.Seconds())
}

// RecordEvaluation records one scored snapshot
func (r *Recorder) RecordEvaluation(outcome, regime string, score float64) {
	r.evaluations.WithLabelValues(outcome).Inc()
	r.scores.WithLabelValues(regime).Observe(score)
}

// RecordAlert records an alert decision
func (r *Recorder) RecordAlert(category, status string) {
	r.alerts.WithLabelValues(category, status).Inc()
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetOpenSignals records the number of monitored signals
func (r *Recorder) SetOpenSignals(n int) {
	r.openSignals.Set(float64(n))
}

// Handler exposes the recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
