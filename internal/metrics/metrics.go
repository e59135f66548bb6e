// Package metrics exposes Prometheus instruments for the index and search paths.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values for RecordsIndexed.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	RecordsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recdex",
			Name:      "records_indexed_total",
			Help:      "Total number of records offered to the indexer",
		},
		[]string{"result"}, // "ok" / "error"
	)

	IndexesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recdex",
			Name:      "indexes_created_total",
			Help:      "Total number of per-fingerprint indexes created",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recdex",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, including resolution",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SearchHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recdex",
			Name:      "search_hits_total",
			Help:      "Total number of hits returned to callers",
		},
	)

	ResolveErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recdex",
			Name:      "resolve_errors_total",
			Help:      "Total number of hits that could not be fetched or rendered",
		},
	)
)

func init() {
	prometheus.MustRegister(RecordsIndexed)
	prometheus.MustRegister(IndexesCreated)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchHits)
	prometheus.MustRegister(ResolveErrors)
}

// ObserveIndex counts one indexed record by outcome.
func ObserveIndex(err error) {
	if err != nil {
		RecordsIndexed.WithLabelValues(ResultError).Inc()
		return
	}
	RecordsIndexed.WithLabelValues(ResultOK).Inc()
}

// ObserveSearch records one completed search.
func ObserveSearch(start time.Time, hits, resolveErrors int) {
	SearchDuration.Observe(time.Since(start).Seconds())
	SearchHits.Add(float64(hits))
	ResolveErrors.Add(float64(resolveErrors))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics_server_started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
