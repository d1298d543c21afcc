// Package metrics records Prometheus metrics for the frame pipeline.
//
// A nil [*Metrics] is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidterm"

// Metrics holds the pipeline's collectors.
//
// Create instances with [New].
type Metrics struct {
	FramesRendered  prometheus.Counter
	FramesSkipped   prometheus.Counter
	FramesScaled    prometheus.Counter
	AudioStarts     prometheus.Counter
	ConvertDuration prometheus.Histogram
}

// New creates [Metrics] and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		FramesRendered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Frames written to the terminal.",
		}),
		FramesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames skipped after a transient conversion failure.",
		}),
		FramesScaled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_scaled_total",
			Help:      "Frame images resized before conversion.",
		}),
		AudioStarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_starts_total",
			Help:      "Audio player launches.",
		}),
		ConvertDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_convert_seconds",
			Help:      "Time spent converting a frame through the text-art service.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
	}
}

// Rendered records a rendered frame and how long its conversion took.
func (m *Metrics) Rendered(convert time.Duration) {
	if m == nil {
		return
	}

	m.FramesRendered.Inc()
	m.ConvertDuration.Observe(convert.Seconds())
}

// Skipped records a skipped frame.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}

	m.FramesSkipped.Inc()
}

// Scaled records n resized frames.
func (m *Metrics) Scaled(n int) {
	if m == nil {
		return
	}

	m.FramesScaled.Add(float64(n))
}

// AudioStarted records an audio player launch.
func (m *Metrics) AudioStarted() {
	if m == nil {
		return
	}

	m.AudioStarts.Inc()
}

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			logger.Warn("shutting down metrics server", slog.Any("err", err))
		}
	}()

	logger.Debug("serving metrics", slog.String("addr", addr))

	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}

	return nil
}
