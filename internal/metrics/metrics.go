// Package metrics collects render counters for batch runs and writes them
// in the Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "thumbnail"

// Render kinds and results used as label values.
const (
	KindStatic   = "static"
	KindAnimated = "animated"
	KindUnknown  = "unknown"

	ResultOK    = "ok"
	ResultError = "error"
)

// Collector owns a private registry so several collectors can coexist in
// one process (tests, embedded use).
type Collector struct {
	reg *prometheus.Registry

	renders         *prometheus.CounterVec
	framesCaptured  prometheus.Counter
	captureSeconds  prometheus.Histogram
	transientFrames prometheus.Gauge
	cleanupFailures prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers all thumbnail metrics on a fresh registry.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed thumbnail renders by kind and result.",
		}, []string{"kind", "result"}),
		framesCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames read back from the render host.",
		}),
		captureSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_seconds",
			Help:      "Time spent waiting for one captured frame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		transientFrames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transient_frames",
			Help:      "Per-frame files currently on disk awaiting encode.",
		}),
		cleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Transient frames that could not be deleted.",
		}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// FrameCaptured records one capture and its latency.
func (c *Collector) FrameCaptured(d time.Duration) {
	c.framesCaptured.Inc()
	c.captureSeconds.Observe(d.Seconds())
}

// TransientFrames sets the number of transient frames on disk.
func (c *Collector) TransientFrames(n int) {
	c.transientFrames.Set(float64(n))
}

// CleanupFailed counts frames left behind after cleanup.
func (c *Collector) CleanupFailed(n int) {
	c.cleanupFailures.Add(float64(n))
}

// RenderFinished counts one finished render.
func (c *Collector) RenderFinished(kind string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.renders.WithLabelValues(kind, result).Inc()
}

// WriteTextfile atomically writes every metric to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}
