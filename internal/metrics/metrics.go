// Package metrics exposes pipeline outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "traffiq"

// Metrics implements pipeline.Observer
type Metrics struct {
	framesProcessed      prometheus.Counter
	procTimeHistogram    prometheus.Histogram
	activeTracks         prometheus.Gauge
	tracksCreated        prometheus.Counter
	tracksRetired        prometheus.Counter
	violations           prometheus.Counter
	trackingErrors       prometheus.Counter
	passthrough          prometheus.Counter
	droppedDetections    *prometheus.CounterVec
	vehiclesWithoutSpeed prometheus.Counter
}

// NewMetrics creates collectors and registers them in reg.
// Nil procTimeBuckets gives prometheus.DefBuckets (seconds).
func NewMetrics(reg prometheus.Registerer, procTimeBuckets []float64) (*Metrics, error) {
	if procTimeBuckets == nil {
		procTimeBuckets = prometheus.DefBuckets
	}
	m := &Metrics{
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Number of processed frames.",
		}),
		procTimeHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_processing_seconds",
			Help:      "Histogram of per-frame processing times.",
			Buckets:   procTimeBuckets,
		}),
		activeTracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tracks",
			Help:      "Number of live vehicle tracks after the last frame.",
		}),
		tracksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_created_total",
			Help:      "Number of vehicle tracks started.",
		}),
		tracksRetired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_retired_total",
			Help:      "Number of vehicle tracks retired after too many misses.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_violations_total",
			Help:      "Number of person detections without protective gear.",
		}),
		trackingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_errors_total",
			Help:      "Number of frames whose vehicles could not be tracked.",
		}),
		passthrough: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_passthrough_total",
			Help:      "Number of detections passed through without annotation.",
		}),
		droppedDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_dropped_total",
			Help:      "Number of detections excluded from processing.",
		}, []string{"reason"}),
		vehiclesWithoutSpeed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speed_unavailable_total",
			Help:      "Number of tracked vehicle observations without speed estimate.",
		}),
	}
	collectors := []prometheus.Collector{
		m.framesProcessed,
		m.procTimeHistogram,
		m.activeTracks,
		m.tracksCreated,
		m.tracksRetired,
		m.violations,
		m.trackingErrors,
		m.passthrough,
		m.droppedDetections,
		m.vehiclesWithoutSpeed,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrap(err, "can't register collector")
		}
	}
	return m, nil
}

// ObserveFrame records outcome of a single frame
func (m *Metrics) ObserveFrame(result *pipeline.Result, elapsed time.Duration) {
	m.framesProcessed.Inc()
	m.procTimeHistogram.Observe(elapsed.Seconds())
	m.activeTracks.Set(float64(result.ActiveTracks))
	m.tracksRetired.Add(float64(result.RetiredTracks))
	m.violations.Add(float64(len(result.Violations)))
	m.passthrough.Add(float64(len(result.Passthrough)))
	if result.TrackingError != nil {
		m.trackingErrors.Inc()
	}
	for _, vehicle := range result.Vehicles {
		if vehicle.Created {
			m.tracksCreated.Inc()
		}
		if !vehicle.SpeedAvailable {
			m.vehiclesWithoutSpeed.Inc()
		}
	}
	for _, dropped := range result.Dropped {
		m.droppedDetections.WithLabelValues(string(dropped.Reason)).Inc()
	}
}

// Handler serves metrics gathered from g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
