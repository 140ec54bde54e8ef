package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. Components bump the atomic
// counters; Prometheus reads them through gauge functions.
type Metrics struct {
	// Capture counters
	FramesCaptured  atomic.Uint64
	CaptureFailures atomic.Uint64
	Reconnects      atomic.Uint64

	// Detection counters
	DetectionsTotal   atomic.Uint64
	DetectorFallbacks atomic.Uint64

	// Monitoring loop state
	CyclesTotal      atomic.Uint64
	CycleDurationUs  atomic.Uint64
	CamerasConnected atomic.Uint64
	ZonesOccupied    atomic.Uint64

	// Relay state
	RelayActive      atomic.Uint64 // 0 = inactive, 1 = active
	RelayActivations atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerCollectors()
	return m
}

func (m *Metrics) registerCollectors() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"zonemonitor_frames_captured_total", "Total frames captured across all cameras", m.FramesCaptured.Load},
		{"zonemonitor_capture_failures_total", "Total failed frame reads and stream opens", m.CaptureFailures.Load},
		{"zonemonitor_reconnects_total", "Total camera reconnection attempts", m.Reconnects.Load},
		{"zonemonitor_detections_total", "Total person detections accepted by the adapter", m.DetectionsTotal.Load},
		{"zonemonitor_detector_fallbacks_total", "Total cycles served by the stand-in detector", m.DetectorFallbacks.Load},
		{"zonemonitor_cycles_total", "Total monitoring loop cycles", m.CyclesTotal.Load},
		{"zonemonitor_cycle_duration_us", "Duration of the last monitoring cycle in microseconds", m.CycleDurationUs.Load},
		{"zonemonitor_cameras_connected", "Number of cameras currently connected", m.CamerasConnected.Load},
		{"zonemonitor_zones_occupied", "Number of zones currently occupied", m.ZonesOccupied.Load},
		{"zonemonitor_relay_active", "Relay state (0=inactive, 1=active)", m.RelayActive.Load},
		{"zonemonitor_relay_activations_total", "Total relay activations", m.RelayActivations.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// UpdateCycleDuration records the duration of the last monitoring cycle.
func (m *Metrics) UpdateCycleDuration(d time.Duration) {
	m.CycleDurationUs.Store(uint64(d.Microseconds()))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
