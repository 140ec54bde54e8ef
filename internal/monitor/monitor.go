package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/database"
	"zonemonitor/internal/detect"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/zone"
)

const stopTimeout = 2 * time.Second

// Monitor is the top-level driver: each cycle it pulls the freshest
// frame from every connected camera, runs detection, evaluates zones,
// and feeds the aggregated occupancy signal to the relay controller.
// A fault in one camera's processing never blocks the others.
type Monitor struct {
	registry  *camera.Registry
	adapter   *detect.Adapter
	evaluator *zone.Evaluator
	relay     *relay.Controller
	events    *database.Database
	log       *logger.Logger
	metrics   *metrics.Metrics
	interval  time.Duration

	connState map[string]bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New wires a monitor; Start launches its loop.
func New(registry *camera.Registry, adapter *detect.Adapter, evaluator *zone.Evaluator,
	relayCtl *relay.Controller, events *database.Database,
	interval time.Duration, log *logger.Logger, m *metrics.Metrics) *Monitor {

	return &Monitor{
		registry:  registry,
		adapter:   adapter,
		evaluator: evaluator,
		relay:     relayCtl,
		events:    events,
		log:       log,
		metrics:   m,
		interval:  interval,
		connState: make(map[string]bool),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the monitoring loop.
func (m *Monitor) Start() {
	go m.run()
}

func (m *Monitor) run() {
	defer close(m.done)
	m.log.Info("Monitoring loop started (cycle %s)", m.interval)

	for {
		select {
		case <-m.stop:
			m.log.Info("Monitoring loop stopped")
			return
		default:
		}

		start := time.Now()
		m.Cycle()
		m.metrics.UpdateCycleDuration(time.Since(start))
		m.metrics.CyclesTotal.Add(1)

		select {
		case <-m.stop:
			m.log.Info("Monitoring loop stopped")
			return
		case <-time.After(m.interval):
		}
	}
}

// Cycle runs one evaluation pass over all cameras and zones and applies
// the result to the relay.
func (m *Monitor) Cycle() {
	cameras := m.registry.Snapshot()

	ids := make([]string, 0, len(cameras))
	for id := range cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	connected := 0
	for _, id := range ids {
		cam := cameras[id]

		isConnected := cam.Connected()
		m.trackConnection(id, isConnected)
		if !isConnected {
			continue
		}
		connected++

		frame, ok := cam.Latest()
		if !ok {
			continue
		}

		detections := m.adapter.DetectPersons(frame)
		transitions := m.evaluator.EvaluateCamera(id, detections)
		frame.Close()

		for _, t := range transitions {
			m.recordZoneTransition(t)
		}
	}
	m.metrics.CamerasConnected.Store(uint64(connected))

	wasActive := m.relay.State().Active
	m.relay.Notify(m.evaluator.AnyOccupied())
	m.recordRelayTransition(wasActive, m.relay.State())

	m.metrics.ZonesOccupied.Store(uint64(m.evaluator.OccupiedCount()))
}

func (m *Monitor) trackConnection(cameraID string, isConnected bool) {
	prev, seen := m.connState[cameraID]
	m.connState[cameraID] = isConnected
	if seen && prev == isConnected {
		return
	}

	kind := database.KindCameraDisconnected
	if isConnected {
		kind = database.KindCameraConnected
	}
	// First observation only gets an event when the camera is up.
	if !seen && !isConnected {
		return
	}

	m.insertEvent(&database.Event{
		Timestamp: time.Now(),
		Kind:      kind,
		Subject:   cameraID,
	})
}

func (m *Monitor) recordZoneTransition(t zone.Transition) {
	kind := database.KindZoneCleared
	if t.Occupied {
		kind = database.KindZoneOccupied
	}

	m.log.Info("Zone %s (camera %s): occupied=%v", t.ZoneID, t.CameraID, t.Occupied)
	m.insertEvent(&database.Event{
		Timestamp: t.At,
		Kind:      kind,
		Subject:   t.ZoneID,
		Detail:    fmt.Sprintf("camera=%s", t.CameraID),
	})
}

func (m *Monitor) recordRelayTransition(wasActive bool, state relay.State) {
	if wasActive == state.Active {
		return
	}

	kind := database.KindRelayDeactivated
	if state.Active {
		kind = database.KindRelayActivated
	}

	m.insertEvent(&database.Event{
		Timestamp: time.Now(),
		Kind:      kind,
		Subject:   fmt.Sprintf("pin-%d", state.Pin),
	})
}

func (m *Monitor) insertEvent(e *database.Event) {
	if m.events == nil {
		return
	}
	if _, err := m.events.InsertEvent(e); err != nil {
		m.log.Error("Failed to record event %s/%s: %v", e.Kind, e.Subject, err)
	}
}

// Stop signals the loop to exit and joins it with a bounded timeout.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})

	select {
	case <-m.done:
	case <-time.After(stopTimeout):
		m.log.Warning("Monitoring loop did not exit in time")
	}
}
