package monitor

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/config"
	"zonemonitor/internal/database"
	"zonemonitor/internal/detect"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/zone"
)

// frameSource feeds fixed-size frames to the capture loop.
type frameSource struct {
	mu     sync.Mutex
	mat    gocv.Mat
	closed bool
}

func newFrameSource(width, height int) *frameSource {
	return &frameSource{mat: gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)}
}

func (f *frameSource) Read(m *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.mat.CopyTo(m)
	return true
}

func (f *frameSource) IsOpened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *frameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.mat.Close()
	}
	return nil
}

// scriptedDetector returns whatever detections the test sets.
type scriptedDetector struct {
	mu  sync.Mutex
	raw []detect.RawDetection
}

func (s *scriptedDetector) set(raw []detect.RawDetection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

func (s *scriptedDetector) Detect(frame camera.Frame) ([]detect.RawDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, nil
}

type fakeOutput struct {
	mu     sync.Mutex
	levels map[int]bool
}

func (o *fakeOutput) Set(pin int, level bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.levels == nil {
		o.levels = make(map[int]bool)
	}
	o.levels[pin] = level
	return nil
}

func countKind(t *testing.T, db *database.Database, kind string) int {
	t.Helper()
	events, err := db.Events(&database.EventFilter{Kind: kind})
	if err != nil {
		t.Fatalf("Failed to query %s events: %v", kind, err)
	}
	return len(events)
}

// TestMonitor_EndToEnd drives one camera, one zone, and the relay through
// a full occupancy episode: a person steps into the zone, leaves shortly
// after, and the relay holds through the dwell before releasing.
func TestMonitor_EndToEnd(t *testing.T) {
	log := logger.New(t.TempDir())
	m := metrics.New()

	db, err := database.New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Failed to create event database: %v", err)
	}
	defer db.Close()

	open := func(url string) (camera.Source, error) {
		return newFrameSource(200, 200), nil
	}
	registry := camera.NewRegistry(open, time.Second, log, m)
	defer registry.StopAll()
	registry.Reconcile([]config.CameraConfig{
		{ID: "cam1", Name: "front", StreamURL: "fake://stream", FPS: 30},
	})

	// Wait until the capture loop delivers its first frame.
	deadline := time.Now().Add(2 * time.Second)
	for {
		cam := registry.Get("cam1")
		if frame, ok := cam.Latest(); ok {
			frame.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Camera never produced a frame")
		}
		time.Sleep(5 * time.Millisecond)
	}

	detector := &scriptedDetector{}
	adapter := detect.NewAdapter(detector, &detect.StandIn{}, 0.5, log, m)

	evaluator := zone.NewEvaluator(log)
	evaluator.Reconcile([]config.ZoneConfig{{
		ID:         "z1",
		CameraID:   "cam1",
		Name:       "entry",
		Points:     [][2]int{{0, 0}, {100, 0}, {100, 100}, {0, 100}},
		Confidence: 0.5,
		Enabled:    true,
	}}, registry.IDs())

	out := &fakeOutput{}
	relayCtl := relay.NewController(out, config.GPIOConfig{
		OutputPin:       17,
		ActiveHigh:      true,
		ActivationDelay: 0.5,
	}, log, m)

	mon := New(registry, adapter, evaluator, relayCtl, db, 10*time.Millisecond, log, m)

	// Person with their feet at (50,90) on the 200x200 frame, inside the
	// top-left quadrant zone.
	detector.set([]detect.RawDetection{{
		X1: 0.2, Y1: 0.25, X2: 0.3, Y2: 0.45,
		Confidence: 0.9,
		ClassID:    detect.ClassPerson,
	}})
	mon.Cycle()

	if !evaluator.AnyOccupied() {
		t.Fatal("Zone should be occupied after the detection cycle")
	}
	if !relayCtl.State().Active {
		t.Fatal("Relay should activate in the same cycle")
	}

	// The person leaves. 100ms into the 500ms dwell the zone clears but
	// the relay holds.
	detector.set(nil)
	time.Sleep(100 * time.Millisecond)
	mon.Cycle()

	if evaluator.AnyOccupied() {
		t.Error("Zone should clear once detections stop")
	}
	if !relayCtl.State().Active {
		t.Error("Relay should stay active inside the dwell window")
	}

	// Past the dwell the next empty cycle releases the relay.
	time.Sleep(550 * time.Millisecond)
	mon.Cycle()

	if relayCtl.State().Active {
		t.Error("Relay should deactivate once the dwell has elapsed")
	}

	if got := m.RelayActivations.Load(); got != 1 {
		t.Errorf("Expected exactly 1 relay activation, got %d", got)
	}
	if m.CamerasConnected.Load() != 1 {
		t.Errorf("Expected 1 connected camera, got %d", m.CamerasConnected.Load())
	}

	for kind, want := range map[string]int{
		database.KindCameraConnected:  1,
		database.KindZoneOccupied:     1,
		database.KindZoneCleared:      1,
		database.KindRelayActivated:   1,
		database.KindRelayDeactivated: 1,
	} {
		if got := countKind(t, db, kind); got != want {
			t.Errorf("Expected %d %s events, got %d", want, kind, got)
		}
	}
}

func TestMonitor_StartStop(t *testing.T) {
	log := logger.New(t.TempDir())
	m := metrics.New()

	open := func(url string) (camera.Source, error) {
		return newFrameSource(200, 200), nil
	}
	registry := camera.NewRegistry(open, time.Second, log, m)
	defer registry.StopAll()

	adapter := detect.NewAdapter(&scriptedDetector{}, &detect.StandIn{}, 0.5, log, m)
	evaluator := zone.NewEvaluator(log)
	relayCtl := relay.NewController(&fakeOutput{}, config.GPIOConfig{OutputPin: 17, ActiveHigh: true}, log, m)

	mon := New(registry, adapter, evaluator, relayCtl, nil, 5*time.Millisecond, log, m)
	mon.Start()

	time.Sleep(50 * time.Millisecond)
	mon.Stop()
	mon.Stop() // idempotent

	if m.CyclesTotal.Load() == 0 {
		t.Error("Monitoring loop should have completed at least one cycle")
	}
}
