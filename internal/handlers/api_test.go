package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/config"
	"zonemonitor/internal/database"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
	"zonemonitor/internal/relay"
	"zonemonitor/internal/services/websocket"
	"zonemonitor/internal/zone"
)

type stubSource struct {
	mu     sync.Mutex
	mat    gocv.Mat
	closed bool
}

func newStubSource() *stubSource {
	return &stubSource{mat: gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)}
}

func (s *stubSource) Read(m *gocv.Mat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.mat.CopyTo(m)
	return true
}

func (s *stubSource) IsOpened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *stubSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.mat.Close()
	}
	return nil
}

type nullOutput struct{}

func (nullOutput) Set(pin int, level bool) error { return nil }

func testAPI(t *testing.T) *API {
	t.Helper()

	dir := t.TempDir()
	log := logger.New(filepath.Join(dir, "logs"))
	m := metrics.New()

	store, err := config.NewStore(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Failed to create config store: %v", err)
	}

	db, err := database.New(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("Failed to create event database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	open := func(url string) (camera.Source, error) { return newStubSource(), nil }
	registry := camera.NewRegistry(open, time.Second, log, m)
	t.Cleanup(registry.StopAll)

	return &API{
		Store:     store,
		Registry:  registry,
		Evaluator: zone.NewEvaluator(log),
		Relay:     relay.NewController(nullOutput{}, store.Document().GPIO, log, m),
		Events:    db,
		Hub:       websocket.NewHubService(log),
		Logger:    log,
	}
}

func TestConfigHandler_GetDefaults(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	ConfigHandler(api)(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var doc config.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if doc.GPIO.OutputPin != 17 {
		t.Errorf("Expected default gpio pin 17, got %d", doc.GPIO.OutputPin)
	}
}

func TestConfigHandler_PostAppliesLive(t *testing.T) {
	api := testAPI(t)

	body := `{
		"cameras": [{"id": "cam1", "name": "front", "rtsp_url": "fake://stream", "fps": 30}],
		"zones": [{
			"camera_id": "cam1",
			"name": "entry",
			"points": [[0,0],[100,0],[100,100],[0,100]],
			"confidence_threshold": 0.6,
			"enabled": true
		}],
		"gpio": {"output_pin": 27, "active_high": true, "activation_delay": 1},
		"detector": {"confidence_threshold": 0.5}
	}`

	rec := httptest.NewRecorder()
	ConfigHandler(api)(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if api.Registry.Get("cam1") == nil {
		t.Error("Camera should be running after config post")
	}

	zones := api.Evaluator.Snapshot()
	if len(zones) != 1 || zones[0].CameraID != "cam1" {
		t.Fatalf("Zone should be live after config post, got %+v", zones)
	}
	if zones[0].ID == "" {
		t.Error("Zone posted without an id should get one assigned")
	}

	if got := api.Relay.State().Pin; got != 27 {
		t.Errorf("Relay should move to pin 27, got %d", got)
	}

	// The document is persisted, not just applied.
	doc := api.Store.Document()
	if len(doc.Cameras) != 1 || doc.GPIO.OutputPin != 27 {
		t.Errorf("Posted configuration not persisted: %+v", doc)
	}
}

func TestConfigHandler_PostRejectsGarbage(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	ConfigHandler(api)(rec, httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestZonesHandler_PostReconciles(t *testing.T) {
	api := testAPI(t)
	api.Registry.Reconcile([]config.CameraConfig{{ID: "cam1", StreamURL: "fake://stream", FPS: 30}})

	body := `[{
		"id": "z1",
		"camera_id": "cam1",
		"name": "entry",
		"points": [[0,0],[50,0],[50,50]],
		"confidence_threshold": 0.5,
		"enabled": true
	}]`

	rec := httptest.NewRecorder()
	ZonesHandler(api)(rec, httptest.NewRequest(http.MethodPost, "/api/zones", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	zones := api.Evaluator.Snapshot()
	if len(zones) != 1 || zones[0].ID != "z1" {
		t.Errorf("Zone should be live, got %+v", zones)
	}
}

func TestStatusHandler(t *testing.T) {
	api := testAPI(t)
	api.Registry.Reconcile([]config.CameraConfig{{ID: "cam1", StreamURL: "fake://stream", FPS: 30}})

	rec := httptest.NewRecorder()
	StatusHandler(api)(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var payload StatusPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if len(payload.Cameras) != 1 {
		t.Errorf("Expected 1 camera in status, got %d", len(payload.Cameras))
	}
	if payload.Relay.Pin != 17 {
		t.Errorf("Expected relay pin 17 in status, got %d", payload.Relay.Pin)
	}
}

func TestEventsHandler_Validation(t *testing.T) {
	api := testAPI(t)

	cases := []struct {
		url  string
		want int
	}{
		{"/api/events", http.StatusOK},
		{"/api/events?kind=zone_occupied&limit=5", http.StatusOK},
		{"/api/events?since=not-a-time", http.StatusBadRequest},
		{"/api/events?limit=zero", http.StatusBadRequest},
		{"/api/events?limit=-3", http.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		EventsHandler(api)(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
		if rec.Code != tc.want {
			t.Errorf("GET %s: expected %d, got %d", tc.url, tc.want, rec.Code)
		}
	}
}

func TestEventsHandler_ReturnsStoredEvents(t *testing.T) {
	api := testAPI(t)

	if _, err := api.Events.InsertEvent(&database.Event{
		Timestamp: time.Now(),
		Kind:      database.KindZoneOccupied,
		Subject:   "z1",
	}); err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}

	rec := httptest.NewRecorder()
	EventsHandler(api)(rec, httptest.NewRequest(http.MethodGet, "/api/events?kind=zone_occupied", nil))

	var events []database.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("Failed to decode events: %v", err)
	}
	if len(events) != 1 || events[0].Subject != "z1" {
		t.Errorf("Expected the seeded event, got %+v", events)
	}
}

func TestGPIOHandler_MethodNotAllowed(t *testing.T) {
	api := testAPI(t)

	rec := httptest.NewRecorder()
	GPIOHandler(api)(rec, httptest.NewRequest(http.MethodDelete, "/api/gpio", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
