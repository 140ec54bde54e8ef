package camera

import (
	"testing"
	"time"

	"zonemonitor/internal/config"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
)

func testRegistry(t *testing.T) (*Registry, *fakeOpener) {
	t.Helper()
	opener := &fakeOpener{}
	r := NewRegistry(opener.open, 20*time.Millisecond, logger.New(t.TempDir()), metrics.New())
	t.Cleanup(r.StopAll)
	return r, opener
}

func camCfg(id, url string) config.CameraConfig {
	return config.CameraConfig{ID: id, Name: id, StreamURL: url, FPS: 30}
}

func TestRegistry_ReconcileAddsAndRemoves(t *testing.T) {
	r, _ := testRegistry(t)

	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a"), camCfg("cam2", "fake://b")})
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("Expected 2 cameras, got %d", got)
	}

	removed := r.Get("cam2")
	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a")})

	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("Expected 1 camera after removal, got %d", got)
	}
	if r.Get("cam2") != nil {
		t.Error("Removed camera should not be retrievable")
	}
	if st := removed.Status(); st.State != "stopped" {
		t.Errorf("Removed camera should be stopped, got %s", st.State)
	}
}

func TestRegistry_ReconcileKeepsUnchangedCameras(t *testing.T) {
	r, _ := testRegistry(t)

	cfg := []config.CameraConfig{camCfg("cam1", "fake://a")}
	r.Reconcile(cfg)
	before := r.Get("cam1")

	r.Reconcile(cfg)
	if r.Get("cam1") != before {
		t.Error("Identical reconcile should not restart the camera")
	}

	// FPS omitted in config resolves to the default and still matches.
	r.Reconcile([]config.CameraConfig{{ID: "cam2", StreamURL: "fake://b"}})
	cam2 := r.Get("cam2")
	r.Reconcile([]config.CameraConfig{{ID: "cam2", StreamURL: "fake://b"}})
	if r.Get("cam2") != cam2 {
		t.Error("Reconcile with default fps should not restart the camera")
	}
}

func TestRegistry_ReconcileRestartsOnStreamChange(t *testing.T) {
	r, _ := testRegistry(t)

	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a")})
	before := r.Get("cam1")

	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://other")})
	after := r.Get("cam1")

	if after == before {
		t.Error("Changing the stream address should replace the camera")
	}
	if before.Status().State != "stopped" {
		t.Error("Replaced camera should be stopped")
	}
	if after.StreamURL() != "fake://other" {
		t.Errorf("New camera should carry the new address, got %s", after.StreamURL())
	}

	changed := camCfg("cam1", "fake://other")
	changed.FPS = 5
	r.Reconcile([]config.CameraConfig{changed})
	if r.Get("cam1") == after {
		t.Error("Changing the sample rate should replace the camera")
	}
}

func TestRegistry_ReconcileRenamesInPlace(t *testing.T) {
	r, _ := testRegistry(t)

	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a")})
	before := r.Get("cam1")

	renamed := camCfg("cam1", "fake://a")
	renamed.Name = "front door"
	r.Reconcile([]config.CameraConfig{renamed})

	if r.Get("cam1") != before {
		t.Error("A rename should not restart the camera")
	}
	if got := before.Status().Name; got != "front door" {
		t.Errorf("Expected renamed camera, got %q", got)
	}
}

func TestRegistry_IDsAndStatus(t *testing.T) {
	r, _ := testRegistry(t)
	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a"), camCfg("cam2", "fake://b")})

	ids := r.IDs()
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	for _, id := range []string{"cam1", "cam2"} {
		if _, ok := ids[id]; !ok {
			t.Errorf("Missing id %s", id)
		}
	}

	if got := len(r.Status()); got != 2 {
		t.Errorf("Expected 2 statuses, got %d", got)
	}
}

func TestRegistry_StopAll(t *testing.T) {
	r, _ := testRegistry(t)
	r.Reconcile([]config.CameraConfig{camCfg("cam1", "fake://a")})
	cam := r.Get("cam1")

	r.StopAll()

	if len(r.Snapshot()) != 0 {
		t.Error("StopAll should empty the registry")
	}
	if cam.Status().State != "stopped" {
		t.Error("StopAll should stop every camera")
	}
}
