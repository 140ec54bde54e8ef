package camera

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"zonemonitor/internal/config"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
)

// Registry owns the set of running cameras and reconciles it against
// configuration changes.
type Registry struct {
	open    OpenFunc
	backoff time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	cameras map[string]*Camera
}

// NewRegistry creates an empty registry. Pass OpenRTSP in production.
func NewRegistry(open OpenFunc, backoff time.Duration, log *logger.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		open:    open,
		backoff: backoff,
		log:     log,
		metrics: m,
		cameras: make(map[string]*Camera),
	}
}

// Reconcile applies a camera configuration set-wise: new cameras are
// created and started, removed ones stopped and dropped, cameras with a
// changed stream address or sample rate are restarted, and unchanged
// cameras are left running untouched.
func (r *Registry) Reconcile(configs []config.CameraConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := lo.KeyBy(configs, func(c config.CameraConfig) string { return c.ID })

	removed, _ := lo.Difference(lo.Keys(r.cameras), lo.Keys(incoming))
	for _, id := range removed {
		r.log.Info("Removing camera %s", id)
		r.cameras[id].Stop()
		delete(r.cameras, id)
	}

	for id, cfg := range incoming {
		existing, ok := r.cameras[id]
		if ok && existing.StreamURL() == cfg.StreamURL && sameRate(existing.FPS(), cfg.FPS) {
			existing.setName(cfg.Name)
			continue
		}

		if ok {
			r.log.Info("Restarting camera %s (stream settings changed)", id)
			existing.Stop()
		} else {
			r.log.Info("Adding camera %s (%s)", id, cfg.StreamURL)
		}

		cam := newCamera(cfg, r.open, r.backoff, r.log, r.metrics)
		cam.start()
		r.cameras[id] = cam
	}
}

// sameRate treats a non-positive configured FPS as the default so a
// reconcile with the same config never restarts the camera.
func sameRate(running, configured float64) bool {
	if configured <= 0 {
		configured = defaultFPS
	}
	return running == configured
}

// Snapshot returns a stable copy of the camera map; reconciliation may
// run concurrently without invalidating the returned view.
func (r *Registry) Snapshot() map[string]*Camera {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*Camera, len(r.cameras))
	for id, cam := range r.cameras {
		out[id] = cam
	}
	return out
}

// Get returns the camera with the given id, or nil.
func (r *Registry) Get(id string) *Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cameras[id]
}

// IDs returns the set of active camera ids.
func (r *Registry) IDs() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]struct{}, len(r.cameras))
	for id := range r.cameras {
		out[id] = struct{}{}
	}
	return out
}

// Status returns snapshots for all cameras, for the API and the status
// emitter.
func (r *Registry) Status() []Status {
	snapshot := r.Snapshot()

	out := make([]Status, 0, len(snapshot))
	for _, cam := range snapshot {
		out = append(out, cam.Status())
	}
	return out
}

// StopAll stops every camera and empties the registry.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, cam := range r.cameras {
		cam.Stop()
		delete(r.cameras, id)
	}
}
