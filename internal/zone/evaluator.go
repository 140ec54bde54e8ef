package zone

import (
	"image"
	"sort"
	"sync"
	"time"

	"zonemonitor/internal/config"
	"zonemonitor/internal/detect"
	"zonemonitor/internal/logger"
)

// Transition records one occupancy flip, emitted only when a zone's
// boolean state actually changes.
type Transition struct {
	ZoneID   string
	CameraID string
	Occupied bool
	At       time.Time
}

// Evaluator owns the zone set and its occupancy state. Configuration
// and occupancy are guarded by a single mutex; evaluation, reconcile,
// and snapshot reads may run from different goroutines.
type Evaluator struct {
	mu    sync.Mutex
	zones map[string]*Zone
	log   *logger.Logger
	now   func() time.Time
}

// NewEvaluator creates an Evaluator with no zones.
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{
		zones: make(map[string]*Zone),
		log:   log,
		now:   time.Now,
	}
}

// Reconcile replaces the zone set wholesale. Invalid entries (fewer
// than three vertices, or referencing an unknown camera) are rejected
// individually; valid ones still apply. Occupancy state carries over
// for zone ids that survive, so reconciling twice with the same
// configuration resets nothing.
func (e *Evaluator) Reconcile(configs []config.ZoneConfig, cameraIDs map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*Zone, len(configs))
	for _, cfg := range configs {
		if len(cfg.Points) < 3 {
			e.log.Warning("Rejecting zone %s: polygon needs at least 3 points", cfg.ID)
			continue
		}
		if _, ok := cameraIDs[cfg.CameraID]; !ok {
			e.log.Warning("Rejecting zone %s: unknown camera %s", cfg.ID, cfg.CameraID)
			continue
		}

		points := make([]image.Point, len(cfg.Points))
		for i, p := range cfg.Points {
			points[i] = image.Pt(p[0], p[1])
		}

		z := &Zone{
			ID:         cfg.ID,
			CameraID:   cfg.CameraID,
			Name:       cfg.Name,
			Points:     points,
			Confidence: cfg.Confidence,
			Enabled:    cfg.Enabled,
		}

		if old, ok := e.zones[cfg.ID]; ok {
			z.occupied = old.occupied
			z.lastChange = old.lastChange
		}
		// A disabled zone is always reported unoccupied.
		if !z.Enabled {
			z.occupied = false
		}

		next[cfg.ID] = z
	}

	e.zones = next
	e.log.Info("Zone configuration updated: %d zones", len(next))
}

// EvaluateCamera updates occupancy for every enabled zone belonging to
// cameraID against the given detections and returns the transitions.
func (e *Evaluator) EvaluateCamera(cameraID string, detections []detect.Detection) []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var transitions []Transition
	for _, z := range e.zones {
		if z.CameraID != cameraID || !z.Enabled {
			continue
		}

		occupied := false
		for _, d := range detections {
			if d.Confidence < z.Confidence {
				continue
			}
			if polygonContains(z.Points, d.FootPoint()) {
				occupied = true
				break
			}
		}

		if occupied != z.occupied {
			z.occupied = occupied
			z.lastChange = e.now()
			transitions = append(transitions, Transition{
				ZoneID:   z.ID,
				CameraID: z.CameraID,
				Occupied: occupied,
				At:       z.lastChange,
			})
		}
	}

	return transitions
}

// AnyOccupied reports whether any enabled zone is currently occupied.
func (e *Evaluator) AnyOccupied() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, z := range e.zones {
		if z.Enabled && z.occupied {
			return true
		}
	}
	return false
}

// OccupiedCount returns the number of enabled zones currently occupied.
func (e *Evaluator) OccupiedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, z := range e.zones {
		if z.Enabled && z.occupied {
			count++
		}
	}
	return count
}

// Snapshot returns read-only zone statuses sorted by id.
func (e *Evaluator) Snapshot() []Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Status, 0, len(e.zones))
	for _, z := range e.zones {
		out = append(out, Status{
			ID:         z.ID,
			CameraID:   z.CameraID,
			Name:       z.Name,
			Enabled:    z.Enabled,
			Confidence: z.Confidence,
			Occupied:   z.occupied,
			LastChange: z.lastChange,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
