package zone

import (
	"image"
	"time"
)

// Zone is one operator-defined polygon within a camera's frame.
// Occupancy fields are mutated only by the Evaluator.
type Zone struct {
	ID         string
	CameraID   string
	Name       string
	Points     []image.Point
	Confidence float64
	Enabled    bool

	occupied   bool
	lastChange time.Time
}

// Status is a read-only snapshot of one zone.
type Status struct {
	ID         string    `json:"id"`
	CameraID   string    `json:"camera_id"`
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	Confidence float64   `json:"confidence_threshold"`
	Occupied   bool      `json:"occupied"`
	LastChange time.Time `json:"last_change"`
}

// polygonContains reports whether p lies inside the polygon or exactly
// on its boundary. Boundary points count as inside, biasing toward the
// occupied interpretation.
func polygonContains(pts []image.Point, p image.Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}

	for i := 0; i < n; i++ {
		if onSegment(pts[i], pts[(i+1)%n], p) {
			return true
		}
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := pts[i], pts[j]
		if (pi.Y > p.Y) == (pj.Y > p.Y) {
			continue
		}

		// x coordinate where the edge crosses the horizontal through p
		crossX := float64(pi.X) + float64(pj.X-pi.X)*float64(p.Y-pi.Y)/float64(pj.Y-pi.Y)
		if float64(p.X) < crossX {
			inside = !inside
		}
	}
	return inside
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(a, b, p image.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}
