package detect

import (
	"errors"
	"image"

	"zonemonitor/internal/camera"
)

// ErrUnavailable is returned by a PersonDetector whose backing
// inference hardware or model is not usable. Callers fall back to the
// stand-in instead of failing the cycle.
var ErrUnavailable = errors.New("detector backend unavailable")

// ClassPerson is the MobileNet-SSD COCO class id for "person".
const ClassPerson = 1

// RawDetection is one detection as emitted by a backend, with box
// coordinates normalized to [0,1] of the frame.
type RawDetection struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
	ClassID        int
}

// PersonDetector is the detection capability boundary. Implementations
// must not block indefinitely.
type PersonDetector interface {
	Detect(frame camera.Frame) ([]RawDetection, error)
}

// Detection is a person detection in frame pixel coordinates, the same
// space zone polygons are defined in.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Confidence float64         `json:"confidence"`
}

// FootPoint returns the bottom-center of the bounding box, which
// approximates where a standing person touches the ground.
func (d Detection) FootPoint() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, d.Box.Max.Y)
}
