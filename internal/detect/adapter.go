package detect

import (
	"errors"
	"image"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
)

// Adapter invokes the configured detection backend, filters to person
// detections above the global confidence threshold, and denormalizes
// boxes into the frame's pixel space. Backend faults are absorbed by
// falling back to the stand-in, so detection never stalls the loop.
type Adapter struct {
	backend   PersonDetector
	standIn   *StandIn
	threshold float64
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewAdapter wires a backend with its stand-in fallback.
func NewAdapter(backend PersonDetector, standIn *StandIn, threshold float64, log *logger.Logger, m *metrics.Metrics) *Adapter {
	if standIn == nil {
		standIn = &StandIn{}
	}

	return &Adapter{
		backend:   backend,
		standIn:   standIn,
		threshold: threshold,
		log:       log,
		metrics:   m,
	}
}

// DetectPersons returns the person detections in frame pixel
// coordinates for one frame.
func (a *Adapter) DetectPersons(frame camera.Frame) []Detection {
	raw, err := a.backend.Detect(frame)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			a.log.Warning("Detection failed for camera %s: %v", frame.CameraID, err)
		}
		a.metrics.DetectorFallbacks.Add(1)
		raw, _ = a.standIn.Detect(frame)
	}

	var out []Detection
	for _, r := range raw {
		if r.ClassID != ClassPerson {
			continue
		}
		if r.Confidence < a.threshold {
			continue
		}

		box := image.Rect(
			int(r.X1*float64(frame.Width)),
			int(r.Y1*float64(frame.Height)),
			int(r.X2*float64(frame.Width)),
			int(r.Y2*float64(frame.Height)),
		)

		out = append(out, Detection{Box: box, Confidence: r.Confidence})
	}

	a.metrics.DetectionsTotal.Add(uint64(len(out)))
	return out
}
