package detect

import "zonemonitor/internal/camera"

// StandIn is the deterministic fallback detector used when no inference
// backend is available. By default it reports no detections; with
// Synthetic set it emits one fixed person box, useful for exercising the
// pipeline end to end without hardware.
type StandIn struct {
	Synthetic bool
}

// Detect never fails.
func (s *StandIn) Detect(frame camera.Frame) ([]RawDetection, error) {
	if !s.Synthetic {
		return nil, nil
	}

	return []RawDetection{{
		X1:         0.4,
		Y1:         0.3,
		X2:         0.6,
		Y2:         0.9,
		Confidence: 0.99,
		ClassID:    ClassPerson,
	}}, nil
}
