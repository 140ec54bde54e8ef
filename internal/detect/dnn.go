package detect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"zonemonitor/internal/camera"
	"zonemonitor/internal/logger"
)

// DNNDetector runs a MobileNet-SSD person detector through the OpenCV
// DNN module. When the model cannot be loaded it stays constructed but
// reports ErrUnavailable, so the adapter can fall back.
type DNNDetector struct {
	mu     sync.Mutex
	net    gocv.Net
	loaded bool
	log    *logger.Logger
}

// NewDNNDetector loads the network from the given model and config
// files. A missing or broken model is not fatal.
func NewDNNDetector(modelPath, configPath string, log *logger.Logger) *DNNDetector {
	d := &DNNDetector{log: log}

	if err := d.initializeNet(modelPath, configPath); err != nil {
		log.Warning("Could not initialize detection network: %v", err)
		return d
	}

	log.Info("Detection network initialized from %s", modelPath)
	return d
}

func (d *DNNDetector) initializeNet(modelPath, configPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("failed to set network backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("failed to set network target: %w", err)
	}

	d.net = net
	d.loaded = true
	return nil
}

// Detect runs inference on one frame and returns all raw detections
// above a minimal floor, in normalized coordinates. The adapter applies
// class and confidence filtering.
func (d *DNNDetector) Detect(frame camera.Frame) ([]RawDetection, error) {
	if !d.loaded {
		return nil, ErrUnavailable
	}
	if frame.Mat.Ptr() == nil || frame.Mat.Empty() {
		return nil, fmt.Errorf("empty frame from camera %s", frame.CameraID)
	}

	// gocv.Net is not safe for concurrent inference.
	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(frame.Mat, 1.0/127.5, image.Pt(300, 300),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// SSD output rows are [batch, class, confidence, x1, y1, x2, y2].
	rows := output.Total() / 7

	var detections []RawDetection
	for i := 0; i < rows; i++ {
		confidence := float64(output.GetFloatAt(0, i*7+2))
		if confidence < 0.1 {
			continue
		}

		detections = append(detections, RawDetection{
			ClassID:    int(output.GetFloatAt(0, i*7+1)),
			Confidence: confidence,
			X1:         float64(output.GetFloatAt(0, i*7+3)),
			Y1:         float64(output.GetFloatAt(0, i*7+4)),
			X2:         float64(output.GetFloatAt(0, i*7+5)),
			Y2:         float64(output.GetFloatAt(0, i*7+6)),
		})
	}

	return detections, nil
}

// Close releases the network.
func (d *DNNDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		d.net.Close()
		d.loaded = false
	}
}
