package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Source is one open video stream. *gocv.VideoCapture satisfies it.
type Source interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// OpenFunc opens a stream by URL. The registry uses OpenRTSP in
// production; tests substitute scripted sources.
type OpenFunc func(url string) (Source, error)

// OpenRTSP opens an RTSP (or file/device) stream with a minimal decoder
// buffer to keep latency down.
func OpenRTSP(url string) (Source, error) {
	cap, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream %s: %w", url, err)
	}

	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("stream %s did not open", url)
	}

	// Keep the decoder buffer short so reads return recent frames.
	cap.Set(gocv.VideoCaptureBufferSize, 2)

	return cap, nil
}
