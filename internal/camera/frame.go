package camera

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a single decoded video frame. Each Frame owns its pixel
// buffer; consumers must Close it within the cycle that read it and
// clone the Mat if they need longer retention.
type Frame struct {
	Mat       gocv.Mat
	Width     int
	Height    int
	Timestamp time.Time
	CameraID  string
}

// Close releases the underlying pixel buffer. Safe on a zero Frame.
func (f *Frame) Close() {
	if f.Mat.Ptr() != nil {
		f.Mat.Close()
	}
}
