package camera

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"zonemonitor/internal/config"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
)

// State is the connection state of a camera's capture loop.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// DefaultBackoff is the floor between reconnection attempts.
	DefaultBackoff = 5 * time.Second

	defaultFPS   = 10.0
	queueSize    = 2
	stopTimeout  = time.Second
	captureYield = time.Millisecond
)

// Status is a read-only snapshot of one camera.
type Status struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StreamURL     string    `json:"rtsp_url"`
	FPS           float64   `json:"fps"`
	State         string    `json:"state"`
	Connected     bool      `json:"connected"`
	FrameCount    uint64    `json:"frame_count"`
	LastFrameTime time.Time `json:"last_frame_time"`
	Failures      int       `json:"connection_failures"`
}

// Camera owns a single stream connection and its most-recent-frame
// cache. A dedicated goroutine runs the connect/read loop for the
// camera's entire lifetime; all cross-goroutine access goes through
// the mutex-guarded latest cell and the bounded overwrite queue.
type Camera struct {
	id        string
	streamURL string
	fps       float64

	open    OpenFunc
	backoff time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	name          string
	state         State
	src           Source
	latest        *Frame
	lastFrameTime time.Time
	frameCount    uint64
	failures      int

	queueMu sync.Mutex
	queue   []Frame

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newCamera(cfg config.CameraConfig, open OpenFunc, backoff time.Duration, log *logger.Logger, m *metrics.Metrics) *Camera {
	fps := cfg.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	return &Camera{
		id:        cfg.ID,
		name:      cfg.Name,
		streamURL: cfg.StreamURL,
		fps:       fps,
		open:      open,
		backoff:   backoff,
		log:       log,
		metrics:   m,
		state:     StateDisconnected,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Camera) start() {
	go c.captureLoop()
}

// ID returns the camera's configured identifier.
func (c *Camera) ID() string { return c.id }

// StreamURL returns the configured stream address.
func (c *Camera) StreamURL() string { return c.streamURL }

// FPS returns the configured target sample rate.
func (c *Camera) FPS() float64 { return c.fps }

func (c *Camera) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// captureLoop connects, reads frames at the target rate, and reconnects
// on failure. It exits only when Stop is called.
func (c *Camera) captureLoop() {
	defer close(c.done)
	defer c.releaseSource()

	interval := time.Duration(float64(time.Second) / c.fps)
	var lastCapture time.Time

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-c.stop:
			c.setState(StateStopped)
			return
		default:
		}

		if c.currentState() != StateConnected {
			if !c.connect() {
				select {
				case <-c.stop:
					c.setState(StateStopped)
					return
				case <-time.After(c.backoff):
				}
			}
			continue
		}

		// Stay under the configured sample rate with a short yield.
		if time.Since(lastCapture) < interval {
			time.Sleep(captureYield)
			continue
		}

		c.mu.Lock()
		src := c.src
		c.mu.Unlock()

		if src == nil || !src.Read(&mat) || mat.Empty() {
			c.log.Warning("Camera %s: failed to read frame, reconnecting", c.id)
			c.markDisconnected()
			continue
		}

		lastCapture = time.Now()
		c.publish(&mat, lastCapture)
	}
}

func (c *Camera) connect() bool {
	c.setState(StateConnecting)
	c.metrics.Reconnects.Add(1)

	src, err := c.open(c.streamURL)
	if err != nil || !src.IsOpened() {
		if err != nil {
			c.log.Error("Camera %s: connect failed: %v", c.id, err)
		} else {
			src.Close()
			c.log.Error("Camera %s: stream did not open", c.id)
		}
		c.metrics.CaptureFailures.Add(1)

		c.mu.Lock()
		c.failures++
		c.state = StateDisconnected
		c.mu.Unlock()
		return false
	}

	c.mu.Lock()
	c.src = src
	c.state = StateConnected
	c.failures = 0
	c.mu.Unlock()

	c.log.Info("Camera %s: connected to %s", c.id, c.streamURL)
	return true
}

func (c *Camera) publish(mat *gocv.Mat, at time.Time) {
	frame := Frame{
		Mat:       mat.Clone(),
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: at,
		CameraID:  c.id,
	}

	c.mu.Lock()
	if c.latest != nil {
		c.latest.Close()
	}
	c.latest = &frame
	c.lastFrameTime = at
	c.frameCount++
	c.mu.Unlock()

	c.metrics.FramesCaptured.Add(1)

	queued := Frame{
		Mat:       mat.Clone(),
		Width:     frame.Width,
		Height:    frame.Height,
		Timestamp: at,
		CameraID:  c.id,
	}
	c.pushQueue(queued)
}

// pushQueue inserts into the bounded overwrite queue, evicting the
// oldest entry when full so slow consumers never see stale frames.
func (c *Camera) pushQueue(f Frame) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if len(c.queue) >= queueSize {
		evicted := c.queue[0]
		c.queue = c.queue[1:]
		evicted.Close()
	}
	c.queue = append(c.queue, f)
}

// Latest returns a copy of the most recent frame. The caller owns the
// returned frame and must Close it. Non-blocking; the second return is
// false until the first successful capture.
func (c *Camera) Latest() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest == nil {
		return Frame{}, false
	}

	f := *c.latest
	f.Mat = c.latest.Mat.Clone()
	return f, true
}

// Next pops the oldest queued frame, for consumers that want a queued
// handoff instead of a latest-wins read. The caller must Close it.
func (c *Camera) Next() (Frame, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if len(c.queue) == 0 {
		return Frame{}, false
	}
	f := c.queue[0]
	c.queue = c.queue[1:]
	return f, true
}

func (c *Camera) markDisconnected() {
	c.metrics.CaptureFailures.Add(1)

	c.mu.Lock()
	c.state = StateDisconnected
	c.failures++
	if c.src != nil {
		c.src.Close()
		c.src = nil
	}
	c.mu.Unlock()
}

func (c *Camera) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Camera) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the capture loop currently holds an open stream.
func (c *Camera) Connected() bool {
	return c.currentState() == StateConnected
}

// Status returns a snapshot of the camera's state and counters.
func (c *Camera) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		ID:            c.id,
		Name:          c.name,
		StreamURL:     c.streamURL,
		FPS:           c.fps,
		State:         c.state.String(),
		Connected:     c.state == StateConnected,
		FrameCount:    c.frameCount,
		LastFrameTime: c.lastFrameTime,
		Failures:      c.failures,
	}
}

// Stop signals the capture loop to exit, joins it with a bounded
// timeout, and releases the stream handle unconditionally.
func (c *Camera) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	select {
	case <-c.done:
	case <-time.After(stopTimeout):
		c.log.Warning("Camera %s: capture loop did not exit in time", c.id)
	}

	c.releaseSource()
	c.drainFrames()
	c.setState(StateStopped)
}

// releaseSource is idempotent; both the loop exit path and Stop call it.
func (c *Camera) releaseSource() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.src != nil {
		c.src.Close()
		c.src = nil
	}
}

func (c *Camera) drainFrames() {
	c.mu.Lock()
	if c.latest != nil {
		c.latest.Close()
		c.latest = nil
	}
	c.mu.Unlock()

	c.queueMu.Lock()
	for _, f := range c.queue {
		f.Close()
	}
	c.queue = nil
	c.queueMu.Unlock()
}
