package relay

import (
	"sync"
	"time"

	"zonemonitor/internal/config"
	"zonemonitor/internal/logger"
	"zonemonitor/internal/metrics"
)

// State is a snapshot of the controller, read by status publishers.
type State struct {
	Active           bool          `json:"active"`
	Pin              int           `json:"pin"`
	ActiveHigh       bool          `json:"active_high"`
	Dwell            time.Duration `json:"-"`
	DwellSeconds     float64       `json:"dwell_seconds"`
	LastDeactivation time.Time     `json:"last_deactivation"`
}

// Controller converts the aggregated "any zone occupied" signal into a
// debounced relay output. Activation is immediate; deactivation is only
// permitted once the dwell has elapsed since the previous deactivation,
// which suppresses chatter from noisy per-frame detections.
type Controller struct {
	mu               sync.Mutex
	out              Output
	pin              int
	activeHigh       bool
	dwell            time.Duration
	active           bool
	lastDeactivation time.Time

	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewController creates a controller and parks the pin at its inactive
// level.
func NewController(out Output, cfg config.GPIOConfig, log *logger.Logger, m *metrics.Metrics) *Controller {
	c := &Controller{
		out:        out,
		pin:        cfg.OutputPin,
		activeHigh: cfg.ActiveHigh,
		dwell:      cfg.Dwell(),
		log:        log,
		metrics:    m,
		now:        time.Now,
	}

	// Parking the pin counts as a deactivation for dwell purposes.
	c.write(false)
	c.lastDeactivation = c.now()
	log.Info("Relay initialized: pin %d, active high %v, dwell %s", c.pin, c.activeHigh, c.dwell)
	return c
}

// levelFor maps logical active/inactive to the physical pin level.
func (c *Controller) levelFor(active bool) bool {
	if c.activeHigh {
		return active
	}
	return !active
}

// write drives the pin. Failures are logged; the last known-good state
// is kept.
func (c *Controller) write(active bool) {
	if err := c.out.Set(c.pin, c.levelFor(active)); err != nil {
		c.log.Error("Relay output write failed on pin %d: %v", c.pin, err)
	}
}

// Notify applies the aggregated occupancy signal for this cycle.
func (c *Controller) Notify(occupied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if occupied {
		if !c.active {
			c.write(true)
			c.active = true
			c.metrics.RelayActive.Store(1)
			c.metrics.RelayActivations.Add(1)
			c.log.Info("Relay activated (pin %d)", c.pin)
		}
		return
	}

	if !c.active {
		return
	}
	if c.now().Sub(c.lastDeactivation) < c.dwell {
		// Inside the dwell window; drop the request, a later cycle
		// re-evaluates once the window passes.
		return
	}

	c.write(false)
	c.active = false
	c.lastDeactivation = c.now()
	c.metrics.RelayActive.Store(0)
	c.log.Info("Relay deactivated (pin %d)", c.pin)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Active:           c.active,
		Pin:              c.pin,
		ActiveHigh:       c.activeHigh,
		Dwell:            c.dwell,
		DwellSeconds:     c.dwell.Seconds(),
		LastDeactivation: c.lastDeactivation,
	}
}

// Reconfigure quiesces the current pin to its inactive level before
// applying a new pin, polarity, or dwell, so an orphaned pin is never
// left asserted.
func (c *Controller) Reconfigure(cfg config.GPIOConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.write(false)
	c.active = false
	c.metrics.RelayActive.Store(0)

	c.pin = cfg.OutputPin
	c.activeHigh = cfg.ActiveHigh
	c.dwell = cfg.Dwell()

	c.write(false)
	c.log.Info("Relay reconfigured: pin %d, active high %v, dwell %s", c.pin, c.activeHigh, c.dwell)
}

// Quiesce de-asserts the output, for shutdown.
func (c *Controller) Quiesce() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.write(false)
	c.active = false
	c.metrics.RelayActive.Store(0)
}
