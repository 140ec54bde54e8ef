package relay

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"zonemonitor/internal/logger"
)

// Output is the pin-level capability boundary. Implementations are
// assumed synchronous and fast.
type Output interface {
	Set(pin int, level bool) error
}

// SimOutput logs writes instead of touching hardware, for hosts
// without GPIO.
type SimOutput struct {
	log *logger.Logger
}

// NewSimOutput creates a simulated output.
func NewSimOutput(log *logger.Logger) *SimOutput {
	log.Info("Running in GPIO simulation mode")
	return &SimOutput{log: log}
}

// Set records the write.
func (o *SimOutput) Set(pin int, level bool) error {
	o.log.Info("GPIO (sim): pin %d -> %v", pin, level)
	return nil
}

// SysfsOutput drives pins through the Linux sysfs GPIO interface.
type SysfsOutput struct {
	base string
}

// SysfsAvailable reports whether the sysfs GPIO tree exists on this host.
func SysfsAvailable() bool {
	_, err := os.Stat("/sys/class/gpio")
	return err == nil
}

// NewSysfsOutput creates an output rooted at /sys/class/gpio.
func NewSysfsOutput() *SysfsOutput {
	return &SysfsOutput{base: "/sys/class/gpio"}
}

// Set exports the pin on first use, sets it to output, and writes the level.
func (o *SysfsOutput) Set(pin int, level bool) error {
	pinDir := filepath.Join(o.base, fmt.Sprintf("gpio%d", pin))

	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(o.base, "export"), []byte(strconv.Itoa(pin)), 0644); err != nil {
			return fmt.Errorf("failed to export gpio %d: %w", pin, err)
		}
		if err := os.WriteFile(filepath.Join(pinDir, "direction"), []byte("out"), 0644); err != nil {
			return fmt.Errorf("failed to set gpio %d direction: %w", pin, err)
		}
	}

	value := "0"
	if level {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(pinDir, "value"), []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write gpio %d value: %w", pin, err)
	}
	return nil
}
