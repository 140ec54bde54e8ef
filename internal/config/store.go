package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CameraConfig describes a single camera stream.
type CameraConfig struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StreamURL string  `json:"rtsp_url"`
	FPS       float64 `json:"fps"`
}

// ZoneConfig describes a monitored polygon within one camera's frame.
// Points are vertices in frame pixel coordinates; at least three are
// required for the zone to be accepted.
type ZoneConfig struct {
	ID         string   `json:"id"`
	CameraID   string   `json:"camera_id"`
	Name       string   `json:"name"`
	Points     [][2]int `json:"points"`
	Confidence float64  `json:"confidence_threshold"`
	Enabled    bool     `json:"enabled"`
}

// GPIOConfig describes the relay output.
type GPIOConfig struct {
	OutputPin       int     `json:"output_pin"`
	ActiveHigh      bool    `json:"active_high"`
	ActivationDelay float64 `json:"activation_delay"`
}

// Dwell returns the minimum time between relay deactivations.
func (g GPIOConfig) Dwell() time.Duration {
	return time.Duration(g.ActivationDelay * float64(time.Second))
}

// DetectorConfig describes the person-detection backend.
type DetectorConfig struct {
	ModelPath  string  `json:"model_path"`
	ConfigPath string  `json:"config_path"`
	Confidence float64 `json:"confidence_threshold"`
	Synthetic  bool    `json:"synthetic"`
}

// Document is the persisted monitor configuration.
type Document struct {
	Cameras  []CameraConfig `json:"cameras"`
	Zones    []ZoneConfig   `json:"zones"`
	GPIO     GPIOConfig     `json:"gpio"`
	Detector DetectorConfig `json:"detector"`
}

// Store owns the JSON configuration document on disk. All reads hand out
// copies; all writes are persisted immediately.
type Store struct {
	path string
	mu   sync.Mutex
	doc  Document
}

// NewStore loads the document at path, creating it with defaults if missing.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.doc = defaultDocument()
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return s, nil
}

func defaultDocument() Document {
	return Document{
		Cameras: []CameraConfig{},
		Zones:   []ZoneConfig{},
		GPIO: GPIOConfig{
			OutputPin:       17,
			ActiveHigh:      true,
			ActivationDelay: 0.5,
		},
		Detector: DetectorConfig{
			ModelPath:  "models/frozen_inference_graph.pb",
			ConfigPath: "models/ssd_mobilenet_v1_coco_2017_11_17.pbtxt",
			Confidence: 0.5,
		},
	}
}

// Document returns a copy of the current document.
func (s *Store) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDocument(s.doc)
}

// Replace swaps the whole document and persists it.
func (s *Store) Replace(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = copyDocument(doc)
	return s.save()
}

// SetCameras replaces the camera section and persists.
func (s *Store) SetCameras(cameras []CameraConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Cameras = append([]CameraConfig(nil), cameras...)
	return s.save()
}

// SetZones replaces the zone section and persists.
func (s *Store) SetZones(zones []ZoneConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Zones = copyZones(zones)
	return s.save()
}

// SetGPIO replaces the gpio section and persists.
func (s *Store) SetGPIO(gpio GPIOConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.GPIO = gpio
	return s.save()
}

func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", s.path, err)
	}
	return nil
}

func copyDocument(doc Document) Document {
	out := doc
	out.Cameras = append([]CameraConfig(nil), doc.Cameras...)
	out.Zones = copyZones(doc.Zones)
	return out
}

func copyZones(zones []ZoneConfig) []ZoneConfig {
	out := make([]ZoneConfig, len(zones))
	for i, z := range zones {
		out[i] = z
		out[i].Points = append([][2]int(nil), z.Points...)
	}
	return out
}
