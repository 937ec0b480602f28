// Package config holds agecam's runtime configuration.
// Values come from DefaultConfig, then an optional YAML file, then
// environment variables, then command line flags (applied in cmd/agecam).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Detector backends.
const (
	BackendSSD   = "ssd"
	BackendYuNet = "yunet"
)

// Sink kinds.
const (
	SinkWeb    = "web"
	SinkWindow = "window"
)

// Engines and accelerators understood by pkg/cv.
var (
	Engines      = []string{"DNN", "DNN_OPENVINO", "DNN_CUDA"}
	Accelerators = []string{"DEFAULT", "CPU", "GPU", "GPU_FP16", "MYRIAD", "NVIDIA", "NVIDIA_FP16"}
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Camera     Camera  `yaml:"camera"`
	Detector   Model   `yaml:"detector"`
	Classifier Model   `yaml:"classifier"`
	Display    Display `yaml:"display"`
	Sink       Sink    `yaml:"sink"`

	// Warmup is the pause between opening the camera and the start of the
	// throughput measurement.
	Warmup time.Duration `yaml:"warmup"`

	// DatabaseURL enables the run ledger when non-empty.
	DatabaseURL string `yaml:"database_url"`
}

// Camera selects and sizes the capture device.
type Camera struct {
	// Device is a camera index ("0") or a video file path / stream URL.
	Device    string `yaml:"device"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Framerate int    `yaml:"framerate"`
}

// Model describes one network to load.
type Model struct {
	Backend     string  `yaml:"backend"` // detector only: ssd or yunet
	ID          string  `yaml:"id"`
	Weights     string  `yaml:"weights"`
	Config      string  `yaml:"config"` // prototxt; unused for ONNX
	Engine      string  `yaml:"engine"`
	Accelerator string  `yaml:"accelerator"`
	Confidence  float64 `yaml:"confidence"` // detection threshold or minimum class score
}

// Display controls the overlay and the text shown next to the stream.
type Display struct {
	ShowLabels      bool `yaml:"show_labels"`
	ShowConfidences bool `yaml:"show_confidences"`
}

// Sink selects where annotated frames go.
type Sink struct {
	Kind        string `yaml:"kind"`
	Addr        string `yaml:"addr"` // web sink listen address
	JPEGQuality int    `yaml:"jpeg_quality"`
	WindowTitle string `yaml:"window_title"`
}

// DefaultConfig returns the out-of-the-box setup: webcam 0, res10 SSD face
// detector, AgeNet classifier on the default OpenCV engine, web viewer.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Camera: Camera{
			Device:    "0",
			Width:     640,
			Height:    480,
			Framerate: 30,
		},
		Detector: Model{
			Backend:     BackendSSD,
			ID:          "res10_300x300_ssd_iter_140000",
			Weights:     "models/res10_300x300_ssd_iter_140000.caffemodel",
			Config:      "models/deploy.prototxt",
			Engine:      "DNN",
			Accelerator: "DEFAULT",
			Confidence:  0.5,
		},
		Classifier: Model{
			ID:          "agenet",
			Weights:     "models/age_net.caffemodel",
			Config:      "models/age_deploy.prototxt",
			Engine:      "DNN",
			Accelerator: "DEFAULT",
			Confidence:  0.3,
		},
		Display: Display{
			ShowLabels:      true,
			ShowConfidences: false,
		},
		Sink: Sink{
			Kind:        SinkWeb,
			Addr:        ":5000",
			JPEGQuality: 80,
			WindowTitle: "agecam",
		},
		Warmup: 2 * time.Second,
	}
}

// YuNetDetector returns detector settings for the YuNet ONNX backend.
func YuNetDetector() Model {
	return Model{
		Backend:     BackendYuNet,
		ID:          "face_detection_yunet",
		Weights:     "models/face_detection_yunet.onnx",
		Engine:      "DNN",
		Accelerator: "DEFAULT",
		Confidence:  0.5,
	}
}

// Load reads a YAML file on top of DefaultConfig. Keys missing from the
// file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv applies environment overrides.
func (c *Config) LoadEnv() {
	if dev := os.Getenv("AGECAM_DEVICE"); dev != "" {
		c.Camera.Device = dev
	}
	if addr := os.Getenv("AGECAM_WEB_ADDR"); addr != "" {
		c.Sink.Addr = addr
	}
	if url := os.Getenv("AGECAM_DATABASE_URL"); url != "" {
		c.DatabaseURL = url
	}
	if lvl := os.Getenv("AGECAM_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
