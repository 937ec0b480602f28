package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("DefaultConfig should be valid, got %v", errs)
	}
	if cfg.Detector.Confidence != 0.5 {
		t.Errorf("detector confidence: got %v, want 0.5", cfg.Detector.Confidence)
	}
	if cfg.Warmup != 2*time.Second {
		t.Errorf("warmup: got %v, want 2s", cfg.Warmup)
	}
	if cfg.Camera.Device != "0" {
		t.Errorf("device: got %q, want \"0\"", cfg.Camera.Device)
	}
	if !cfg.Display.ShowLabels || cfg.Display.ShowConfidences {
		t.Errorf("display defaults: got %+v", cfg.Display)
	}
}

func TestYuNetDetectorIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector = YuNetDetector()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("YuNet config should be valid, got %v", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty device", func(c *Config) { c.Camera.Device = " " }, "camera.device"},
		{"negative width", func(c *Config) { c.Camera.Width = -1 }, "camera.width"},
		{"bad backend", func(c *Config) { c.Detector.Backend = "haar" }, "detector.backend"},
		{"zero threshold", func(c *Config) { c.Detector.Confidence = 0 }, "detector.confidence"},
		{"threshold above one", func(c *Config) { c.Detector.Confidence = 1.5 }, "detector.confidence"},
		{"classifier confidence", func(c *Config) { c.Classifier.Confidence = -0.1 }, "classifier.confidence"},
		{"missing weights", func(c *Config) { c.Classifier.Weights = "" }, "classifier.weights"},
		{"unknown engine", func(c *Config) { c.Detector.Engine = "TENSORRT" }, "detector.engine"},
		{"unknown accelerator", func(c *Config) { c.Classifier.Accelerator = "TPU" }, "classifier.accelerator"},
		{"bad sink", func(c *Config) { c.Sink.Kind = "rtsp" }, "sink.kind"},
		{"jpeg quality", func(c *Config) { c.Sink.JPEGQuality = 0 }, "sink.jpeg_quality"},
		{"negative warmup", func(c *Config) { c.Warmup = -time.Second }, "warmup"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatalf("expected a validation error mentioning %q", tc.wantErr)
			}
			if !strings.Contains(strings.Join(errs, "\n"), tc.wantErr) {
				t.Errorf("errors %v do not mention %q", errs, tc.wantErr)
			}
		})
	}
}

func TestValidate_LowercaseEngineAccepted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.Engine = "dnn_cuda"
	cfg.Detector.Accelerator = "nvidia"

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("lowercase names should validate, got %v", errs)
	}
}

func TestValidate_WindowSinkIgnoresWebFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink = Sink{Kind: SinkWindow}

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("window sink should not need addr or quality, got %v", errs)
	}
}

func TestCheck(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Check(); err != nil {
		t.Fatalf("Check on defaults: %v", err)
	}

	cfg.Sink.Kind = "nope"
	err := cfg.Check()
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agecam.yaml")
	yaml := `
camera:
  device: /videos/lobby.mp4
detector:
  confidence: 0.7
display:
  show_confidences: true
warmup: 500ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Camera.Device != "/videos/lobby.mp4" {
		t.Errorf("device: got %q", cfg.Camera.Device)
	}
	if cfg.Detector.Confidence != 0.7 {
		t.Errorf("detector confidence: got %v", cfg.Detector.Confidence)
	}
	if !cfg.Display.ShowConfidences {
		t.Error("show_confidences should be true")
	}
	if cfg.Warmup != 500*time.Millisecond {
		t.Errorf("warmup: got %v", cfg.Warmup)
	}
	// Untouched keys keep their defaults.
	if cfg.Camera.Width != 640 || cfg.Detector.ID != "res10_300x300_ssd_iter_140000" {
		t.Errorf("defaults lost: width=%d id=%q", cfg.Camera.Width, cfg.Detector.ID)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("camera: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("AGECAM_DEVICE", "2")
	t.Setenv("AGECAM_WEB_ADDR", "127.0.0.1:8080")
	t.Setenv("AGECAM_DATABASE_URL", "postgres://localhost/agecam")
	t.Setenv("AGECAM_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	if cfg.Camera.Device != "2" || cfg.Sink.Addr != "127.0.0.1:8080" ||
		cfg.DatabaseURL != "postgres://localhost/agecam" || cfg.LogLevel != "debug" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestMarshalRoundTripKeepsDuration(t *testing.T) {
	cfg := DefaultConfig()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "warmup: 2s") {
		t.Errorf("expected warmup rendered as 2s, got:\n%s", data)
	}
}
