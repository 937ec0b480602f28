package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-agecam/pkg/camera"
	"github.com/teslashibe/go-agecam/pkg/config"
)

// runFlags mirror the config fields a user is likely to change per run.
// They only override the file and environment when set explicitly.
type runFlags struct {
	device      string
	preset      string
	width       int
	height      int
	backend     string
	detConf     float64
	clsConf     float64
	engine      string
	accelerator string
	sink        string
	addr        string
	showConf    bool
	noLabels    bool
	warmup      time.Duration
	dbURL       string
}

var rf runFlags

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&rf.device, "device", "d", "", "camera index or video file (default 0)")
	f.StringVar(&rf.preset, "preset", "", "capture size preset: "+strings.Join(camera.PresetNames(), ", "))
	f.IntVar(&rf.width, "width", 0, "capture width")
	f.IntVar(&rf.height, "height", 0, "capture height")
	f.StringVar(&rf.backend, "backend", "", "face detector backend: ssd or yunet")
	f.Float64Var(&rf.detConf, "confidence", 0, "face detection threshold (default 0.5)")
	f.Float64Var(&rf.clsConf, "age-confidence", 0, "minimum age bucket score (default 0.3)")
	f.StringVar(&rf.engine, "engine", "", "inference engine: DNN, DNN_OPENVINO, DNN_CUDA")
	f.StringVar(&rf.accelerator, "accelerator", "", "accelerator: DEFAULT, CPU, GPU, GPU_FP16, MYRIAD, NVIDIA, NVIDIA_FP16")
	f.StringVar(&rf.sink, "sink", "", "output: web or window")
	f.StringVar(&rf.addr, "addr", "", "web viewer listen address (default :5000)")
	f.BoolVar(&rf.showConf, "show-confidences", false, "show confidences in boxes and text")
	f.BoolVar(&rf.noLabels, "no-labels", false, "draw boxes without labels")
	f.DurationVar(&rf.warmup, "warmup", 0, "camera warm-up before measuring (default 2s)")
	f.StringVar(&rf.dbURL, "db", "", "PostgreSQL URL for the run ledger")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	changed := func(name string) bool {
		fl := f.Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("device") {
		cfg.Camera.Device = rf.device
	}
	if changed("preset") {
		if err := camera.ApplyPreset(&cfg.Camera, rf.preset); err != nil {
			return err
		}
	}
	if changed("width") {
		cfg.Camera.Width = rf.width
	}
	if changed("height") {
		cfg.Camera.Height = rf.height
	}
	if changed("backend") && rf.backend != cfg.Detector.Backend {
		if rf.backend == config.BackendYuNet {
			cfg.Detector = config.YuNetDetector()
		} else {
			cfg.Detector = config.DefaultConfig().Detector
			cfg.Detector.Backend = rf.backend
		}
	}
	if changed("confidence") {
		cfg.Detector.Confidence = rf.detConf
	}
	if changed("age-confidence") {
		cfg.Classifier.Confidence = rf.clsConf
	}
	if changed("engine") {
		cfg.Detector.Engine = rf.engine
		cfg.Classifier.Engine = rf.engine
	}
	if changed("accelerator") {
		cfg.Detector.Accelerator = rf.accelerator
		cfg.Classifier.Accelerator = rf.accelerator
	}
	if changed("sink") {
		cfg.Sink.Kind = rf.sink
	}
	if changed("addr") {
		cfg.Sink.Addr = rf.addr
	}
	if changed("show-confidences") {
		cfg.Display.ShowConfidences = rf.showConf
	}
	if changed("no-labels") {
		cfg.Display.ShowLabels = !rf.noLabels
	}
	if changed("warmup") {
		cfg.Warmup = rf.warmup
	}
	if changed("db") {
		cfg.DatabaseURL = rf.dbURL
	}
	return nil
}
