package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-agecam/internal/log"
	"github.com/teslashibe/go-agecam/pkg/app"
	"github.com/teslashibe/go-agecam/pkg/camera"
	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/cv"
	"github.com/teslashibe/go-agecam/pkg/ledger"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
	"github.com/teslashibe/go-agecam/pkg/render"
	"github.com/teslashibe/go-agecam/pkg/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the detection pipeline (the default command)",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	ctx := cmd.Context()
	runID := uuid.NewString()
	logger := log.With("run_id", runID)

	detector, err := cv.NewFaceDetector(cfg.Detector)
	if err != nil {
		return fmt.Errorf("load face detector: %w", err)
	}
	classifier, err := cv.NewAgeClassifier(cfg.Classifier)
	if err != nil {
		detector.Close()
		return fmt.Errorf("load age classifier: %w", err)
	}

	var recorder ledger.Recorder
	if cfg.DatabaseURL != "" {
		l, err := ledger.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			// The ledger is optional; a run without it is still useful.
			logger.Warn("run ledger unavailable", "error", err)
		} else {
			defer l.Close(context.Background())
			recorder = l
		}
	}

	a, err := app.New(app.Options{
		Detector:   detector,
		Classifier: classifier,
		Renderer:   render.New(render.DefaultOptions()),
		OpenSource: sourceFactory(cfg.Camera),
		OpenSink:   sinkFactory(cfg.Sink, runID),
		Pipeline:   pipelineConfig(cfg),
		Warmup:     warmup(cfg.Warmup),
		Out:        cmd.OutOrStdout(),
		Logger:     logger,
		Ledger:     recorder,
		RunID:      runID,
		SourceName: camera.ParseDevice(cfg.Camera.Device).String(),
	})
	if err != nil {
		detector.Close()
		classifier.Close()
		return err
	}
	defer a.Close()

	_, err = a.Run(ctx)
	return err
}

func sourceFactory(cfg config.Camera) app.SourceFactory {
	return func() (pipeline.FrameSource, error) {
		cam, err := camera.Open(cfg)
		if err != nil {
			return nil, err
		}
		w, h := cam.Size()
		log.Info("camera opened", "device", cam.Device().String(), "width", w, "height", h)
		return cam, nil
	}
}

func sinkFactory(cfg config.Sink, runID string) app.SinkFactory {
	return func() (pipeline.FrameSink, error) {
		switch cfg.Kind {
		case config.SinkWindow:
			return cv.NewWindow(cfg.WindowTitle), nil
		default:
			s := web.NewServer(cfg, runID)
			if err := s.Open(); err != nil {
				s.Close()
				return nil, err
			}
			return s, nil
		}
	}
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		ConfidenceThreshold: cfg.Detector.Confidence,
		Markup: pipeline.MarkupOptions{
			ShowLabels:      cfg.Display.ShowLabels,
			ShowConfidences: cfg.Display.ShowConfidences,
		},
		Text: pipeline.PolicyFor(cfg.Display.ShowConfidences),
	}
}

// warmup maps the config value onto app.Options, where zero means "use
// the default" rather than "none".
func warmup(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}
