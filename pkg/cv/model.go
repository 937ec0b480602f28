// Package cv runs the face detector and age classifier through OpenCV's DNN
// module and provides a highgui window sink.
package cv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// checkFiles fails fast with ErrModelNotFound; OpenCV itself only returns
// an empty net.
func checkFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, p)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return nil
}

// loadNet reads cfg.Weights (+ cfg.Config) and applies engine settings.
func loadNet(cfg config.Model) (gocv.Net, error) {
	backend, target, err := resolve(cfg.Engine, cfg.Accelerator)
	if err != nil {
		return gocv.Net{}, err
	}
	if err := checkFiles(cfg.Weights, cfg.Config); err != nil {
		return gocv.Net{}, err
	}

	net := gocv.ReadNet(cfg.Weights, cfg.Config)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("%w: %s", ErrModelLoad, cfg.Weights)
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set backend %s: %w", cfg.Engine, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("set target %s: %w", cfg.Accelerator, err)
	}
	return net, nil
}

// modelInfo describes cfg for banners and text headers.
func modelInfo(cfg config.Model) pipeline.ModelInfo {
	return pipeline.ModelInfo{
		ID:          cfg.ID,
		Engine:      strings.ToUpper(cfg.Engine),
		Accelerator: strings.ToUpper(cfg.Accelerator),
	}
}
