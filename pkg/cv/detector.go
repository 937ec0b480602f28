package cv

import (
	"fmt"
	"io"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// Detector is a face detector that owns native resources.
type Detector interface {
	pipeline.FaceDetector
	io.Closer
}

// NewFaceDetector builds the backend named by cfg.Backend.
func NewFaceDetector(cfg config.Model) (Detector, error) {
	var (
		d   Detector
		err error
	)
	switch cfg.Backend {
	case config.BackendSSD, "":
		d, err = newSSD(cfg)
	case config.BackendYuNet:
		d, err = newYuNet(cfg)
	default:
		err = fmt.Errorf("%w: detector backend %q", ErrUnsupported, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newSSD(cfg config.Model) (Detector, error) {
	d, err := NewSSDFaceDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newYuNet(cfg config.Model) (Detector, error) {
	d, err := NewYuNetDetector(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var (
	_ Detector               = (*SSDFaceDetector)(nil)
	_ Detector               = (*YuNetDetector)(nil)
	_ pipeline.AgeClassifier = (*AgeClassifier)(nil)
)
