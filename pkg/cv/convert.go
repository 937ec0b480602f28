package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/frame"
)

// toMat copies a frame into a BGR Mat. The caller closes it.
func toMat(f frame.Frame) (gocv.Mat, error) {
	if f.Empty() {
		return gocv.Mat{}, ErrEmptyImage
	}
	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert %s: %w", f, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrEmptyImage
	}
	return mat, nil
}

// floats copies a float32 network output.
func floats(m gocv.Mat) ([]float32, error) {
	data, err := m.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// clamp01 limits v to [0, 1].
func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
