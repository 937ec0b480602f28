package cv

import (
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// FaceLabel is the label SSD and YuNet attach to every detection.
const FaceLabel = "face"

// SSD input geometry and BGR mean for the res10 face model.
var (
	ssdInputSize = image.Pt(300, 300)
	ssdMean      = gocv.NewScalar(104, 177, 123, 0)
)

// ssdStride is the length of one SSD detection row:
// [image_id, class_id, confidence, x1, y1, x2, y2], coordinates normalised.
const ssdStride = 7

// SSDFaceDetector runs the res10 300x300 SSD face model.
type SSDFaceDetector struct {
	net  gocv.Net
	info pipeline.ModelInfo
	mu   sync.Mutex // Protects inference
}

// NewSSDFaceDetector loads the Caffe model in cfg.
func NewSSDFaceDetector(cfg config.Model) (*SSDFaceDetector, error) {
	net, err := loadNet(cfg)
	if err != nil {
		return nil, err
	}
	return &SSDFaceDetector{net: net, info: modelInfo(cfg)}, nil
}

// Detect finds faces scoring at least confidence.
func (d *SSDFaceDetector) Detect(f frame.Frame, confidence float64) (pipeline.DetectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := toMat(f)
	if err != nil {
		return pipeline.DetectionResult{}, err
	}
	defer img.Close()

	start := time.Now()

	blob := gocv.BlobFromImage(img, 1.0, ssdInputSize, ssdMean, false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := floats(out)
	if err != nil {
		return pipeline.DetectionResult{}, fmt.Errorf("ssd: %w", err)
	}

	preds := parseSSD(data, f.Bounds(), confidence)
	return pipeline.DetectionResult{Predictions: preds, Duration: time.Since(start)}, nil
}

// Info implements pipeline.FaceDetector.
func (d *SSDFaceDetector) Info() pipeline.ModelInfo { return d.info }

// Close releases the network.
func (d *SSDFaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// parseSSD converts raw SSD rows into pixel boxes within bounds, keeping the
// model's order. Rows below threshold and degenerate boxes are dropped.
func parseSSD(data []float32, bounds image.Rectangle, threshold float64) []pipeline.Prediction {
	w := float32(bounds.Dx())
	h := float32(bounds.Dy())

	var preds []pipeline.Prediction
	for i := 0; i+ssdStride <= len(data); i += ssdStride {
		row := data[i : i+ssdStride]
		score := float64(row[2])
		if score < threshold {
			continue
		}

		x1 := int(clamp01(row[3]) * w)
		y1 := int(clamp01(row[4]) * h)
		x2 := int(clamp01(row[5]) * w)
		y2 := int(clamp01(row[6]) * h)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		r := image.Rect(x1, y1, x2, y2).Add(bounds.Min)
		preds = append(preds, pipeline.Prediction{
			Box:        frame.BoxFromRect(r),
			Label:      FaceLabel,
			Confidence: score,
		})
	}
	return preds
}
