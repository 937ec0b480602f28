package cv

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// YuNet tuning.
const (
	yunetNMSThreshold = 0.3
	yunetTopK         = 5000
)

// yunetStride is the length of one YuNet output row:
// x, y, w, h, 5 landmark pairs, score.
const yunetStride = 15

// YuNetDetector uses OpenCV's FaceDetectorYN.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	info     pipeline.ModelInfo
	size     image.Point
	mu       sync.Mutex // Protects inference
}

// NewYuNetDetector loads the ONNX model in cfg.
func NewYuNetDetector(cfg config.Model) (*YuNetDetector, error) {
	backend, target, err := resolve(cfg.Engine, cfg.Accelerator)
	if err != nil {
		return nil, err
	}
	if err := checkFiles(cfg.Weights); err != nil {
		return nil, err
	}

	// Input size is reset per frame.
	size := image.Pt(320, 320)
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.Weights,
		"", // No config file needed for ONNX
		size,
		float32(cfg.Confidence),
		yunetNMSThreshold,
		yunetTopK,
		int(backend),
		int(target),
	)

	return &YuNetDetector{detector: detector, info: modelInfo(cfg), size: size}, nil
}

// Detect finds faces scoring at least confidence.
func (d *YuNetDetector) Detect(f frame.Frame, confidence float64) (pipeline.DetectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := toMat(f)
	if err != nil {
		return pipeline.DetectionResult{}, err
	}
	defer img.Close()

	start := time.Now()

	if sz := image.Pt(img.Cols(), img.Rows()); sz != d.size {
		d.detector.SetInputSize(sz)
		d.size = sz
	}
	d.detector.SetScoreThreshold(float32(confidence))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	var preds []pipeline.Prediction
	if !faces.Empty() {
		data, err := floats(faces)
		if err != nil {
			return pipeline.DetectionResult{}, err
		}
		preds = parseYuNet(data, f.Bounds(), confidence)
	}

	return pipeline.DetectionResult{Predictions: preds, Duration: time.Since(start)}, nil
}

// Info implements pipeline.FaceDetector.
func (d *YuNetDetector) Info() pipeline.ModelInfo { return d.info }

// Close releases the detector resources.
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// parseYuNet converts YuNet rows (pixel coordinates) into boxes clipped to
// bounds.
func parseYuNet(data []float32, bounds image.Rectangle, threshold float64) []pipeline.Prediction {
	var preds []pipeline.Prediction
	for i := 0; i+yunetStride <= len(data); i += yunetStride {
		row := data[i : i+yunetStride]
		score := float64(row[14])
		if score < threshold {
			continue
		}

		x, y := int(row[0]), int(row[1])
		r := image.Rect(x, y, x+int(row[2]), y+int(row[3])).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		preds = append(preds, pipeline.Prediction{
			Box:        frame.BoxFromRect(r),
			Label:      FaceLabel,
			Confidence: score,
		})
	}
	return preds
}
