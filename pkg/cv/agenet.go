package cv

import (
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

// AgeBuckets are AgeNet's output classes in network order.
var AgeBuckets = []string{
	"(0-2)", "(4-6)", "(8-12)", "(15-20)",
	"(25-32)", "(38-43)", "(48-53)", "(60-100)",
}

// AgeNet input geometry and BGR mean of its training set.
var (
	ageInputSize = image.Pt(227, 227)
	ageMean      = gocv.NewScalar(78.4263377603, 87.7689143744, 114.895847746, 0)
)

// AgeClassifier runs the AgeNet Caffe model on face crops.
type AgeClassifier struct {
	net           gocv.Net
	info          pipeline.ModelInfo
	minConfidence float64
	mu            sync.Mutex // Protects inference
}

// NewAgeClassifier loads the model in cfg. cfg.Confidence is the minimum
// score a bucket needs to be reported.
func NewAgeClassifier(cfg config.Model) (*AgeClassifier, error) {
	net, err := loadNet(cfg)
	if err != nil {
		return nil, err
	}
	return &AgeClassifier{net: net, info: modelInfo(cfg), minConfidence: cfg.Confidence}, nil
}

// Classify scores a face crop. An empty result means no bucket reached the
// minimum confidence.
func (c *AgeClassifier) Classify(f frame.Frame) (pipeline.ClassificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := toMat(f)
	if err != nil {
		return pipeline.ClassificationResult{}, err
	}
	defer img.Close()

	start := time.Now()

	blob := gocv.BlobFromImage(img, 1.0, ageInputSize, ageMean, false, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	scores, err := floats(out)
	if err != nil {
		return pipeline.ClassificationResult{}, fmt.Errorf("agenet: %w", err)
	}
	if len(scores) != len(AgeBuckets) {
		return pipeline.ClassificationResult{}, fmt.Errorf("agenet: got %d scores, want %d", len(scores), len(AgeBuckets))
	}

	return pipeline.ClassificationResult{
		Predictions: rankClassifications(scores, AgeBuckets, c.minConfidence),
		Duration:    time.Since(start),
	}, nil
}

// Info implements pipeline.AgeClassifier.
func (c *AgeClassifier) Info() pipeline.ModelInfo { return c.info }

// Close releases the network.
func (c *AgeClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// rankClassifications pairs scores with labels, drops those below
// minConfidence and sorts by descending score. Ties keep label order.
func rankClassifications(scores []float32, labels []string, minConfidence float64) []pipeline.Classification {
	var out []pipeline.Classification
	for i, s := range scores {
		if i >= len(labels) {
			break
		}
		if float64(s) < minConfidence {
			continue
		}
		out = append(out, pipeline.Classification{Label: labels[i], Confidence: float64(s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
