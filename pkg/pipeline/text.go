package pipeline

import (
	"fmt"
	"slices"
)

// NoPrediction is shown for a face the classifier abstained on.
const NoPrediction = "No age prediction"

// FacesMarker separates the header from the per-face blocks.
const FacesMarker = "Faces:"

// DisplayText is the text published next to a frame: fixed header lines
// followed by exactly one block per detected face.
type DisplayText struct {
	Header []string
	Blocks [][]string
}

// Lines flattens the header and blocks in order.
func (d DisplayText) Lines() []string {
	n := len(d.Header)
	for _, b := range d.Blocks {
		n += len(b)
	}
	out := make([]string, 0, n)
	out = append(out, d.Header...)
	for _, b := range d.Blocks {
		out = append(out, b...)
	}
	return out
}

// FaceReport pairs a region with its classification.
type FaceReport struct {
	Region Region
	Age    ClassificationResult
}

// TextPolicy formats display text. Swapping the policy changes only what is
// shown; detection and classification data are the same either way.
type TextPolicy interface {
	Header(model ModelInfo, det DetectionResult) []string
	FaceBlock(r FaceReport) []string
}

// PolicyFor returns VerboseText when confidences should be shown and
// CompactText otherwise.
func PolicyFor(showConfidences bool) TextPolicy {
	if showConfidences {
		return VerboseText{}
	}
	return CompactText{}
}

// BuildText runs policy over one iteration's results.
func BuildText(policy TextPolicy, model ModelInfo, det DetectionResult, faces []FaceReport) DisplayText {
	text := DisplayText{
		Header: policy.Header(model, det),
		Blocks: make([][]string, 0, len(faces)),
	}
	for _, f := range faces {
		text.Blocks = append(text.Blocks, slices.Clone(policy.FaceBlock(f)))
	}
	return text
}

func header(model ModelInfo, det DetectionResult) []string {
	return []string{
		fmt.Sprintf("Model: %s", model.ID),
		fmt.Sprintf("Inference time: %1.3f s", det.Duration.Seconds()),
		FacesMarker,
	}
}

// CompactText shows the face label and the top age label only.
type CompactText struct{}

// Header implements TextPolicy.
func (CompactText) Header(model ModelInfo, det DetectionResult) []string {
	return header(model, det)
}

// FaceBlock implements TextPolicy.
func (CompactText) FaceBlock(r FaceReport) []string {
	top, ok := r.Age.Top()
	if !ok {
		return []string{r.Region.Label, NoPrediction}
	}
	return []string{r.Region.Label, "is " + top.Label}
}

// VerboseText adds detection and classification confidences.
type VerboseText struct{}

// Header implements TextPolicy.
func (VerboseText) Header(model ModelInfo, det DetectionResult) []string {
	return header(model, det)
}

// FaceBlock implements TextPolicy.
func (VerboseText) FaceBlock(r FaceReport) []string {
	face := fmt.Sprintf("%s: detected with %2.2f%% confidence,", r.Region.Label, r.Region.Raw.Confidence*100)
	top, ok := r.Age.Top()
	if !ok {
		return []string{face, NoPrediction}
	}
	return []string{face, fmt.Sprintf("age: %s, confidence: %.2f", top.Label, top.Confidence)}
}
