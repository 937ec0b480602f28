package pipeline

import (
	"strconv"

	"github.com/samber/lo"
)

// FaceLabel returns the display label for the face at 1-based index i.
func FaceLabel(i int) string {
	return "Face " + strconv.Itoa(i)
}

// Annotate turns detections into display regions labelled "Face 1".."Face N"
// in detection order. Whatever label the detector produced is replaced in
// the region but kept in Region.Raw; preds itself is not modified.
func Annotate(preds []Prediction) []Region {
	return lo.Map(preds, func(p Prediction, i int) Region {
		return Region{Index: i + 1, Label: FaceLabel(i + 1), Raw: p}
	})
}
