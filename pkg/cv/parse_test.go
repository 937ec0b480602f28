package cv

import (
	"image"
	"reflect"
	"testing"

	"github.com/teslashibe/go-agecam/pkg/frame"
	"github.com/teslashibe/go-agecam/pkg/pipeline"
)

func TestParseSSD(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	data := []float32{
		// id, class, conf, x1, y1, x2, y2
		0, 1, 0.98, 0.10, 0.20, 0.30, 0.60,
		0, 1, 0.40, 0.50, 0.50, 0.60, 0.60, // below threshold
		0, 1, 0.75, -0.10, 0.75, 0.25, 1.30, // clamped to the frame
		0, 1, 0.90, 0.50, 0.50, 0.50, 0.70, // zero width
	}

	got := parseSSD(data, bounds, 0.5)

	want := []pipeline.Prediction{
		{Box: frame.Box{X: 20, Y: 20, W: 40, H: 40}, Label: FaceLabel, Confidence: float64(float32(0.98))},
		{Box: frame.Box{X: 0, Y: 75, W: 50, H: 25}, Label: FaceLabel, Confidence: float64(float32(0.75))},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseSSD:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseSSD_ThresholdAndTruncatedInput(t *testing.T) {
	row := []float32{0, 1, 0.5, 0, 0, 0.5, 0.5}

	if got := parseSSD(row, image.Rect(0, 0, 10, 10), 0.5); len(got) != 1 {
		t.Errorf("score equal to threshold should be kept, got %d", len(got))
	}
	if got := parseSSD(row, image.Rect(0, 0, 10, 10), 0.51); len(got) != 0 {
		t.Errorf("score below threshold should be dropped, got %d", len(got))
	}
	if got := parseSSD(row[:5], image.Rect(0, 0, 10, 10), 0); len(got) != 0 {
		t.Errorf("partial row should be ignored, got %d", len(got))
	}
	if got := parseSSD(nil, image.Rect(0, 0, 10, 10), 0); got != nil {
		t.Errorf("no rows should give nil, got %v", got)
	}
}

func TestParseYuNet(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	row := func(x, y, w, h, score float32) []float32 {
		r := make([]float32, yunetStride)
		r[0], r[1], r[2], r[3], r[14] = x, y, w, h, score
		return r
	}

	var data []float32
	data = append(data, row(10, 10, 30, 40, 0.9)...)
	data = append(data, row(90, 90, 30, 30, 0.8)...)   // clipped
	data = append(data, row(10, 10, 30, 30, 0.2)...)   // below threshold
	data = append(data, row(200, 200, 10, 10, 0.9)...) // outside

	got := parseYuNet(data, bounds, 0.5)

	want := []pipeline.Prediction{
		{Box: frame.Box{X: 10, Y: 10, W: 30, H: 40}, Label: FaceLabel, Confidence: float64(float32(0.9))},
		{Box: frame.Box{X: 90, Y: 90, W: 10, H: 10}, Label: FaceLabel, Confidence: float64(float32(0.8))},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseYuNet:\n got %+v\nwant %+v", got, want)
	}
}

func TestRankClassifications(t *testing.T) {
	scores := []float32{0.05, 0.02, 0.40, 0.01, 0.45, 0.03, 0.02, 0.02}

	tests := []struct {
		name string
		min  float64
		want []string
	}{
		{"default minimum", 0.3, []string{"(25-32)", "(8-12)"}},
		{"nothing passes", 0.5, nil},
		{"everything passes, stable ties", 0, []string{
			"(25-32)", "(8-12)", "(0-2)", "(38-43)", "(4-6)", "(48-53)", "(60-100)", "(15-20)",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := rankClassifications(scores, AgeBuckets, tc.min)
			var labels []string
			for _, c := range got {
				labels = append(labels, c.Label)
			}
			if !reflect.DeepEqual(labels, tc.want) {
				t.Errorf("got %v, want %v", labels, tc.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].Confidence < got[i].Confidence {
					t.Errorf("not sorted at %d: %v", i, got)
				}
			}
		})
	}
}

func TestRankClassifications_MoreScoresThanLabels(t *testing.T) {
	got := rankClassifications([]float32{0.1, 0.9, 0.8}, []string{"a", "b"}, 0)
	if len(got) != 2 || got[0].Label != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestClamp01(t *testing.T) {
	for in, want := range map[float32]float32{-0.5: 0, 0: 0, 0.25: 0.25, 1: 1, 1.5: 1} {
		if got := clamp01(in); got != want {
			t.Errorf("clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestIsExitKey(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{-1, false},
		{'q', true},
		{'Q', true},
		{27, true},
		{'a', false},
		{0x100000 | 'q', true}, // modifier bits set by some GTK builds
	}
	for _, tc := range tests {
		if got := IsExitKey(tc.key); got != tc.want {
			t.Errorf("IsExitKey(%d) = %v, want %v", tc.key, got, tc.want)
		}
	}
}
