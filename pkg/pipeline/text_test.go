package pipeline

import (
	"reflect"
	"testing"
	"time"
)

var testModel = ModelInfo{ID: "res10_300x300_ssd_iter_140000", Engine: "DNN", Accelerator: "CPU"}

func TestCompactText_Header(t *testing.T) {
	got := CompactText{}.Header(testModel, DetectionResult{Duration: 12345 * time.Microsecond})
	want := []string{
		"Model: res10_300x300_ssd_iter_140000",
		"Inference time: 0.012 s",
		"Faces:",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Header:\n got %q\nwant %q", got, want)
	}
}

func TestFaceBlock(t *testing.T) {
	region := Region{Index: 2, Label: "Face 2", Raw: Prediction{Label: "face", Confidence: 0.9712}}
	young := ClassificationResult{Predictions: []Classification{
		{Label: "(25-32)", Confidence: 0.81},
		{Label: "(15-20)", Confidence: 0.12},
	}}

	tests := []struct {
		name   string
		policy TextPolicy
		age    ClassificationResult
		want   []string
	}{
		{"compact top label", CompactText{}, young, []string{"Face 2", "is (25-32)"}},
		{"compact abstain", CompactText{}, ClassificationResult{}, []string{"Face 2", NoPrediction}},
		{
			"verbose top label", VerboseText{}, young,
			[]string{"Face 2: detected with 97.12% confidence,", "age: (25-32), confidence: 0.81"},
		},
		{
			"verbose abstain", VerboseText{}, ClassificationResult{},
			[]string{"Face 2: detected with 97.12% confidence,", NoPrediction},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.policy.FaceBlock(FaceReport{Region: region, Age: tc.age})
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("FaceBlock:\n got %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	if _, ok := PolicyFor(false).(CompactText); !ok {
		t.Error("PolicyFor(false) should be CompactText")
	}
	if _, ok := PolicyFor(true).(VerboseText); !ok {
		t.Error("PolicyFor(true) should be VerboseText")
	}
}

func TestBuildText_OneBlockPerFace(t *testing.T) {
	for n := 0; n <= 4; n++ {
		preds := make([]Prediction, n)
		regions := Annotate(preds)
		faces := make([]FaceReport, len(regions))
		for i, r := range regions {
			faces[i] = FaceReport{Region: r}
		}

		text := BuildText(CompactText{}, testModel, DetectionResult{Predictions: preds}, faces)

		if len(text.Blocks) != n {
			t.Errorf("n=%d: got %d blocks", n, len(text.Blocks))
		}
		if len(text.Lines()) != 3+2*n {
			t.Errorf("n=%d: got %d lines, want %d", n, len(text.Lines()), 3+2*n)
		}
	}
}

func TestDisplayText_Lines(t *testing.T) {
	d := DisplayText{
		Header: []string{"a", "b"},
		Blocks: [][]string{{"c", "d"}, {"e"}},
	}
	if got := d.Lines(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("Lines: got %q", got)
	}
	if got := (DisplayText{}).Lines(); len(got) != 0 {
		t.Errorf("empty Lines: got %q", got)
	}
}
