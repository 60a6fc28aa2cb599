package visibility

import (
	"bytes"
	"testing"

	"github.com/kjstillabower/model-catalog/internal/models"
)

func TestRunCheck_Fixture(t *testing.T) {
	r := RunCheck(Fixture(), ExpectedVisibleNames())
	if r.Original != 6 {
		t.Errorf("Original = %d, want 6", r.Original)
	}
	if r.Filtered != 3 {
		t.Errorf("Filtered = %d, want 3", r.Filtered)
	}
	if !r.Passed {
		t.Errorf("Passed = false, names = %v", r.FilteredNames)
	}
}

func TestRunCheck_Fails(t *testing.T) {
	recs := append(Fixture(), models.ModelRecord{ID: "model6", Name: "Extra Model"})
	r := RunCheck(recs, ExpectedVisibleNames())
	if r.Passed {
		t.Error("Passed = true, want false with an extra visible model")
	}
	if r.Filtered != 4 {
		t.Errorf("Filtered = %d, want 4", r.Filtered)
	}
}

// TestCheckReport_Write verifies the exact console output of a fixture run.
func TestCheckReport_Write(t *testing.T) {
	var buf bytes.Buffer
	if err := RunCheck(Fixture(), ExpectedVisibleNames()).Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := "Original models: 6\n" +
		"Filtered models: 3\n" +
		"Filtered model names: [\"Regular Model 1\" \"Regular Model 2\" \"Normal Model\"]\n" +
		"Test passed: true\n"
	if got := buf.String(); got != want {
		t.Errorf("Write() output =\n%s\nwant\n%s", got, want)
	}
}
