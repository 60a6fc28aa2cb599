package visibility

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kjstillabower/model-catalog/internal/models"
)

// TestFilter_Fixture verifies that the reference fixture keeps exactly the three
// regular models, in input order.
func TestFilter_Fixture(t *testing.T) {
	got := Names(Filter(Fixture()))
	want := []string{"Regular Model 1", "Regular Model 2", "Normal Model"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Names(Filter(Fixture())) mismatch (-want +got):\n%s", diff)
	}
}

// TestVisible_Rules verifies each exclusion rule holds regardless of the other fields.
func TestVisible_Rules(t *testing.T) {
	hidden := &models.ModelInfo{Meta: &models.ModelMeta{Hidden: models.Bool(true)}}
	notHidden := &models.ModelInfo{Meta: &models.ModelMeta{Hidden: models.Bool(false)}}

	tests := []struct {
		name   string
		rec    models.ModelRecord
		want   bool
		reason Reason
	}{
		{"plain", models.ModelRecord{ID: "a", OwnedBy: "ollama"}, true, ReasonNone},
		{"no fields at all", models.ModelRecord{}, true, ReasonNone},
		{"owner arena", models.ModelRecord{ID: "a", OwnedBy: "arena"}, false, ReasonArenaOwner},
		{"owner arena with flag false", models.ModelRecord{ID: "a", OwnedBy: "arena", Arena: models.Bool(false)}, false, ReasonArenaOwner},
		{"owner arena not hidden", models.ModelRecord{ID: "a", OwnedBy: "arena", Info: notHidden}, false, ReasonArenaOwner},
		{"flag true", models.ModelRecord{ID: "a", Arena: models.Bool(true)}, false, ReasonArenaFlag},
		{"flag true other owner", models.ModelRecord{ID: "a", OwnedBy: "openai", Arena: models.Bool(true)}, false, ReasonArenaFlag},
		{"flag false", models.ModelRecord{ID: "a", OwnedBy: "openai", Arena: models.Bool(false)}, true, ReasonNone},
		{"hidden", models.ModelRecord{ID: "a", OwnedBy: "ollama", Info: hidden}, false, ReasonHidden},
		{"hidden and arena", models.ModelRecord{ID: "a", OwnedBy: "arena", Info: hidden}, false, ReasonHidden},
		{"hidden false", models.ModelRecord{ID: "a", Info: notHidden}, true, ReasonNone},
		{"info without meta", models.ModelRecord{ID: "a", Info: &models.ModelInfo{}}, true, ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(tt.rec); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
			if got := Exclusion(tt.rec); got != tt.reason {
				t.Errorf("Exclusion() = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	got := Filter(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Filter(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestPartition_CountsReasons(t *testing.T) {
	visible, excluded := Partition(Fixture())
	if len(visible) != 3 {
		t.Errorf("len(visible) = %d, want 3", len(visible))
	}
	want := map[Reason]int{ReasonHidden: 1, ReasonArenaOwner: 1, ReasonArenaFlag: 1}
	if diff := cmp.Diff(want, excluded); diff != "" {
		t.Errorf("excluded mismatch (-want +got):\n%s", diff)
	}
}

// TestSameNames verifies order-insensitive comparison and that duplicates matter.
func TestSameNames(t *testing.T) {
	tests := []struct {
		name     string
		expected []string
		actual   []string
		want     bool
	}{
		{"same order", []string{"a", "b", "c"}, []string{"a", "b", "c"}, true},
		{"different order", []string{"Regular Model 1", "Regular Model 2", "Normal Model"}, []string{"Normal Model", "Regular Model 1", "Regular Model 2"}, true},
		{"missing one", []string{"a", "b", "c"}, []string{"a", "b"}, false},
		{"different element", []string{"a", "b"}, []string{"a", "x"}, false},
		{"duplicate mismatch", []string{"a", "a", "b"}, []string{"a", "b", "b"}, false},
		{"both empty", nil, []string{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameNames(tt.expected, tt.actual); got != tt.want {
				t.Errorf("SameNames(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestSameNames_DoesNotMutate(t *testing.T) {
	actual := []string{"c", "a", "b"}
	_ = SameNames([]string{"a", "b", "c"}, actual)
	if diff := cmp.Diff([]string{"c", "a", "b"}, actual); diff != "" {
		t.Errorf("SameNames mutated input (-want +got):\n%s", diff)
	}
}
